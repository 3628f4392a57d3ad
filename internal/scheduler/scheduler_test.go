package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/llm"
	"github.com/ai-society/society/internal/world"
)

type fixture struct {
	scheduler *Scheduler
	agents    *agent.Directory
	locations *world.LocationDirectory
	clock     *world.Clock
	bus       *events.Bus
	mock      *llm.Mock
}

type stubConversations struct {
	partners map[uuid.UUID]string
}

func (s *stubConversations) PartnerOf(id uuid.UUID) (string, bool) {
	name, ok := s.partners[id]
	return name, ok
}

func setup(t *testing.T, mock *llm.Mock, conversations agent.ConversationSource) *fixture {
	t.Helper()

	locations := world.NewLocationDirectory()
	locations.Add(world.NewLocation("cafe-1", "星光咖啡馆", world.KindCafe, world.Position{X: 0, Y: 0}, 10))
	locations.Add(world.NewLocation("office-1", "科技公司", world.KindOffice, world.Position{X: 10, Y: 0}, 50))

	clock := world.NewClock(10, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
	agents := agent.NewDirectory(locations, 50)
	bus := events.NewBus()
	planner := agent.NewPlanner(mock, nil)

	s := New(Config{TickInterval: 10 * time.Millisecond, BatchSize: 5, PlanStartHour: 6}, Deps{
		Clock:       clock,
		Agents:      agents,
		Perception:  agent.NewPerceptionBuilder(agents, agent.NewEventFeed(0), conversations, 15),
		Reactions:   agent.NewReactionEngine(mock, planner, nil),
		Reflections: agent.NewReflectionEngine(mock, 150, nil),
		Planner:     planner,
		Client:      mock,
		Bus:         bus,
	})
	return &fixture{scheduler: s, agents: agents, locations: locations, clock: clock, bus: bus, mock: mock}
}

// skipDailyPlanning marks today's plans as already generated.
func (f *fixture) skipDailyPlanning() {
	f.scheduler.lastPlanDate = f.clock.Now().Format("2006-01-02")
}

func newResident(t *testing.T, f *fixture, name string) *agent.Agent {
	t.Helper()
	a := agent.New(agent.AgentConfig{Name: name, Age: 30, Occupation: "程序员", HourlyWage: 50, Balance: 1000})
	require.NoError(t, f.agents.Add(a))
	return a
}

func TestEligibility(t *testing.T) {
	f := setup(t, llm.NewMock(), nil)
	now := f.clock.Now()

	idle := newResident(t, f, "闲人")

	sleeping := newResident(t, f, "睡觉的人")
	sleeping.SetAction(agent.ActionSleep, "家", "", 480, now)

	busy := newResident(t, f, "忙人")
	busy.SetAction(agent.ActionWork, "公司", "", 60, now)

	done := newResident(t, f, "做完的人")
	done.SetAction(agent.ActionRest, "家", "", 30, now.Add(-time.Hour))

	paused := newResident(t, f, "暂停的人")
	paused.SetState(agent.StatePaused)

	names := map[string]bool{}
	for _, a := range f.scheduler.eligibleAgents() {
		names[a.Name] = true
	}
	assert.True(t, names[idle.Name])
	assert.True(t, names[done.Name])
	assert.False(t, names[sleeping.Name])
	assert.False(t, names[busy.Name])
	assert.False(t, names[paused.Name])
}

func TestTickParsesFencedDecision(t *testing.T) {
	// With nobody else around the perception is empty, so the reaction
	// engine never calls out; the first inference call is the decision.
	mock := llm.NewMock(
		"```json\n{\"thinking\": \"该上班了\", \"action\": \"WORK\", \"target\": \"科技公司\", \"reason\": \"工作时间\"}\n```",
	)
	f := setup(t, mock, nil)
	f.skipDailyPlanning()
	a := newResident(t, f, "张三")

	f.scheduler.Tick(context.Background())

	assert.Equal(t, agent.ActionWork, a.Action().Type)
	assert.Equal(t, agent.StateBusy, a.State())
}

func TestDecisionRetriesOnUnparsableOutput(t *testing.T) {
	mock := llm.NewMock(
		"没有 JSON 的回答",
		"还是没有 JSON",
		`{"thinking": "想休息", "action": "REST", "target": "家", "reason": "累了"}`,
	)
	f := setup(t, mock, nil)
	f.skipDailyPlanning()
	a := newResident(t, f, "张三")

	d := f.scheduler.makeDecision(context.Background(), a, f.clock.Now(), &agent.Perception{})

	require.NotNil(t, d)
	assert.Equal(t, agent.ActionRest, d.ActionType())
	assert.Equal(t, 3, mock.CallCount())
}

func TestDecisionExhaustedReturnsNil(t *testing.T) {
	mock := llm.NewMock()
	mock.Err = errors.New("inference unreachable")
	f := setup(t, mock, nil)
	f.skipDailyPlanning()
	a := newResident(t, f, "张三")

	d := f.scheduler.makeDecision(context.Background(), a, f.clock.Now(), &agent.Perception{})

	assert.Nil(t, d)
	assert.Equal(t, decisionAttempts, mock.CallCount())
}

func TestInterruptShortCircuitsPipeline(t *testing.T) {
	mock := llm.NewMock()
	mock.Err = errors.New("inference unreachable")

	f := setup(t, mock, nil)
	f.skipDailyPlanning()
	a := newResident(t, f, "张三")
	f.scheduler.perception = agent.NewPerceptionBuilder(
		f.agents, agent.NewEventFeed(0),
		&stubConversations{partners: map[uuid.UUID]string{a.ID: "李四"}}, 15)

	f.scheduler.Tick(context.Background())

	// Being addressed interrupts without inference; the only call made is
	// the failed replan, never a decision request.
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, agent.ActionIdle, a.Action().Type)

	recent := f.bus.Recent(5)
	require.NotEmpty(t, recent)
	assert.Equal(t, events.TypeAgentReacted, recent[0].Type)
}

func TestPipelineFailureIsolatedPerAgent(t *testing.T) {
	mock := llm.NewMock(`{"thinking": "休息", "action": "REST", "target": "家", "reason": "累了"}`)
	f := setup(t, mock, nil)
	f.skipDailyPlanning()

	broken := newResident(t, f, "坏掉的人")
	broken.Needs = nil // forces a panic inside this agent's pipeline
	healthy := newResident(t, f, "正常人")

	assert.NotPanics(t, func() { f.scheduler.Tick(context.Background()) })
	assert.Equal(t, agent.ActionRest, healthy.Action().Type)
}

func TestDailyPlanTrigger(t *testing.T) {
	mock := llm.NewMock(`{"plan": [
		{"start": "06:00", "end": "12:00", "activity": "上班", "location": "科技公司"},
		{"start": "12:00", "end": "13:00", "activity": "午饭", "location": "星光咖啡馆"}
	]}`)
	f := setup(t, mock, nil)

	awake := newResident(t, f, "张三")
	sleeping := newResident(t, f, "李四")
	sleeping.SetAction(agent.ActionSleep, "家", "", 480, f.clock.Now())

	f.scheduler.maybeGeneratePlans(context.Background())

	require.NotNil(t, awake.Plan())
	assert.NotEmpty(t, awake.Plan().BroadStrokes)
	assert.Nil(t, sleeping.Plan())

	var sawPlanEvent bool
	for _, e := range f.bus.Recent(10) {
		if e.Type == events.TypeDailyPlanGenerated {
			sawPlanEvent = true
		}
	}
	assert.True(t, sawPlanEvent)

	// Same day: trigger must not fire twice.
	before := mock.CallCount()
	f.scheduler.maybeGeneratePlans(context.Background())
	assert.Equal(t, before, mock.CallCount())
}

func TestChatDecisionEmitsChatRequested(t *testing.T) {
	mock := llm.NewMock()
	f := setup(t, mock, nil)
	a := newResident(t, f, "张三")

	d := &Decision{Action: "CHAT", Target: "李四", Reason: "打个招呼"}
	f.scheduler.executeDecision(context.Background(), a, d, f.clock.Now())

	assert.Equal(t, agent.StateInConversation, a.State())
	var sawChat bool
	for _, e := range f.bus.Recent(10) {
		if e.Type == events.TypeChatRequested {
			sawChat = true
			assert.Equal(t, "李四", e.Data["partner"])
		}
	}
	assert.True(t, sawChat)
}

func TestMoveDecisionRelocates(t *testing.T) {
	f := setup(t, llm.NewMock(), nil)
	a := newResident(t, f, "张三")

	d := &Decision{Action: "MOVE", Target: "星光咖啡馆", Reason: "喝咖啡"}
	f.scheduler.executeDecision(context.Background(), a, d, f.clock.Now())

	assert.Equal(t, "星光咖啡馆", a.LocationName())
	assert.Equal(t, agent.StateBusy, a.State())
}

func TestMoveToUnknownLocationDoesNothing(t *testing.T) {
	f := setup(t, llm.NewMock(), nil)
	a := newResident(t, f, "张三")
	before := a.Action()

	d := &Decision{Action: "MOVE", Target: "不存在的地方", Reason: ""}
	f.scheduler.executeDecision(context.Background(), a, d, f.clock.Now())

	assert.Empty(t, a.LocationName())
	assert.Equal(t, before.Type, a.Action().Type)
}

func TestCompletedActionEffectsAppliedOnTick(t *testing.T) {
	mock := llm.NewMock(`{"thinking": "继续", "action": "IDLE", "target": "", "reason": ""}`)
	f := setup(t, mock, nil)
	f.skipDailyPlanning()

	a := newResident(t, f, "张三")
	a.SetAction(agent.ActionWork, "科技公司", "", 60, f.clock.Now().Add(-2*time.Hour))
	a.SetState(agent.StateActive) // due for a decision despite the work action

	f.scheduler.Tick(context.Background())

	assert.InDelta(t, 1050, a.Balance(), 1e-9)
	assert.InDelta(t, 1, a.WorkHoursToday(), 1e-9)
}

func TestUnknownActionFallsBackToIdle(t *testing.T) {
	f := setup(t, llm.NewMock(), nil)
	a := newResident(t, f, "张三")

	d := &Decision{Action: "FLY", Target: "月球", Reason: "想飞"}
	f.scheduler.executeDecision(context.Background(), a, d, f.clock.Now())

	assert.Equal(t, agent.ActionIdle, a.Action().Type)
	assert.Equal(t, durationIdle, a.Action().Duration)
}

func TestStartStop(t *testing.T) {
	f := setup(t, llm.NewMock(), nil)

	f.scheduler.Start(context.Background())
	assert.True(t, f.scheduler.Running())

	time.Sleep(30 * time.Millisecond)
	f.scheduler.Stop()
	assert.False(t, f.scheduler.Running())

	// Stopping twice is safe.
	f.scheduler.Stop()
}

func TestTickGrowsNeeds(t *testing.T) {
	locations := world.NewLocationDirectory()
	locations.Add(world.NewLocation("cafe-1", "星光咖啡馆", world.KindCafe, world.Position{}, 10))

	// One real millisecond is two in-world hours, so needs pressure builds
	// measurably between two ticks.
	clock := world.NewClock(7_200_000, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
	agents := agent.NewDirectory(locations, 10)
	mock := llm.NewMock()
	planner := agent.NewPlanner(mock, nil)
	s := New(Config{TickInterval: time.Hour, BatchSize: 5, PlanStartHour: 6}, Deps{
		Clock:       clock,
		Agents:      agents,
		Perception:  agent.NewPerceptionBuilder(agents, agent.NewEventFeed(0), nil, 15),
		Reactions:   agent.NewReactionEngine(mock, planner, nil),
		Reflections: agent.NewReflectionEngine(mock, 150, nil),
		Planner:     planner,
		Client:      mock,
		Bus:         events.NewBus(),
	})
	s.lastPlanDate = clock.Now().Format("2006-01-02")

	a := agent.New(agent.AgentConfig{Name: "张三", Age: 30, Occupation: "程序员"})
	require.NoError(t, agents.Add(a))

	s.Tick(context.Background())
	baseline := a.Needs.Get(agent.NeedHunger)

	time.Sleep(5 * time.Millisecond)
	s.Tick(context.Background())
	assert.Greater(t, a.Needs.Get(agent.NeedHunger), baseline+10)
}
