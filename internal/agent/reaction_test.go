package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-society/society/internal/llm"
)

func testReactionEngine(t *testing.T, mock *llm.Mock) *ReactionEngine {
	t.Helper()
	return NewReactionEngine(mock, NewPlanner(mock, nil), nil)
}

func TestEmptyPerceptionContinuesWithoutInference(t *testing.T) {
	mock := llm.NewMock()
	engine := testReactionEngine(t, mock)

	d := engine.ShouldReact(context.Background(), testAgent(t), &Perception{}, nil)

	assert.Equal(t, ReactionContinue, d.Kind)
	assert.False(t, d.ShouldReact)
	assert.Zero(t, mock.CallCount())
}

func TestBeingAddressedInterruptsWithoutInference(t *testing.T) {
	mock := llm.NewMock()
	engine := testReactionEngine(t, mock)

	p := &Perception{BeingAddressed: true, AddressedBy: "李四"}
	d := engine.ShouldReact(context.Background(), testAgent(t), p, nil)

	assert.Equal(t, ReactionInterrupt, d.Kind)
	assert.True(t, d.ShouldReact)
	assert.Equal(t, "回应李四", d.Reaction)
	assert.Zero(t, mock.CallCount())
}

func TestShouldReactParsesNote(t *testing.T) {
	mock := llm.NewMock(`{"should_react": true, "reaction_type": "note", "reaction": "", "reason": "路边有热闹"}`)
	engine := testReactionEngine(t, mock)

	p := &Perception{NewEvents: []string{"街上有集市"}}
	d := engine.ShouldReact(context.Background(), testAgent(t), p, nil)

	assert.Equal(t, ReactionNote, d.Kind)
	assert.True(t, d.ShouldReact)
	assert.Equal(t, 1, mock.CallCount())
}

func TestShouldReactFailureDefaultsToContinue(t *testing.T) {
	mock := llm.NewMock()
	mock.Err = errors.New("timeout")
	engine := testReactionEngine(t, mock)

	p := &Perception{NewEvents: []string{"有人摔倒了"}}
	d := engine.ShouldReact(context.Background(), testAgent(t), p, nil)

	assert.Equal(t, ReactionContinue, d.Kind)
	assert.Equal(t, "decision error", d.Reason)
}

func TestShouldReactUnparsableDefaultsToContinue(t *testing.T) {
	mock := llm.NewMock("我觉得应该继续")
	engine := testReactionEngine(t, mock)

	p := &Perception{NewEvents: []string{"有人摔倒了"}}
	d := engine.ShouldReact(context.Background(), testAgent(t), p, nil)

	assert.Equal(t, ReactionContinue, d.Kind)
}

func TestExecuteNoteRecordsObservation(t *testing.T) {
	mock := llm.NewMock()
	engine := testReactionEngine(t, mock)
	a := testAgent(t)

	p := &Perception{LocationName: "公园", NewEvents: []string{"街头表演"}}
	engine.ExecuteReaction(context.Background(), a, p,
		ReactionDecision{ShouldReact: true, Kind: ReactionNote}, time.Now())

	got := a.Memory.RetrieveByKind(MemoryObservation, 5)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "注意到")
	assert.InDelta(t, 4.0, got[0].Importance, 1e-9)
	assert.Equal(t, "公园", got[0].Location)
}

func TestExecuteInterruptRecordsAndReplans(t *testing.T) {
	mock := llm.NewMock(`{"new_plan": [{"start": "10:00", "end": "11:00", "activity": "和李四聊天", "location": "咖啡馆"}]}`)
	engine := testReactionEngine(t, mock)

	a := testAgent(t)
	plan := NewDailyPlan("2026-01-02")
	plan.BroadStrokes = []PlanBlock{
		{Start: "07:00", End: "09:00", Activity: "晨跑"},
		{Start: "09:00", End: "18:00", Activity: "工作"},
	}
	a.SetPlan(plan)
	a.SetAction(ActionWork, "公司", "", 480, clockAt(t, "09:00"))

	d := ReactionDecision{ShouldReact: true, Kind: ReactionInterrupt, Reaction: "回应李四", Reason: "李四在叫我"}
	engine.ExecuteReaction(context.Background(), a, &Perception{LocationName: "咖啡馆"}, d, clockAt(t, "10:00"))

	events := a.Memory.RetrieveByKind(MemoryEvent, 5)
	require.Len(t, events, 2)
	for _, m := range events {
		assert.InDelta(t, 5.0, m.Importance, 1e-9)
	}

	require.Len(t, a.Plan().BroadStrokes, 2)
	assert.Equal(t, "晨跑", a.Plan().BroadStrokes[0].Activity)
	assert.Equal(t, "和李四聊天", a.Plan().BroadStrokes[1].Activity)
}

func TestExecuteInterruptKeepsPlanWhenReplanFails(t *testing.T) {
	mock := llm.NewMock()
	mock.Err = errors.New("inference unreachable")
	engine := testReactionEngine(t, mock)

	a := testAgent(t)
	plan := NewDailyPlan("2026-01-02")
	plan.BroadStrokes = []PlanBlock{{Start: "09:00", End: "18:00", Activity: "工作"}}
	a.SetPlan(plan)

	d := ReactionDecision{ShouldReact: true, Kind: ReactionInterrupt, Reason: "有事发生"}
	engine.ExecuteReaction(context.Background(), a, &Perception{}, d, clockAt(t, "10:00"))

	require.Len(t, a.Plan().BroadStrokes, 1)
	assert.Equal(t, "工作", a.Plan().BroadStrokes[0].Activity)
}
