package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/llm"
	"github.com/ai-society/society/internal/metrics"
	"github.com/ai-society/society/internal/world"
)

// ActivitySink receives an append-only record of everything agents do.
// Failures are logged and swallowed; the sink is observability only.
type ActivitySink interface {
	RecordActivity(ctx context.Context, agentID, agentName, kind, detail string) error
}

type Config struct {
	TickInterval  time.Duration
	BatchSize     int
	PlanStartHour int
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 6 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	return c
}

// Scheduler drives the whole population: every tick it triggers daily
// planning when a new in-world day starts, then runs the per-agent
// pipeline for every agent due a decision, in concurrent batches.
// Failures inside one agent's pipeline never spread to another's.
type Scheduler struct {
	cfg         Config
	clock       *world.Clock
	agents      *agent.Directory
	perception  *agent.PerceptionBuilder
	reactions   *agent.ReactionEngine
	reflections *agent.ReflectionEngine
	planner     *agent.Planner
	client      llm.Client
	bus         *events.Bus
	activity    ActivitySink
	logger      *slog.Logger

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastPlanDate string
}

type Deps struct {
	Clock       *world.Clock
	Agents      *agent.Directory
	Perception  *agent.PerceptionBuilder
	Reactions   *agent.ReactionEngine
	Reflections *agent.ReflectionEngine
	Planner     *agent.Planner
	Client      llm.Client
	Bus         *events.Bus
	Activity    ActivitySink
	Logger      *slog.Logger
}

func New(cfg Config, deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:         cfg.withDefaults(),
		clock:       deps.Clock,
		agents:      deps.Agents,
		perception:  deps.Perception,
		reactions:   deps.Reactions,
		reflections: deps.Reflections,
		planner:     deps.Planner,
		client:      deps.Client,
		bus:         deps.Bus,
		activity:    deps.Activity,
		logger:      logger,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx)
	s.logger.Info("scheduler started",
		"tick_interval", s.cfg.TickInterval, "batch_size", s.cfg.BatchSize)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full scheduling round. Exported so tests and the admin
// API can drive the scheduler manually.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.SchedulerTicksTotal.Inc()
	s.maybeGeneratePlans(ctx)

	eligible := s.eligibleAgents()
	if len(eligible) == 0 {
		return
	}

	for start := 0; start < len(eligible); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}
		end := start + s.cfg.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		var wg sync.WaitGroup
		for _, a := range eligible[start:end] {
			wg.Add(1)
			go func(a *agent.Agent) {
				defer wg.Done()
				s.runPipeline(ctx, a)
			}(a)
		}
		wg.Wait()
	}
}

// maybeGeneratePlans regenerates every awake agent's daily plan once per
// in-world day, after the configured start hour.
func (s *Scheduler) maybeGeneratePlans(ctx context.Context) {
	info := s.clock.Snapshot()
	date := info.Time.Format("2006-01-02")

	s.mu.Lock()
	due := date != s.lastPlanDate && info.Time.Hour() >= s.cfg.PlanStartHour
	if due {
		s.lastPlanDate = date
	}
	s.mu.Unlock()
	if !due {
		return
	}

	planned := 0
	for _, a := range s.agents.All() {
		if state := a.State(); state == agent.StateSleeping || state == agent.StateOffline {
			continue
		}
		s.planAgentDay(ctx, a, info.Time)
		planned++
	}
	s.logger.Info("daily plans generated", "date", date, "agents", planned)
	s.publish(events.TypeDailyPlanGenerated, nil, map[string]any{"date": date, "agents": planned})
}

// planAgentDay builds one agent's plan and pre-decomposes the block
// covering the current time. A panic in one agent's planning is contained
// here so the rest of the town still gets plans.
func (s *Scheduler) planAgentDay(ctx context.Context, a *agent.Agent, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PipelineFailuresTotal.Inc()
			s.logger.Error("daily planning panicked", "agent", a.Name, "panic", r)
		}
	}()

	a.ResetWorkDay()
	plan := s.planner.GenerateDailyPlan(ctx, a, now)
	if current := plan.CurrentBlock(now); current != nil {
		plan.HourlyChunks = s.planner.DecomposeToHourly(ctx, a, *current)
		if len(plan.HourlyChunks) > 0 {
			if hourly := plan.CurrentBlock(now); hourly != nil && len(plan.CurrentTasks) == 0 {
				plan.CurrentTasks = s.planner.DecomposeToTasks(ctx, a, *hourly)
			}
		}
	}
	a.SetPlan(plan)
}

// eligibleAgents returns every agent due a decision this tick: awake,
// unpaused, and either idle with no declared duration or past the end of
// its current action.
func (s *Scheduler) eligibleAgents() []*agent.Agent {
	now := s.clock.Now()
	var out []*agent.Agent
	for _, a := range s.agents.All() {
		switch a.State() {
		case agent.StateSleeping, agent.StatePaused, agent.StateOffline:
			continue
		}
		action := a.Action()
		if action.Duration <= 0 || action.IsComplete(now) {
			out = append(out, a)
		}
	}
	return out
}

// runPipeline executes one agent's full cognitive loop for this tick.
// Every panic is caught here: one agent failing never blocks its batch.
func (s *Scheduler) runPipeline(ctx context.Context, a *agent.Agent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PipelineFailuresTotal.Inc()
			s.logger.Error("agent pipeline panicked", "agent", a.Name, "panic", r)
		}
	}()

	now := s.clock.Now()
	a.GrowNeeds(now)
	perception := s.perception.Perceive(a, now)

	var currentBlock *agent.PlanBlock
	if plan := a.Plan(); plan != nil {
		currentBlock = plan.CurrentBlock(now)
	}

	reaction := s.reactions.ShouldReact(ctx, a, perception, currentBlock)
	metrics.ReactionsTotal.WithLabelValues(string(reaction.Kind)).Inc()
	if reaction.Kind != agent.ReactionContinue {
		s.reactions.ExecuteReaction(ctx, a, perception, reaction, now)
		s.recordActivity(ctx, a, "reaction", string(reaction.Kind)+": "+reaction.Reason)
		s.publish(events.TypeAgentReacted, a, map[string]any{
			"kind":   string(reaction.Kind),
			"reason": reaction.Reason,
		})
		if reaction.Kind == agent.ReactionInterrupt {
			return
		}
	}

	if s.reflections.ShouldReflect(a) {
		result := s.reflections.RunReflection(ctx, a, now)
		if result.MemoriesCreated > 0 {
			metrics.ReflectionsTotal.Inc()
			s.recordActivity(ctx, a, "reflection", result.Insights[0])
			s.publish(events.TypeAgentReflected, a, map[string]any{"insights": result.MemoriesCreated})
		}
	}

	if action := a.Action(); action.IsComplete(now) {
		a.CompleteAction(now)
	}

	decision := s.makeDecision(ctx, a, now, perception)
	if decision == nil {
		return
	}
	s.executeDecision(ctx, a, decision, now)
}

func (s *Scheduler) publish(typ events.Type, a *agent.Agent, data map[string]any) {
	if s.bus == nil {
		return
	}
	e := events.New(typ, data)
	if a != nil {
		e.AgentID = a.ID
		e.AgentName = a.Name
	}
	s.bus.Publish(context.Background(), e)
}

func (s *Scheduler) recordActivity(ctx context.Context, a *agent.Agent, kind, detail string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordActivity(ctx, a.ID.String(), a.Name, kind, detail); err != nil {
		s.logger.Warn("activity record failed", "agent", a.Name, "kind", kind, "error", err)
	}
}
