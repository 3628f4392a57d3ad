package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-society/society/internal/world"
)

type ActionType string

const (
	ActionIdle          ActionType = "idle"
	ActionMove          ActionType = "move"
	ActionWork          ActionType = "work"
	ActionEat           ActionType = "eat"
	ActionSleep         ActionType = "sleep"
	ActionRest          ActionType = "rest"
	ActionChat          ActionType = "chat"
	ActionShop          ActionType = "shop"
	ActionExercise      ActionType = "exercise"
	ActionEntertainment ActionType = "entertainment"
	ActionWaiting       ActionType = "waiting"
)

type State string

const (
	StateActive         State = "active"
	StateSleeping       State = "sleeping"
	StateBusy           State = "busy"
	StateInConversation State = "in_conversation"
	StatePaused         State = "paused"
	StateOffline        State = "offline"
)

// CurrentAction is what an agent is doing right now. StartedAt and
// Duration are in-world time; Duration <= 0 means open-ended.
type CurrentAction struct {
	Type      ActionType `json:"type"`
	Target    string     `json:"target"`
	Reason    string     `json:"reason"`
	StartedAt time.Time  `json:"started_at"`
	Duration  int        `json:"duration_minutes"`
}

// IsComplete reports whether the action has run its planned duration.
// Open-ended actions never complete on their own.
func (a CurrentAction) IsComplete(now time.Time) bool {
	if a.Duration <= 0 {
		return false
	}
	return now.Sub(a.StartedAt).Minutes() >= float64(a.Duration)
}

// Agent is one simulated resident: identity, traits, wallet, needs,
// memory and the action state machine. All mutation goes through methods
// holding the agent lock.
type Agent struct {
	mu sync.Mutex

	ID         uuid.UUID
	Name       string
	Age        int
	Gender     string
	Occupation string
	Backstory  string
	Home       string
	Workplace  string

	HourlyWage     float64
	balance        float64
	workHoursToday float64

	Personality *Personality
	Needs       *Needs
	Memory      *MemoryStore

	state    State
	action   CurrentAction
	location *world.Location
	plan     *DailyPlan

	lastPerceptionCheck time.Time
	lastNeedsGrowth     time.Time
}

type AgentConfig struct {
	Name           string
	Age            int
	Gender         string
	Occupation     string
	Backstory      string
	Home           string
	Workplace      string
	HourlyWage     float64
	Balance        float64
	Personality    *Personality
	MemoryCapacity int
}

func New(cfg AgentConfig) *Agent {
	p := cfg.Personality
	if p == nil {
		p = DefaultPersonality()
	}
	return &Agent{
		ID:          uuid.New(),
		Name:        cfg.Name,
		Age:         cfg.Age,
		Gender:      cfg.Gender,
		Occupation:  cfg.Occupation,
		Backstory:   cfg.Backstory,
		Home:        cfg.Home,
		Workplace:   cfg.Workplace,
		HourlyWage:  cfg.HourlyWage,
		balance:     cfg.Balance,
		Personality: p,
		Needs:       NewNeeds(),
		Memory:      NewMemoryStore(cfg.MemoryCapacity),
		state:       StateActive,
		action:      CurrentAction{Type: ActionIdle},
	}
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) SetState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *Agent) Action() CurrentAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.action
}

func (a *Agent) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Agent) WorkHoursToday() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workHoursToday
}

// ResetWorkDay clears the daily work-hour counter. The scheduler calls
// this when the in-world date advances.
func (a *Agent) ResetWorkDay() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workHoursToday = 0
}

func (a *Agent) Location() *world.Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.location
}

func (a *Agent) setLocation(loc *world.Location) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.location = loc
}

func (a *Agent) LocationName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.location == nil {
		return ""
	}
	return a.location.Name
}

// SetAction starts a new action and moves the state machine accordingly:
// sleep puts the agent to sleep, chat into conversation, work and move
// mark it busy, everything else leaves it active.
func (a *Agent) SetAction(typ ActionType, target, reason string, durationMinutes int, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.action = CurrentAction{
		Type:      typ,
		Target:    target,
		Reason:    reason,
		StartedAt: now,
		Duration:  durationMinutes,
	}
	switch typ {
	case ActionSleep:
		a.state = StateSleeping
	case ActionChat:
		a.state = StateInConversation
	case ActionWork, ActionMove:
		a.state = StateBusy
	default:
		a.state = StateActive
	}
}

// CompleteAction applies the finished action's effects to needs and
// wallet, then returns the agent to idle. Work pays out against the
// hourly wage and adds fatigue.
func (a *Agent) CompleteAction(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	done := a.action
	switch done.Type {
	case ActionEat:
		a.Needs.Satisfy(NeedHunger)
	case ActionSleep:
		a.Needs.SatisfyBy(NeedFatigue, 90)
	case ActionRest:
		a.Needs.SatisfyBy(NeedFatigue, 30)
		a.Needs.SatisfyBy(NeedComfort, 20)
	case ActionChat:
		a.Needs.Satisfy(NeedSocial)
	case ActionEntertainment:
		a.Needs.Satisfy(NeedEntertainment)
	case ActionWork:
		hours := float64(done.Duration) / 60
		income := a.HourlyWage * hours
		a.balance += income
		a.workHoursToday += hours
		a.Needs.Set(NeedFatigue, a.Needs.Get(NeedFatigue)+15)
	}

	a.action = CurrentAction{Type: ActionIdle, StartedAt: now}
	a.state = StateActive
}

// GrowNeeds raises need pressure by the in-world time elapsed since the
// previous call. The first call only arms the baseline so a freshly
// created agent does not absorb the whole span since the world started.
func (a *Agent) GrowNeeds(now time.Time) {
	a.mu.Lock()
	last := a.lastNeedsGrowth
	a.lastNeedsGrowth = now
	a.mu.Unlock()

	if last.IsZero() || !now.After(last) {
		return
	}
	a.Needs.Grow(now.Sub(last).Hours(), a.Personality)
}

// SpendMoney deducts amount if the balance covers it and records the
// purchase as an event memory. Returns false when the agent cannot
// afford it.
func (a *Agent) SpendMoney(amount float64, reason string) bool {
	a.mu.Lock()
	if amount <= 0 || a.balance < amount {
		a.mu.Unlock()
		return false
	}
	a.balance -= amount
	a.mu.Unlock()

	a.Memory.Add(NewMemory(MemoryEvent, fmt.Sprintf("消费了 %g 元：%s", amount, reason), 3.0))
	return true
}

// Earn credits income outside the work-action path, for one-off rewards.
func (a *Agent) Earn(amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > 0 {
		a.balance += amount
	}
}

// Plan returns a snapshot copy of the current plan. Pipeline goroutines
// replan while API handlers marshal the plan, so the live value never
// leaves the lock.
func (a *Agent) Plan() *DailyPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plan.Clone()
}

func (a *Agent) SetPlan(p *DailyPlan) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plan = p
}

// ReplacePlanTail swaps the rest of today's broad strokes for the
// replacement blocks. No-op when the agent has no plan.
func (a *Agent) ReplacePlanTail(now time.Time, replacement []PlanBlock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan == nil {
		return
	}
	a.plan.ReplaceTail(now, replacement)
}

// Describe renders a one-line third-person summary used in perception
// text shown to other agents.
func (a *Agent) Describe() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	act := a.action
	if act.Type == ActionIdle || act.Type == "" {
		return fmt.Sprintf("%s（%s）正在闲逛", a.Name, a.Occupation)
	}
	return fmt.Sprintf("%s（%s）正在%s", a.Name, a.Occupation, actionLabel(act.Type))
}

func actionLabel(t ActionType) string {
	switch t {
	case ActionMove:
		return "移动"
	case ActionWork:
		return "工作"
	case ActionEat:
		return "吃东西"
	case ActionSleep:
		return "睡觉"
	case ActionRest:
		return "休息"
	case ActionChat:
		return "聊天"
	case ActionShop:
		return "购物"
	case ActionExercise:
		return "锻炼"
	case ActionEntertainment:
		return "娱乐"
	case ActionWaiting:
		return "等待"
	default:
		return "闲逛"
	}
}
