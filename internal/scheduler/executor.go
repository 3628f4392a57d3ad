package scheduler

import (
	"context"
	"time"

	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/metrics"
)

// Action durations in in-world minutes and the flat prices charged by the
// executor.
const (
	durationMove          = 10
	durationWork          = 60
	durationEat           = 30
	durationSleep         = 480
	durationRest          = 30
	durationChat          = 15
	durationShop          = 30
	durationEntertainment = 60
	durationIdle          = 10

	priceMeal     = 30.0
	priceShopping = 50.0
)

type actionHandler func(s *Scheduler, ctx context.Context, a *agent.Agent, d *Decision, now time.Time)

// actionHandlers is the closed dispatch table for decision execution.
// Unknown actions fall back to the idle handler.
var actionHandlers = map[agent.ActionType]actionHandler{
	agent.ActionMove:          (*Scheduler).executeMove,
	agent.ActionWork:          (*Scheduler).executeWork,
	agent.ActionEat:           (*Scheduler).executeEat,
	agent.ActionSleep:         (*Scheduler).executeSleep,
	agent.ActionRest:          (*Scheduler).executeRest,
	agent.ActionChat:          (*Scheduler).executeChat,
	agent.ActionShop:          (*Scheduler).executeShop,
	agent.ActionExercise:      (*Scheduler).executeEntertainment,
	agent.ActionEntertainment: (*Scheduler).executeEntertainment,
	agent.ActionIdle:          (*Scheduler).executeIdle,
}

// executeDecision maps the decision's action onto agent and world state
// changes, records the activity and publishes the decision event.
func (s *Scheduler) executeDecision(ctx context.Context, a *agent.Agent, d *Decision, now time.Time) {
	actionType := d.ActionType()
	handler, ok := actionHandlers[actionType]
	if !ok {
		handler = (*Scheduler).executeIdle
	}
	handler(s, ctx, a, d, now)

	metrics.DecisionsTotal.WithLabelValues(string(actionType)).Inc()
	s.recordActivity(ctx, a, "decision", d.Action+" "+d.Target+": "+d.Reason)
	s.publish(events.TypeAgentDecided, a, map[string]any{
		"action":   string(actionType),
		"target":   d.Target,
		"thinking": d.Thinking,
		"reason":   d.Reason,
	})
}

// executeMove resolves the target by name and relocates the agent. An
// unknown or full location fails fast: log it, change nothing.
func (s *Scheduler) executeMove(ctx context.Context, a *agent.Agent, d *Decision, now time.Time) {
	dest, err := s.agents.MoveAgent(a, d.Target)
	if err != nil {
		s.logger.Warn("move failed", "agent", a.Name, "target", d.Target, "error", err)
		return
	}
	a.SetAction(agent.ActionMove, dest.Name, d.Reason, durationMove, now)
	s.publish(events.TypeAgentMoved, a, map[string]any{"location": dest.Name})
}

func (s *Scheduler) executeWork(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionWork, d.Target, d.Reason, durationWork, now)
}

// executeEat charges a flat meal price; a broke agent eats nothing but
// still spends the time trying.
func (s *Scheduler) executeEat(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	if !a.SpendMoney(priceMeal, "吃饭") {
		s.logger.Info("agent cannot afford a meal", "agent", a.Name, "balance", a.Balance())
	}
	a.SetAction(agent.ActionEat, d.Target, d.Reason, durationEat, now)
}

func (s *Scheduler) executeSleep(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionSleep, d.Target, d.Reason, durationSleep, now)
}

func (s *Scheduler) executeRest(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionRest, d.Target, d.Reason, durationRest, now)
}

// executeChat puts the agent in conversation and hands the dialogue off
// to the external conversation subsystem via a chat.requested event.
func (s *Scheduler) executeChat(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionChat, d.Target, d.Reason, durationChat, now)
	s.publish(events.TypeChatRequested, a, map[string]any{
		"partner": d.Target,
		"reason":  d.Reason,
	})
}

func (s *Scheduler) executeShop(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	if !a.SpendMoney(priceShopping, "购物") {
		s.logger.Info("agent cannot afford shopping", "agent", a.Name, "balance", a.Balance())
	}
	a.SetAction(agent.ActionShop, d.Target, d.Reason, durationShop, now)
}

func (s *Scheduler) executeEntertainment(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionEntertainment, d.Target, d.Reason, durationEntertainment, now)
}

func (s *Scheduler) executeIdle(_ context.Context, a *agent.Agent, d *Decision, now time.Time) {
	a.SetAction(agent.ActionIdle, d.Target, d.Reason, durationIdle, now)
}
