package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/llm"
	"github.com/ai-society/society/internal/metrics"
)

// Decision is the parsed output of one inference call, consumed by the
// executor and then discarded.
type Decision struct {
	Thinking string `json:"thinking"`
	Action   string `json:"action"`
	Target   string `json:"target"`
	Reason   string `json:"reason"`
	RawText  string `json:"-"`
}

func (d *Decision) ActionType() agent.ActionType {
	switch strings.ToUpper(strings.TrimSpace(d.Action)) {
	case "MOVE":
		return agent.ActionMove
	case "WORK":
		return agent.ActionWork
	case "EAT":
		return agent.ActionEat
	case "SLEEP":
		return agent.ActionSleep
	case "REST":
		return agent.ActionRest
	case "CHAT":
		return agent.ActionChat
	case "SHOP":
		return agent.ActionShop
	case "EXERCISE":
		return agent.ActionExercise
	case "ENTERTAINMENT":
		return agent.ActionEntertainment
	default:
		return agent.ActionIdle
	}
}

const decisionAttempts = 3 // initial call plus 2 retries on bad output

// makeDecision asks the inference service what the agent does next. The
// response is free text, so extraction runs the multi-strategy JSON
// parser; unparsable or failed calls burn one attempt each. Nil when all
// attempts are exhausted.
func (s *Scheduler) makeDecision(ctx context.Context, a *agent.Agent, now time.Time, p *agent.Perception) *Decision {
	prompt := s.buildDecisionPrompt(a, now, p)

	for attempt := 0; attempt < decisionAttempts; attempt++ {
		text, err := s.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.8, MaxTokens: 500})
		if err != nil {
			metrics.InferenceCallsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("decision call failed",
				"agent", a.Name, "attempt", attempt+1, "error", err)
			continue
		}
		var d Decision
		if !llm.ExtractInto(text, &d) || d.Action == "" {
			metrics.InferenceCallsTotal.WithLabelValues("unparsable").Inc()
			s.logger.Warn("decision response unparsable",
				"agent", a.Name, "attempt", attempt+1)
			continue
		}
		metrics.InferenceCallsTotal.WithLabelValues("ok").Inc()
		d.RawText = text
		return &d
	}
	return nil
}

func (s *Scheduler) buildDecisionPrompt(a *agent.Agent, now time.Time, p *agent.Perception) string {
	var locations []string
	for _, loc := range s.agents.Locations().All() {
		locations = append(locations, "- "+loc.Name)
	}
	return llm.DecisionPrompt(llm.DecisionPromptParams{
		Name:               a.Name,
		Age:                a.Age,
		Occupation:         a.Occupation,
		Personality:        a.Personality.Description(),
		CurrentLocation:    orUnknown(a.LocationName()),
		CurrentTime:        now.Format("2006-01-02 15:04"),
		WorkHoursToday:     a.WorkHoursToday(),
		Balance:            a.Balance(),
		Hunger:             a.Needs.Get(agent.NeedHunger),
		Fatigue:            a.Needs.Get(agent.NeedFatigue),
		Social:             a.Needs.Get(agent.NeedSocial),
		Entertainment:      a.Needs.Get(agent.NeedEntertainment),
		RecentMemories:     a.Memory.ContextForPrompt(10),
		Surroundings:       p.Describe(),
		AvailableLocations: strings.Join(locations, "\n"),
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "小镇街道"
	}
	return s
}
