package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ai-society/society/internal/llm"
)

type ReactionKind string

const (
	ReactionContinue  ReactionKind = "continue"
	ReactionInterrupt ReactionKind = "interrupt"
	ReactionNote      ReactionKind = "note"
)

type ReactionDecision struct {
	ShouldReact bool
	Kind        ReactionKind
	Reaction    string
	Reason      string
}

func continueDecision(reason string) ReactionDecision {
	return ReactionDecision{ShouldReact: false, Kind: ReactionContinue, Reason: reason}
}

// ReactionEngine decides whether new perception warrants interrupting the
// current activity. Two cases never reach the inference service: an empty
// perception always continues, and being addressed always interrupts.
type ReactionEngine struct {
	client  llm.Client
	planner *Planner
	logger  *slog.Logger
}

func NewReactionEngine(client llm.Client, planner *Planner, logger *slog.Logger) *ReactionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReactionEngine{client: client, planner: planner, logger: logger}
}

func (e *ReactionEngine) ShouldReact(ctx context.Context, a *Agent, p *Perception, currentBlock *PlanBlock) ReactionDecision {
	if p == nil || p.IsEmpty() {
		return continueDecision("周围没有值得反应的事情")
	}
	if p.BeingAddressed {
		return ReactionDecision{
			ShouldReact: true,
			Kind:        ReactionInterrupt,
			Reaction:    "回应" + p.AddressedBy,
			Reason:      p.AddressedBy + " 正在和自己说话",
		}
	}

	planText := "（暂无计划）"
	if currentBlock != nil {
		planText = fmt.Sprintf("%s-%s %s", currentBlock.Start, currentBlock.End, currentBlock.Activity)
	}
	prompt := llm.ShouldReactPrompt(a.Name, actionLabel(a.Action().Type), p.Describe(), planText)
	text, err := e.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		e.logger.Warn("reaction decision failed", "agent", a.Name, "error", err)
		return continueDecision("decision error")
	}

	var parsed struct {
		ShouldReact  bool   `json:"should_react"`
		ReactionType string `json:"reaction_type"`
		Reaction     string `json:"reaction"`
		Reason       string `json:"reason"`
	}
	if !llm.ExtractInto(text, &parsed) {
		e.logger.Warn("reaction response unparsable", "agent", a.Name)
		return continueDecision("decision error")
	}

	kind := ReactionKind(strings.ToLower(strings.TrimSpace(parsed.ReactionType)))
	switch kind {
	case ReactionInterrupt, ReactionNote:
	default:
		kind = ReactionContinue
	}
	if !parsed.ShouldReact {
		kind = ReactionContinue
	}
	return ReactionDecision{
		ShouldReact: parsed.ShouldReact && kind != ReactionContinue,
		Kind:        kind,
		Reaction:    parsed.Reaction,
		Reason:      parsed.Reason,
	}
}

// ExecuteReaction applies a Note or Interrupt decision. A note becomes an
// observation memory. An interrupt records what happened, then replaces
// the plan's remaining broad strokes with a fresh tail; when re-planning
// comes back empty the old tail stays.
func (e *ReactionEngine) ExecuteReaction(ctx context.Context, a *Agent, p *Perception, d ReactionDecision, now time.Time) {
	switch d.Kind {
	case ReactionNote:
		m := NewMemory(MemoryObservation, "注意到："+p.Describe(), 4.0)
		m.OccurredAt = now
		m.Location = p.LocationName
		a.Memory.Add(m)

	case ReactionInterrupt:
		current := a.Action()
		interrupted := NewMemory(MemoryEvent,
			fmt.Sprintf("中断了%s：%s", actionLabel(current.Type), d.Reason), 5.0)
		interrupted.OccurredAt = now
		interrupted.Location = p.LocationName
		a.Memory.Add(interrupted)

		if d.Reaction != "" {
			reacted := NewMemory(MemoryEvent, "反应："+d.Reaction, 5.0)
			reacted.OccurredAt = now
			reacted.Location = p.LocationName
			a.Memory.Add(reacted)
		}

		happened := d.Reaction
		if happened == "" {
			happened = d.Reason
		}
		replacement := e.planner.ReplanFromNow(ctx, a, now, happened)
		if len(replacement) == 0 {
			return
		}
		a.ReplacePlanTail(now, replacement)
	}
}
