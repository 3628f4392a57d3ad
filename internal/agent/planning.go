package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ai-society/society/internal/llm"
)

// PlanBlock is one scheduled span of a daily plan. Start and End are
// "HH:MM" in-world clock strings; a block whose derived duration is not
// positive is invalid and gets dropped with a log line, never an error.
type PlanBlock struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

func parseClockMinutes(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// DurationMinutes derives the block length; 0 for invalid bounds.
func (b PlanBlock) DurationMinutes() int {
	start, ok1 := parseClockMinutes(b.Start)
	end, ok2 := parseClockMinutes(b.End)
	if !ok1 || !ok2 || end <= start {
		return 0
	}
	return end - start
}

// Contains reports whether clock (as "HH:MM") falls in [Start, End).
func (b PlanBlock) Contains(clock string) bool {
	return b.Start <= clock && clock < b.End
}

// DailyPlan is an agent's plan for one in-world day at three
// granularities. It is replaced wholesale when a new day's plan is
// generated; re-planning replaces only the broad-strokes tail.
type DailyPlan struct {
	Date         string      `json:"date"`
	BroadStrokes []PlanBlock `json:"broad_strokes"`
	HourlyChunks []PlanBlock `json:"hourly_chunks"`
	CurrentTasks []PlanBlock `json:"current_tasks"`
}

func NewDailyPlan(date string) *DailyPlan {
	return &DailyPlan{Date: date}
}

// Clone copies the plan so readers never share slices with mutators.
func (p *DailyPlan) Clone() *DailyPlan {
	if p == nil {
		return nil
	}
	out := &DailyPlan{Date: p.Date}
	out.BroadStrokes = append([]PlanBlock(nil), p.BroadStrokes...)
	out.HourlyChunks = append([]PlanBlock(nil), p.HourlyChunks...)
	out.CurrentTasks = append([]PlanBlock(nil), p.CurrentTasks...)
	return out
}

// CurrentBlock returns the finest-granularity block covering t, checking
// tasks, then hourly chunks, then broad strokes. Nil when no block at any
// level covers t.
func (p *DailyPlan) CurrentBlock(t time.Time) *PlanBlock {
	clock := t.Format("15:04")
	for _, level := range [][]PlanBlock{p.CurrentTasks, p.HourlyChunks, p.BroadStrokes} {
		for i := range level {
			if level[i].Contains(clock) {
				return &level[i]
			}
		}
	}
	return nil
}

// RemainingBlocks returns broad-stroke blocks still ending after t.
func (p *DailyPlan) RemainingBlocks(t time.Time) []PlanBlock {
	clock := t.Format("15:04")
	var out []PlanBlock
	for _, b := range p.BroadStrokes {
		if b.End > clock {
			out = append(out, b)
		}
	}
	return out
}

// ReplaceTail swaps the broad strokes ending after t for the replacement
// blocks. Finer levels are cleared since they described the old tail.
func (p *DailyPlan) ReplaceTail(t time.Time, replacement []PlanBlock) {
	clock := t.Format("15:04")
	var kept []PlanBlock
	for _, b := range p.BroadStrokes {
		if b.End <= clock {
			kept = append(kept, b)
		}
	}
	p.BroadStrokes = append(kept, replacement...)
	p.HourlyChunks = nil
	p.CurrentTasks = nil
}

func describeBlocks(blocks []PlanBlock) string {
	if len(blocks) == 0 {
		return "（暂无计划）"
	}
	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(blk.Start)
		b.WriteByte('-')
		b.WriteString(blk.End)
		b.WriteByte(' ')
		b.WriteString(blk.Activity)
		if blk.Location != "" {
			b.WriteString("（")
			b.WriteString(blk.Location)
			b.WriteString("）")
		}
	}
	return b.String()
}

func (p *DailyPlan) Describe() string {
	if p == nil {
		return "（暂无计划）"
	}
	return describeBlocks(p.BroadStrokes)
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "星期一",
	time.Tuesday:   "星期二",
	time.Wednesday: "星期三",
	time.Thursday:  "星期四",
	time.Friday:    "星期五",
	time.Saturday:  "星期六",
	time.Sunday:    "星期日",
}

// Planner produces and revises daily plans through the inference service.
// Every failure path degrades to an empty or unchanged result.
type Planner struct {
	client llm.Client
	logger *slog.Logger
}

func NewPlanner(client llm.Client, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, logger: logger}
}

func validBlocks(agentName string, logger *slog.Logger, blocks []PlanBlock) []PlanBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if b.DurationMinutes() <= 0 {
			logger.Warn("dropping invalid plan block",
				"agent", agentName, "start", b.Start, "end", b.End, "activity", b.Activity)
			continue
		}
		out = append(out, b)
	}
	return out
}

// GenerateDailyPlan asks for 4-6 broad-stroke blocks for the date. On any
// inference or parse failure it returns an empty plan for that date.
func (pl *Planner) GenerateDailyPlan(ctx context.Context, a *Agent, date time.Time) *DailyPlan {
	plan := NewDailyPlan(date.Format("2006-01-02"))

	prompt := llm.DailyPlanPrompt(llm.DailyPlanPromptParams{
		Name:         a.Name,
		Age:          a.Age,
		Occupation:   a.Occupation,
		Personality:  a.Personality.Description(),
		Date:         plan.Date,
		Weekday:      weekdayNames[date.Weekday()],
		HomeLocation: a.Home,
		WorkLocation: a.Workplace,
		Balance:      a.Balance(),
	})
	text, err := pl.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.8, MaxTokens: 800})
	if err != nil {
		pl.logger.Warn("daily plan generation failed", "agent", a.Name, "error", err)
		return plan
	}

	var parsed struct {
		Plan []PlanBlock `json:"plan"`
	}
	if !llm.ExtractInto(text, &parsed) {
		pl.logger.Warn("daily plan response unparsable", "agent", a.Name)
		return plan
	}
	plan.BroadStrokes = validBlocks(a.Name, pl.logger, parsed.Plan)
	return plan
}

// DecomposeToHourly splits a block into at-most-hour pieces. Blocks of an
// hour or less pass through; on failure the block comes back unchanged.
func (pl *Planner) DecomposeToHourly(ctx context.Context, a *Agent, block PlanBlock) []PlanBlock {
	if block.DurationMinutes() <= 60 {
		return []PlanBlock{block}
	}
	prompt := llm.HourlyDecomposePrompt(block.Start, block.End, block.Activity, block.Location)
	text, err := pl.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.7, MaxTokens: 600})
	if err != nil {
		pl.logger.Warn("hourly decomposition failed", "agent", a.Name, "error", err)
		return []PlanBlock{block}
	}

	var parsed struct {
		Tasks []struct {
			Start    string `json:"start"`
			End      string `json:"end"`
			Task     string `json:"task"`
			Location string `json:"location"`
		} `json:"tasks"`
	}
	if !llm.ExtractInto(text, &parsed) || len(parsed.Tasks) == 0 {
		return []PlanBlock{block}
	}
	blocks := make([]PlanBlock, 0, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		loc := t.Location
		if loc == "" {
			loc = block.Location
		}
		blocks = append(blocks, PlanBlock{Start: t.Start, End: t.End, Activity: t.Task, Location: loc})
	}
	blocks = validBlocks(a.Name, pl.logger, blocks)
	if len(blocks) == 0 {
		return []PlanBlock{block}
	}
	return blocks
}

// DecomposeToTasks splits an hourly block into 5-15 minute micro tasks.
func (pl *Planner) DecomposeToTasks(ctx context.Context, a *Agent, block PlanBlock) []PlanBlock {
	if block.DurationMinutes() <= 15 {
		return []PlanBlock{block}
	}
	prompt := llm.TaskDecomposePrompt(block.Start, block.End, block.Activity)
	text, err := pl.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.7, MaxTokens: 600})
	if err != nil {
		pl.logger.Warn("task decomposition failed", "agent", a.Name, "error", err)
		return []PlanBlock{block}
	}

	var parsed struct {
		MicroTasks []struct {
			Start           string `json:"start"`
			DurationMinutes int    `json:"duration_minutes"`
			Task            string `json:"task"`
		} `json:"micro_tasks"`
	}
	if !llm.ExtractInto(text, &parsed) || len(parsed.MicroTasks) == 0 {
		return []PlanBlock{block}
	}
	blocks := make([]PlanBlock, 0, len(parsed.MicroTasks))
	for _, t := range parsed.MicroTasks {
		start, ok := parseClockMinutes(t.Start)
		if !ok || t.DurationMinutes <= 0 {
			continue
		}
		end := start + t.DurationMinutes
		if end > 24*60-1 {
			end = 24*60 - 1
		}
		blocks = append(blocks, PlanBlock{
			Start:    minutesToClock(start),
			End:      minutesToClock(end),
			Activity: t.Task,
			Location: block.Location,
		})
	}
	if len(blocks) == 0 {
		return []PlanBlock{block}
	}
	return blocks
}

func minutesToClock(m int) string {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}

// ReplanFromNow asks for a replacement for the rest of the day after
// whatHappened. Returns nil on failure so callers keep their old tail.
func (pl *Planner) ReplanFromNow(ctx context.Context, a *Agent, now time.Time, whatHappened string) []PlanBlock {
	plan := a.Plan()
	remaining := "（暂无计划）"
	if plan != nil {
		remaining = describeBlocks(plan.RemainingBlocks(now))
	}
	prompt := llm.ReplanPrompt(a.Name, whatHappened, now.Format("15:04"), remaining)
	text, err := pl.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.8, MaxTokens: 800})
	if err != nil {
		pl.logger.Warn("replan failed", "agent", a.Name, "error", err)
		return nil
	}

	var parsed struct {
		NewPlan []PlanBlock `json:"new_plan"`
	}
	if !llm.ExtractInto(text, &parsed) {
		pl.logger.Warn("replan response unparsable", "agent", a.Name)
		return nil
	}
	return validBlocks(a.Name, pl.logger, parsed.NewPlan)
}
