package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ai-society/society/internal/llm"
)

const (
	DefaultReflectionThreshold  = 150.0
	reflectionMemoryWindow      = 50
	reflectionMaxQuestions      = 3
	reflectionInsightImportance = 8.0
)

type ReflectionResult struct {
	Questions       []string
	Insights        []string
	MemoriesCreated int
}

// ReflectionEngine periodically distills recent memories into high-level
// insight memories. It triggers on accumulated importance and only a run
// that produces questions resets the counter, so a failed run retries on
// the next tick.
type ReflectionEngine struct {
	client    llm.Client
	threshold float64
	logger    *slog.Logger
}

func NewReflectionEngine(client llm.Client, threshold float64, logger *slog.Logger) *ReflectionEngine {
	if threshold <= 0 {
		threshold = DefaultReflectionThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReflectionEngine{client: client, threshold: threshold, logger: logger}
}

func (e *ReflectionEngine) ShouldReflect(a *Agent) bool {
	return a.Memory.AccumulatedImportance() >= e.threshold
}

// RunReflection asks for salient questions over the recent memories, then
// one insight per question, and stores each insight as a reflection
// memory. An empty question stage aborts without touching the counter.
func (e *ReflectionEngine) RunReflection(ctx context.Context, a *Agent, now time.Time) ReflectionResult {
	var result ReflectionResult

	questions := e.generateQuestions(ctx, a)
	if len(questions) == 0 {
		e.logger.Warn("reflection produced no questions", "agent", a.Name)
		return result
	}
	result.Questions = questions

	for _, q := range questions {
		insight, err := e.generateInsight(ctx, a, q)
		if err != nil {
			e.logger.Warn("reflection insight failed", "agent", a.Name, "question", q, "error", err)
			continue
		}
		m := NewMemory(MemoryReflection, insight, reflectionInsightImportance)
		m.OccurredAt = now
		a.Memory.Add(m)
		result.Insights = append(result.Insights, insight)
		result.MemoriesCreated++
	}

	a.Memory.ResetAccumulatedImportance()
	return result
}

func (e *ReflectionEngine) generateQuestions(ctx context.Context, a *Agent) []string {
	recent := a.Memory.RetrieveRecent(reflectionMemoryWindow)
	if len(recent) == 0 {
		return nil
	}
	var b strings.Builder
	for i, m := range recent {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(m.Content)
	}

	prompt := llm.ReflectionQuestionsPrompt(a.Name, b.String())
	text, err := e.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		e.logger.Warn("reflection questions failed", "agent", a.Name, "error", err)
		return nil
	}

	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, "?") && !strings.Contains(line, "？") {
			continue
		}
		questions = append(questions, line)
		if len(questions) == reflectionMaxQuestions {
			break
		}
	}
	return questions
}

func (e *ReflectionEngine) generateInsight(ctx context.Context, a *Agent, question string) (string, error) {
	relevant := a.Memory.RetrieveRelevant(question, 10, 0.1)
	var b strings.Builder
	for i, sm := range relevant {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(sm.Memory.Content)
	}
	memories := b.String()
	if memories == "" {
		memories = "（暂无相关记忆）"
	}

	prompt := llm.ReflectionInsightPrompt(a.Name, question, memories)
	text, err := e.client.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.7, MaxTokens: 200})
	if err != nil {
		return "", err
	}
	insight := strings.TrimSpace(text)
	if insight == "" {
		return "", llm.ErrEmptyCompletion
	}
	return insight, nil
}
