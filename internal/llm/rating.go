package llm

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
)

var digitRe = regexp.MustCompile(`\d+`)

const defaultImportance = 5.0

// RateImportance asks the model to score a memory 1-10. Any failure falls
// back to a neutral 5 so memory recording never blocks on inference.
func RateImportance(ctx context.Context, client Client, content string) float64 {
	text, err := client.Generate(ctx, Request{
		Prompt:      ImportanceRatingPrompt(content),
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		slog.Warn("importance rating failed", "error", err)
		return defaultImportance
	}
	m := digitRe.FindString(text)
	if m == "" {
		return defaultImportance
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 || n > 10 {
		return defaultImportance
	}
	return float64(n)
}
