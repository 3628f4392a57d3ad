package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	firstObjectRe = regexp.MustCompile(`\{[\s\S]*?\}`)
	lastBraceRe   = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractJSON pulls a JSON object out of free-form model output. Strategies
// are tried in order: the whole text as JSON, the contents of a fenced code
// block, then a raw brace-delimited span. Returns ok=false when no strategy
// yields a valid object.
func ExtractJSON(text string) ([]byte, bool) {
	for _, candidate := range candidates(text) {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
			continue
		}
		if json.Valid([]byte(trimmed)) {
			return []byte(trimmed), true
		}
	}
	return nil, false
}

func candidates(text string) []string {
	out := []string{text}
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		out = append(out, m[1])
	}
	if m := firstObjectRe.FindString(text); m != "" {
		out = append(out, m)
	}
	// Non-greedy scan stops at the first closing brace and loses nested
	// objects, so fall back to the widest span.
	if m := lastBraceRe.FindString(text); m != "" {
		out = append(out, m)
	}
	return out
}

// ExtractInto unmarshals the first extractable JSON object into v.
func ExtractInto(text string, v any) bool {
	raw, ok := ExtractJSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
