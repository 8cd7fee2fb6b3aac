package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// requirement-ish markers, checked case-insensitively per sentence.
var requirementMarkers = []string{"must", "should", "shall", "needs to", "need to", "required"}

// RequirementsExtractor derives a requirements bundle from a project
// description. Sentences carrying an obligation marker become functional
// requirements; the rest are kept as notes.
type RequirementsExtractor struct{}

func NewRequirementsExtractor() *RequirementsExtractor {
	return &RequirementsExtractor{}
}

func (e *RequirementsExtractor) Invoke(ctx context.Context, in agent.Input) (*agent.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(in.Description)

	var functional, notes []string
	for _, sentence := range splitSentences(desc) {
		lower := strings.ToLower(sentence)
		marked := false
		for _, marker := range requirementMarkers {
			if strings.Contains(lower, marker) {
				marked = true
				break
			}
		}
		if marked {
			functional = append(functional, sentence)
		} else {
			notes = append(notes, sentence)
		}
	}

	requirements := map[string]any{
		"description": desc,
		"functional":  toAnySlice(functional),
		"notes":       toAnySlice(notes),
		"count":       len(functional),
	}
	if len(in.Context) > 0 {
		requirements["context_keys"] = contextKeys(in.Context)
	}

	return &agent.Output{
		Summary:      fmt.Sprintf("Extracted %d requirements from description", len(functional)),
		Requirements: requirements,
	}, nil
}

func splitSentences(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func contextKeys(ctx map[string]any) []any {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return toAnySlice(keys)
}
