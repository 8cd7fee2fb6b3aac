package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// Validator cross-checks an implementation plan against the extracted
// requirements and reports uncovered ones as issues.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Invoke(ctx context.Context, in agent.Input) (*agent.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	functional, _ := in.Requirements["functional"].([]any)
	steps, _ := in.Implementation["steps"].([]any)

	var planText strings.Builder
	for _, s := range steps {
		if m, ok := s.(map[string]any); ok {
			if t, ok := m["task"].(string); ok {
				planText.WriteString(strings.ToLower(t))
				planText.WriteByte('\n')
			}
		}
	}

	var issues []string
	checked := 0
	for _, r := range functional {
		req, ok := r.(string)
		if !ok || req == "" {
			continue
		}
		checked++
		// A requirement counts as covered if any significant word of it
		// shows up in the plan text.
		if !coveredBy(planText.String(), req) {
			issues = append(issues, fmt.Sprintf("requirement not covered by plan: %s", req))
		}
	}

	summary := fmt.Sprintf("Validated %d requirements, %d issues found", checked, len(issues))
	return &agent.Output{
		Summary: summary,
		Issues:  issues,
		Detail: map[string]any{
			"requirements_checked": checked,
			"plan_steps":           len(steps),
		},
	}, nil
}

func coveredBy(planText, requirement string) bool {
	if planText == "" {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(requirement)) {
		if len(word) < 5 {
			continue
		}
		if strings.Contains(planText, word) {
			return true
		}
	}
	return false
}
