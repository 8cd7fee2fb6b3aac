package builtin

import (
	"context"
	"fmt"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// ImplementationPlanner turns an architecture into an ordered build plan:
// one phase per component group, bottom-up.
type ImplementationPlanner struct{}

func NewImplementationPlanner() *ImplementationPlanner {
	return &ImplementationPlanner{}
}

func (p *ImplementationPlanner) Invoke(ctx context.Context, in agent.Input) (*agent.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	components, _ := in.Architecture["components"].([]any)

	steps := make([]any, 0, len(components)+2)
	steps = append(steps, map[string]any{"order": 1, "task": "project scaffolding and configuration"})
	for i, c := range components {
		name := fmt.Sprintf("component_%d", i+1)
		if m, ok := c.(map[string]any); ok {
			if n, ok := m["name"].(string); ok && n != "" {
				name = n
			}
		}
		steps = append(steps, map[string]any{
			"order": i + 2,
			"task":  fmt.Sprintf("implement %s", name),
		})
	}
	steps = append(steps, map[string]any{
		"order": len(components) + 2,
		"task":  "integration tests and hardening",
	})

	plan := map[string]any{
		"steps":       steps,
		"total_steps": len(steps),
	}
	if len(in.Requirements) > 0 {
		plan["requirements"] = in.Requirements
	}

	return &agent.Output{
		Summary: fmt.Sprintf("Planned %d implementation steps", len(steps)),
		Plan:    plan,
	}, nil
}
