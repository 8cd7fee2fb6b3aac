package builtin

import (
	"context"
	"fmt"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// ArchitectureDesigner proposes a component layout from a requirements
// bundle and constraints. The heuristic is deliberately simple: one
// component per functional requirement bucket plus the usual edges.
type ArchitectureDesigner struct{}

func NewArchitectureDesigner() *ArchitectureDesigner {
	return &ArchitectureDesigner{}
}

func (d *ArchitectureDesigner) Invoke(ctx context.Context, in agent.Input) (*agent.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	functional, _ := in.Requirements["functional"].([]any)

	components := []any{
		map[string]any{"name": "api", "role": "request handling and validation"},
		map[string]any{"name": "core", "role": "domain logic"},
		map[string]any{"name": "storage", "role": "persistence"},
	}
	for i := range functional {
		components = append(components, map[string]any{
			"name": fmt.Sprintf("feature_%d", i+1),
			"role": functional[i],
		})
	}

	style := "layered"
	if len(functional) > 5 {
		style = "modular"
	}

	architecture := map[string]any{
		"style":      style,
		"components": components,
	}
	if len(in.Constraints) > 0 {
		architecture["constraints"] = in.Constraints
	}

	return &agent.Output{
		Summary:      fmt.Sprintf("Designed %s architecture with %d components", style, len(components)),
		Architecture: architecture,
	}, nil
}
