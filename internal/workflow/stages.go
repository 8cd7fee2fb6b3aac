package workflow

import (
	"fmt"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// Stage names, also the keys of Result.Results.
const (
	StageRepositoryAnalysis     = "repository_analysis"
	StageRequirementsExtraction = "requirements_extraction"
	StageArchitectureDesign     = "architecture_design"
	StageImplementationPlanning = "implementation_planning"
	StageValidation             = "validation"
)

// stage binds a name to an agent and an input-construction rule. The rule
// receives the original request plus all prior outputs; every upstream
// field it projects has an empty default, so a missing field degrades the
// stage input rather than failing the pipeline.
type stage struct {
	name      string
	agentType agent.Type
	input     func(req Request, prior map[string]*agent.Output) agent.Input
}

// shape is a fixed ordered stage sequence for one workflow type.
type shape struct {
	stages []stage
}

func (s shape) stageNames() []string {
	names := make([]string, len(s.stages))
	for i, st := range s.stages {
		names[i] = st.name
	}
	return names
}

// shapeFor returns the stage sequence for t. Declared types without a
// sequence are rejected here, before any quota check or stage run.
func shapeFor(t Type) (shape, error) {
	switch t {
	case TypeFullAnalysis:
		return shape{
			stages: []stage{
				analysisStage(),
				extractionStage("Analyze repository"),
				designStage(),
				planningStage(),
				validationStage(),
			},
		}, nil
	case TypeArchitectureOnly:
		return shape{
			stages: []stage{
				analysisStage(),
				extractionStage("Design architecture"),
				designStage(),
			},
		}, nil
	case TypeImplementationPlan, TypeValidationOnly:
		return shape{}, fmt.Errorf("workflow type %q is not implemented", t)
	default:
		return shape{}, fmt.Errorf("unknown workflow type: %q", t)
	}
}

func analysisStage() stage {
	return stage{
		name:      StageRepositoryAnalysis,
		agentType: agent.TypeRepositoryAnalyzer,
		input: func(req Request, _ map[string]*agent.Output) agent.Input {
			path := req.RepositoryPath
			if path == "" {
				path = "."
			}
			return agent.Input{RepositoryPath: path}
		},
	}
}

func extractionStage(defaultDescription string) stage {
	return stage{
		name:      StageRequirementsExtraction,
		agentType: agent.TypeRequirementsExtractor,
		input: func(req Request, prior map[string]*agent.Output) agent.Input {
			desc := req.Requirements
			if desc == "" {
				desc = defaultDescription
			}
			return agent.Input{
				Description: desc,
				Context: map[string]any{
					"repository_analysis": prior[StageRepositoryAnalysis],
				},
			}
		},
	}
}

func designStage() stage {
	return stage{
		name:      StageArchitectureDesign,
		agentType: agent.TypeArchitectureDesigner,
		input: func(_ Request, prior map[string]*agent.Output) agent.Input {
			return agent.Input{
				Requirements: requirementsOf(prior[StageRequirementsExtraction]),
				Constraints: map[string]any{
					"repository_structure": structureOf(prior[StageRepositoryAnalysis]),
				},
			}
		},
	}
}

func planningStage() stage {
	return stage{
		name:      StageImplementationPlanning,
		agentType: agent.TypeImplementationPlanner,
		input: func(_ Request, prior map[string]*agent.Output) agent.Input {
			return agent.Input{
				Architecture: architectureOf(prior[StageArchitectureDesign]),
				Requirements: requirementsOf(prior[StageRequirementsExtraction]),
			}
		},
	}
}

func validationStage() stage {
	return stage{
		name:      StageValidation,
		agentType: agent.TypeValidator,
		input: func(_ Request, prior map[string]*agent.Output) agent.Input {
			return agent.Input{
				Implementation: planOf(prior[StageImplementationPlanning]),
				Requirements:   requirementsOf(prior[StageRequirementsExtraction]),
			}
		},
	}
}

// Field projections with empty defaults. These are the declared
// per-transition substitution rules: an absent upstream field yields an
// empty map, never a nil dereference or a pipeline failure.

func requirementsOf(o *agent.Output) map[string]any {
	if o == nil || o.Requirements == nil {
		return map[string]any{}
	}
	return o.Requirements
}

func structureOf(o *agent.Output) map[string]any {
	if o == nil || o.Structure == nil {
		return map[string]any{}
	}
	return o.Structure
}

func architectureOf(o *agent.Output) map[string]any {
	if o == nil || o.Architecture == nil {
		return map[string]any{}
	}
	return o.Architecture
}

func planOf(o *agent.Output) map[string]any {
	if o == nil || o.Plan == nil {
		return map[string]any{}
	}
	return o.Plan
}
