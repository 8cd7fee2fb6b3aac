package agent

import (
	"context"
	"errors"
)

// Type identifies a capability provider. The set is closed; adding a new
// agent means adding a constant here, a field to Capabilities, and a case
// to Registry.Resolve.
type Type string

const (
	TypeRepositoryAnalyzer    Type = "repository_analyzer"
	TypeRequirementsExtractor Type = "requirements_extractor"
	TypeArchitectureDesigner  Type = "architecture_designer"
	TypeImplementationPlanner Type = "implementation_planner"
	TypeValidator             Type = "validator"
)

// All returns the known agent types in declaration order.
func All() []Type {
	return []Type{
		TypeRepositoryAnalyzer,
		TypeRequirementsExtractor,
		TypeArchitectureDesigner,
		TypeImplementationPlanner,
		TypeValidator,
	}
}

// Valid reports whether t is a member of the closed set.
func (t Type) Valid() bool {
	switch t {
	case TypeRepositoryAnalyzer, TypeRequirementsExtractor, TypeArchitectureDesigner,
		TypeImplementationPlanner, TypeValidator:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// ErrNotFound is returned by Registry.Resolve for an unregistered type.
var ErrNotFound = errors.New("agent not found")

// Input is the semantically-typed bundle handed to a capability. Which
// fields are meaningful depends on the agent type:
//
//	repository_analyzer:    RepositoryPath, FocusAreas
//	requirements_extractor: Description, Context
//	architecture_designer:  Requirements, Constraints
//	implementation_planner: Architecture, Requirements
//	validator:              Implementation, Requirements
//
// Unused fields are left zero. Capabilities must tolerate empty maps; the
// pipeline substitutes empty defaults when an upstream field is missing.
type Input struct {
	RepositoryPath string
	FocusAreas     []string
	Description    string
	Context        map[string]any
	Requirements   map[string]any
	Constraints    map[string]any
	Architecture   map[string]any
	Implementation map[string]any
}

// Output is a capability's structured result. Summary is always set on
// success; the remaining fields are agent-specific and optional.
type Output struct {
	Summary        string         `json:"summary"`
	Structure      map[string]any `json:"structure,omitempty"`
	Requirements   map[string]any `json:"requirements,omitempty"`
	Architecture   map[string]any `json:"architecture,omitempty"`
	Plan           map[string]any `json:"plan,omitempty"`
	Issues         []string       `json:"issues,omitempty"`
	Detail         map[string]any `json:"detail,omitempty"`
}

// Capability is one external asynchronous operation. Implementations must
// honor ctx cancellation: the executor enforces its deadline through the
// context it passes here.
type Capability interface {
	Invoke(ctx context.Context, in Input) (*Output, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, in Input) (*Output, error)

func (f CapabilityFunc) Invoke(ctx context.Context, in Input) (*Output, error) {
	return f(ctx, in)
}
