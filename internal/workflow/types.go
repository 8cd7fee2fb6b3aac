package workflow

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

const maxRequirementsLen = 2000

// Type names a workflow shape. The set is closed. Two of the declared
// values have no stage sequence yet and are rejected as unimplemented
// rather than guessed at.
type Type string

const (
	TypeFullAnalysis       Type = "full_analysis"
	TypeArchitectureOnly   Type = "architecture_only"
	TypeImplementationPlan Type = "implementation_plan"
	TypeValidationOnly     Type = "validation_only"
)

// Declared reports whether t is a member of the declared enumeration,
// implemented or not.
func (t Type) Declared() bool {
	switch t {
	case TypeFullAnalysis, TypeArchitectureOnly, TypeImplementationPlan, TypeValidationOnly:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Declared returns every declared workflow type in presentation order.
// Use StageNames to tell implemented shapes from declared-only ones.
func Declared() []Type {
	return []Type{TypeFullAnalysis, TypeArchitectureOnly, TypeImplementationPlan, TypeValidationOnly}
}

// Request describes one workflow run.
type Request struct {
	WorkflowType   Type   `json:"workflow_type"`
	RepositoryPath string `json:"repository_path,omitempty"`
	Requirements   string `json:"requirements,omitempty"`
}

// Validate checks the request shape and normalizes the repository path:
// ".." is rejected, a single leading "/" is stripped, and a path that is
// empty after stripping is invalid. An absent path is fine; it defaults
// to "." at stage-input construction.
func (r *Request) Validate() error {
	if !r.WorkflowType.Declared() {
		return fmt.Errorf("unknown workflow type: %q", r.WorkflowType)
	}

	if r.RepositoryPath != "" {
		if strings.Contains(r.RepositoryPath, "..") {
			return fmt.Errorf("repository path cannot contain '..'")
		}
		r.RepositoryPath = strings.TrimPrefix(r.RepositoryPath, "/")
		if r.RepositoryPath == "" {
			return fmt.Errorf("repository path cannot be empty")
		}
	}

	r.Requirements = strings.TrimSpace(r.Requirements)
	if len(r.Requirements) > maxRequirementsLen {
		return fmt.Errorf("requirements exceed %d characters", maxRequirementsLen)
	}
	return nil
}

// Result is the outcome of one workflow run. Results holds outputs for
// completed stages only, keyed by stage name; StepsCompleted is always a
// strict prefix of the shape's declared sequence (the full sequence on
// success).
type Result struct {
	Success         bool                     `json:"success"`
	WorkflowType    Type                     `json:"workflow_type"`
	Results         map[string]*agent.Output `json:"results,omitempty"`
	Error           string                   `json:"error,omitempty"`
	StepsCompleted  []string                 `json:"steps_completed"`
	ExecutionTimeMS int64                    `json:"execution_time_ms"`
}
