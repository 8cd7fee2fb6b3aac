package task

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

const maxDescriptionLen = 1000

// paramKeyDenylist rejects parameter keys that look like they carry code
// or file access. This is a guard against accidental dangerous-looking
// keys, not a security sandbox.
var paramKeyDenylist = []string{"__import__", "eval", "exec", "open", "file"}

// Request describes one task to dispatch to a single agent.
type Request struct {
	AgentType       agent.Type     `json:"agent_type"`
	TaskDescription string         `json:"task_description"`
	Parameters      map[string]any `json:"parameters,omitempty"`
}

// Validate checks the request shape and normalizes the description.
// Agent type membership is deliberately not checked here: an unknown
// agent is an availability failure, not a malformed request.
func (r *Request) Validate() error {
	r.TaskDescription = strings.TrimSpace(r.TaskDescription)
	if r.TaskDescription == "" {
		return fmt.Errorf("task description cannot be empty")
	}
	if len(r.TaskDescription) > maxDescriptionLen {
		return fmt.Errorf("task description exceeds %d characters", maxDescriptionLen)
	}
	for key := range r.Parameters {
		lower := strings.ToLower(key)
		for _, danger := range paramKeyDenylist {
			if strings.Contains(lower, danger) {
				return fmt.Errorf("parameter key %q contains potentially dangerous content", key)
			}
		}
	}
	return nil
}

// Result is the structured outcome of one task execution. Exactly one of
// Result/Error is populated, matching Success.
type Result struct {
	Success         bool          `json:"success"`
	AgentType       agent.Type    `json:"agent_type"`
	TaskDescription string        `json:"task_description"`
	Result          *agent.Output `json:"result,omitempty"`
	Error           string        `json:"error,omitempty"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
}
