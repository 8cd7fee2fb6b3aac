// Package action validates incoming action names against a closed
// allow-list and dispatches to the task or workflow executor.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/orchestra-gw/internal/log"
	"github.com/mattjoyce/orchestra-gw/internal/task"
	"github.com/mattjoyce/orchestra-gw/internal/workflow"
)

// Allow-listed action names. The two human-loop actions are declared for
// forward compatibility but have no handler here.
const (
	ExecuteAgentTask     = "executeAgentTask"
	ExecuteWorkflow      = "executeWorkflow"
	RequestHumanApproval = "requestHumanApproval"
	RequestHumanInput    = "requestHumanInput"
)

var (
	// ErrUnknownAction marks a name outside the allow-list. This is a
	// client error, distinct from execution failures which come back as
	// structured results.
	ErrUnknownAction = errors.New("unknown action")

	// ErrNotImplemented marks an allow-listed action with no handler.
	ErrNotImplemented = errors.New("action not implemented")
)

// Allowed reports whether name is in the allow-list.
func Allowed(name string) bool {
	switch name {
	case ExecuteAgentTask, ExecuteWorkflow, RequestHumanApproval, RequestHumanInput:
		return true
	}
	return false
}

// Router dispatches validated actions.
type Router struct {
	tasks     *task.Executor
	workflows *workflow.Executor
	logger    *slog.Logger
}

func NewRouter(tasks *task.Executor, workflows *workflow.Executor) *Router {
	return &Router{
		tasks:     tasks,
		workflows: workflows,
		logger:    log.WithComponent("action"),
	}
}

// Dispatch routes one action. Malformed parameter shapes surface as
// structured validation failures inside the result, never as Go errors;
// the returned error is reserved for allow-list rejection and
// not-implemented actions. The result's execution_time_ms is overwritten
// to cover router overhead plus executor time.
func (r *Router) Dispatch(ctx context.Context, name string, parameters json.RawMessage, tenantID string) (any, error) {
	start := time.Now()

	if !Allowed(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	switch name {
	case ExecuteAgentTask:
		var req task.Request
		if err := decodeParams(parameters, &req); err != nil {
			return task.Result{
				Success:         false,
				Error:           fmt.Sprintf("Validation error: %v", err),
				ExecutionTimeMS: time.Since(start).Milliseconds(),
			}, nil
		}
		res := r.tasks.Execute(ctx, req, tenantID)
		res.ExecutionTimeMS = time.Since(start).Milliseconds()
		return res, nil

	case ExecuteWorkflow:
		var req workflow.Request
		if err := decodeParams(parameters, &req); err != nil {
			return workflow.Result{
				Success:         false,
				Error:           fmt.Sprintf("Validation error: %v", err),
				StepsCompleted:  []string{},
				ExecutionTimeMS: time.Since(start).Milliseconds(),
			}, nil
		}
		res := r.workflows.Run(ctx, req, tenantID)
		res.ExecutionTimeMS = time.Since(start).Milliseconds()
		return res, nil

	default:
		// requestHumanApproval / requestHumanInput: declared, no handler.
		r.logger.Info("unimplemented action requested", "action", name, "tenant", tenantID)
		return nil, fmt.Errorf("%w: %q", ErrNotImplemented, name)
	}
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid parameters: %v", err)
	}
	return nil
}
