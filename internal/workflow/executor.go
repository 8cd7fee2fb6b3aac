// Package workflow runs fixed multi-stage pipelines, threading each
// stage's output into the next stage's input.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/log"
	"github.com/mattjoyce/orchestra-gw/internal/quota"
	"github.com/mattjoyce/orchestra-gw/internal/task"
)

// Executor runs workflow shapes. Stages run strictly sequentially: each
// stage's input is built from prior outputs, so there is no useful
// parallelism inside one run. Each stage goes through the task executor's
// deadline and classification path with its own independent timeout.
type Executor struct {
	tasks  *task.Executor
	gate   quota.Gate
	logger *slog.Logger
}

// New creates a workflow Executor sharing the task executor's registry
// and deadline. A nil gate disables quota checks.
func New(tasks *task.Executor, gate quota.Gate) *Executor {
	return &Executor{
		tasks:  tasks,
		gate:   gate,
		logger: log.WithComponent("workflow"),
	}
}

// Run executes the shape for req.WorkflowType. On the first stage failure
// the pipeline halts: the result carries the error, the names of stages
// that finished, and those stages' outputs — nothing from the failed
// stage onward. Completed stages are not rolled back.
func (e *Executor) Run(ctx context.Context, req Request, tenantID string) Result {
	start := time.Now()
	res := Result{
		WorkflowType:   req.WorkflowType,
		StepsCompleted: []string{},
	}

	fail := func(msg string) Result {
		res.Success = false
		res.Error = msg
		res.ExecutionTimeMS = time.Since(start).Milliseconds()
		return res
	}

	if err := req.Validate(); err != nil {
		return fail(fmt.Sprintf("Validation error: %v", err))
	}

	// Shape resolution precedes the quota gate: an unknown or
	// unimplemented workflow name must not consume budget checks.
	sh, err := shapeFor(req.WorkflowType)
	if err != nil {
		return fail(fmt.Sprintf("Validation error: %v", err))
	}

	if e.gate != nil {
		status, gerr := e.gate.CheckBudget(ctx, tenantID)
		if gerr != nil {
			return fail(fmt.Sprintf("Workflow execution error: %v", gerr))
		}
		if !status.CanExecute {
			e.logger.Warn("workflow denied by quota gate", "tenant", tenantID, "workflow", req.WorkflowType)
			return fail("Budget limit exceeded for workflow execution")
		}
	}

	res.Results = make(map[string]*agent.Output, len(sh.stages))
	prior := make(map[string]*agent.Output, len(sh.stages))

	for _, st := range sh.stages {
		stageStart := time.Now()
		out, outcome, ierr := e.tasks.Invoke(ctx, st.agentType, st.input(req, prior))

		switch outcome {
		case task.OutcomeOK:
			// fall through to record the stage
		case task.OutcomeTimedOut:
			e.logger.Warn("workflow stage timed out",
				"tenant", tenantID, "workflow", req.WorkflowType, "stage", st.name,
				"completed", len(res.StepsCompleted))
			return fail(fmt.Sprintf("Workflow stage %s timed out", st.name))
		default:
			if errors.Is(ierr, agent.ErrNotFound) {
				return fail(fmt.Sprintf("Agent %s not available", st.agentType))
			}
			e.logger.Warn("workflow stage failed",
				"tenant", tenantID, "workflow", req.WorkflowType, "stage", st.name, "error", ierr)
			return fail(fmt.Sprintf("Workflow stage %s failed: %v", st.name, ierr))
		}

		prior[st.name] = out
		res.Results[st.name] = out
		res.StepsCompleted = append(res.StepsCompleted, st.name)
		e.logger.Debug("workflow stage completed",
			"workflow", req.WorkflowType, "stage", st.name,
			"duration_ms", time.Since(stageStart).Milliseconds())
	}

	res.Success = true
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	e.logger.Info("workflow completed",
		"tenant", tenantID, "workflow", req.WorkflowType,
		"steps", len(res.StepsCompleted), "duration_ms", res.ExecutionTimeMS)
	return res
}

// StageNames returns the declared sequence for t, or nil if t has no
// implemented shape.
func StageNames(t Type) []string {
	sh, err := shapeFor(t)
	if err != nil {
		return nil
	}
	return sh.stageNames()
}
