// Package task runs single agent tasks under a deadline and a quota gate.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/log"
	"github.com/mattjoyce/orchestra-gw/internal/quota"
)

// DefaultTimeout is the hard per-task deadline. It is fixed by contract,
// not configurable per call; tests shorten it through New.
const DefaultTimeout = 300 * time.Second

// Outcome classifies how a capability invocation ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimedOut
	OutcomeFailed
)

// Executor dispatches one task to one capability. All failure paths
// converge to a structured Result; Execute never panics or returns a Go
// error.
type Executor struct {
	registry *agent.Registry
	gate     quota.Gate
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates an Executor. A nil gate disables quota checks; a
// non-positive timeout falls back to DefaultTimeout.
func New(registry *agent.Registry, gate quota.Gate, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		registry: registry,
		gate:     gate,
		timeout:  timeout,
		logger:   log.WithComponent("task"),
	}
}

// Execute runs one task for a tenant. Order of gates matters: validation,
// then quota, then registry resolution, then the deadline-bounded
// invocation. A denied tenant never touches the registry.
func (e *Executor) Execute(ctx context.Context, req Request, tenantID string) Result {
	start := time.Now()
	res := Result{
		AgentType:       req.AgentType,
		TaskDescription: req.TaskDescription,
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
	res.TaskDescription = req.TaskDescription

	if e.gate != nil {
		status, err := e.gate.CheckBudget(ctx, tenantID)
		if err != nil {
			return fail(fmt.Sprintf("Execution error: %v", err))
		}
		if !status.CanExecute {
			e.logger.Warn("task denied by quota gate", "tenant", tenantID, "agent", req.AgentType)
			return fail("Budget limit exceeded")
		}
	}

	out, outcome, err := e.Invoke(ctx, req.AgentType, BuildInput(req))
	switch outcome {
	case OutcomeOK:
		res.Success = true
		res.Result = out
	case OutcomeTimedOut:
		e.logger.Warn("task timed out", "tenant", tenantID, "agent", req.AgentType, "timeout", e.timeout)
		return fail("Agent execution timed out")
	default:
		if errors.Is(err, agent.ErrNotFound) {
			return fail(fmt.Sprintf("Agent %s not available", req.AgentType))
		}
		e.logger.Warn("task failed", "tenant", tenantID, "agent", req.AgentType, "error", err)
		return fail(fmt.Sprintf("Execution error: %v", err))
	}

	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	e.logger.Info("task completed", "tenant", tenantID, "agent", req.AgentType, "duration_ms", res.ExecutionTimeMS)
	return res
}

// Invoke resolves t and runs its capability under the executor's
// deadline. The pipeline executor reuses this path per stage after doing
// its own quota check.
func (e *Executor) Invoke(ctx context.Context, t agent.Type, in agent.Input) (*agent.Output, Outcome, error) {
	capability, err := e.registry.Resolve(t)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	return e.invoke(ctx, capability, in)
}

// Timeout returns the per-invocation deadline in effect.
func (e *Executor) Timeout() time.Duration { return e.timeout }

type reply struct {
	out *agent.Output
	err error
}

// invoke runs the capability in its own goroutine so deadline expiry can
// be observed even if the capability ignores cancellation. Cancelling the
// context is the only cancellation the executor performs; side effects
// already caused by the capability are not rolled back.
func (e *Executor) invoke(ctx context.Context, c agent.Capability, in agent.Input) (*agent.Output, Outcome, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("capability panic: %v", r)}
			}
		}()
		out, err := c.Invoke(cctx, in)
		done <- reply{out: out, err: err}
	}()

	select {
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, OutcomeTimedOut, cctx.Err()
		}
		return nil, OutcomeFailed, cctx.Err()
	case rep := <-done:
		if rep.err != nil {
			if errors.Is(rep.err, context.DeadlineExceeded) {
				return nil, OutcomeTimedOut, rep.err
			}
			return nil, OutcomeFailed, rep.err
		}
		if rep.out == nil {
			return nil, OutcomeFailed, fmt.Errorf("capability returned nil output")
		}
		return rep.out, OutcomeOK, nil
	}
}

// BuildInput projects the task's free-form parameters into the typed
// bundle for the agent type. Missing entries become zero values; the
// capabilities tolerate empty input.
func BuildInput(req Request) agent.Input {
	p := req.Parameters
	var in agent.Input
	switch req.AgentType {
	case agent.TypeRepositoryAnalyzer:
		in.RepositoryPath = stringParam(p, "repository_path", ".")
		in.FocusAreas = stringsParam(p, "focus_areas")
	case agent.TypeRequirementsExtractor:
		in.Description = req.TaskDescription
		in.Context = mapParam(p, "context")
	case agent.TypeArchitectureDesigner:
		in.Requirements = mapParam(p, "requirements")
		in.Constraints = mapParam(p, "constraints")
	case agent.TypeImplementationPlanner:
		in.Architecture = mapParam(p, "architecture")
		in.Requirements = mapParam(p, "requirements")
	case agent.TypeValidator:
		in.Implementation = mapParam(p, "implementation")
		in.Requirements = mapParam(p, "requirements")
	}
	return in
}

func stringParam(p map[string]any, key, fallback string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringsParam(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapParam(p map[string]any, key string) map[string]any {
	if m, ok := p[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
