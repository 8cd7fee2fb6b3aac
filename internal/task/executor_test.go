package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/quota"
	"github.com/mattjoyce/orchestra-gw/internal/quota/mocks"
)

func testRegistry(analyzer agent.Capability) *agent.Registry {
	return agent.NewRegistry(agent.Capabilities{
		RepositoryAnalyzer: analyzer,
	})
}

func okCapability(summary string) agent.Capability {
	return agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		return &agent.Output{Summary: summary}, nil
	})
}

func TestExecuteSuccess(t *testing.T) {
	e := New(testRegistry(okCapability("done")), nil, 0)

	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "Analyze the repo",
	}, "tenant-a")

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, "done", res.Result.Summary)
	assert.Equal(t, agent.TypeRepositoryAnalyzer, res.AgentType)
	assert.Equal(t, "Analyze the repo", res.TaskDescription)
}

func TestExecuteValidation(t *testing.T) {
	var calls atomic.Int64
	counting := agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		calls.Add(1)
		return &agent.Output{Summary: "ok"}, nil
	})
	e := New(testRegistry(counting), nil, 0)

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "empty description",
			req:  Request{AgentType: agent.TypeRepositoryAnalyzer, TaskDescription: "   "},
			want: "task description cannot be empty",
		},
		{
			name: "description too long",
			req: Request{
				AgentType:       agent.TypeRepositoryAnalyzer,
				TaskDescription: strings.Repeat("x", 1001),
			},
			want: "task description exceeds 1000 characters",
		},
		{
			name: "dangerous parameter key",
			req: Request{
				AgentType:       agent.TypeRepositoryAnalyzer,
				TaskDescription: "legit",
				Parameters:      map[string]any{"use_EVAL_here": true},
			},
			want: "potentially dangerous content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Execute(context.Background(), tt.req, "tenant-a")
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "Validation error: ")
			assert.Contains(t, res.Error, tt.want)
		})
	}

	assert.Equal(t, int64(0), calls.Load(), "invalid requests must not reach the capability")
}

func TestExecuteTrimsDescription(t *testing.T) {
	e := New(testRegistry(okCapability("ok")), nil, 0)

	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "  padded  ",
	}, "tenant-a")

	assert.True(t, res.Success)
	assert.Equal(t, "padded", res.TaskDescription)
}

func TestExecuteQuotaDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var calls atomic.Int64
	counting := agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		calls.Add(1)
		return &agent.Output{Summary: "ok"}, nil
	})

	gate := mocks.NewMockGate(ctrl)
	gate.EXPECT().CheckBudget(gomock.Any(), "tenant-a").
		Return(quota.Status{CanExecute: false, Tenant: "tenant-a"}, nil)

	e := New(testRegistry(counting), gate, 0)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "blocked",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Equal(t, "Budget limit exceeded", res.Error)
	assert.Equal(t, int64(0), calls.Load(), "denied tenant must not reach the capability")
}

func TestExecuteQuotaGateError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gate := mocks.NewMockGate(ctrl)
	gate.EXPECT().CheckBudget(gomock.Any(), "tenant-a").
		Return(quota.Status{}, errors.New("ledger unavailable"))

	e := New(testRegistry(okCapability("ok")), gate, 0)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "task",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Equal(t, "Execution error: ledger unavailable", res.Error)
}

func TestExecuteAgentNotAvailable(t *testing.T) {
	e := New(testRegistry(okCapability("ok")), nil, 0)

	t.Run("unknown type", func(t *testing.T) {
		res := e.Execute(context.Background(), Request{
			AgentType:       agent.Type("nonexistent"),
			TaskDescription: "task",
		}, "tenant-a")

		assert.False(t, res.Success)
		assert.Equal(t, "Agent nonexistent not available", res.Error)
	})

	t.Run("declared but unregistered", func(t *testing.T) {
		res := e.Execute(context.Background(), Request{
			AgentType:       agent.TypeValidator,
			TaskDescription: "task",
		}, "tenant-a")

		assert.False(t, res.Success)
		assert.Equal(t, "Agent validator not available", res.Error)
	})
}

func TestExecuteTimeout(t *testing.T) {
	slow := agent.CapabilityFunc(func(ctx context.Context, _ agent.Input) (*agent.Output, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return &agent.Output{Summary: "too late"}, nil
		}
	})

	e := New(testRegistry(slow), nil, 20*time.Millisecond)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "slow task",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Equal(t, "Agent execution timed out", res.Error)
}

func TestExecuteCapabilityError(t *testing.T) {
	failing := agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		return nil, fmt.Errorf("disk on fire")
	})

	e := New(testRegistry(failing), nil, 0)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "task",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Equal(t, "Execution error: disk on fire", res.Error)
}

func TestExecuteCapabilityPanic(t *testing.T) {
	panicking := agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		panic("boom")
	})

	e := New(testRegistry(panicking), nil, 0)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "task",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "capability panic")
}

func TestExecuteNilOutputIsFailure(t *testing.T) {
	nilOut := agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
		return nil, nil
	})

	e := New(testRegistry(nilOut), nil, 0)
	res := e.Execute(context.Background(), Request{
		AgentType:       agent.TypeRepositoryAnalyzer,
		TaskDescription: "task",
	}, "tenant-a")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "nil output")
}

func TestNewDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(testRegistry(nil), nil, 0).Timeout())
	assert.Equal(t, time.Minute, New(testRegistry(nil), nil, time.Minute).Timeout())
}

func TestBuildInput(t *testing.T) {
	t.Run("repository analyzer", func(t *testing.T) {
		in := BuildInput(Request{
			AgentType: agent.TypeRepositoryAnalyzer,
			Parameters: map[string]any{
				"repository_path": "src/app",
				"focus_areas":     []any{"api", "storage"},
			},
		})
		assert.Equal(t, "src/app", in.RepositoryPath)
		assert.Equal(t, []string{"api", "storage"}, in.FocusAreas)
	})

	t.Run("repository analyzer defaults", func(t *testing.T) {
		in := BuildInput(Request{AgentType: agent.TypeRepositoryAnalyzer})
		assert.Equal(t, ".", in.RepositoryPath)
		assert.Nil(t, in.FocusAreas)
	})

	t.Run("requirements extractor uses description", func(t *testing.T) {
		in := BuildInput(Request{
			AgentType:       agent.TypeRequirementsExtractor,
			TaskDescription: "Build a CLI",
			Parameters:      map[string]any{"context": map[string]any{"lang": "go"}},
		})
		assert.Equal(t, "Build a CLI", in.Description)
		assert.Equal(t, map[string]any{"lang": "go"}, in.Context)
	})

	t.Run("missing maps default to empty", func(t *testing.T) {
		in := BuildInput(Request{AgentType: agent.TypeArchitectureDesigner})
		assert.NotNil(t, in.Requirements)
		assert.NotNil(t, in.Constraints)
		assert.Empty(t, in.Requirements)
	})

	t.Run("validator projection", func(t *testing.T) {
		in := BuildInput(Request{
			AgentType: agent.TypeValidator,
			Parameters: map[string]any{
				"implementation": map[string]any{"steps": []any{"a"}},
				"requirements":   map[string]any{"functional": []any{"b"}},
			},
		})
		assert.Equal(t, map[string]any{"steps": []any{"a"}}, in.Implementation)
		assert.Equal(t, map[string]any{"functional": []any{"b"}}, in.Requirements)
	})
}
