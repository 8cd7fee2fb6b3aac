package action

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/task"
	"github.com/mattjoyce/orchestra-gw/internal/workflow"
)

func testRouter() *Router {
	caps := agent.Capabilities{
		RepositoryAnalyzer: agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
			return &agent.Output{Summary: "repo analyzed", Structure: map[string]any{}}, nil
		}),
		RequirementsExtractor: agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
			return &agent.Output{Summary: "requirements extracted", Requirements: map[string]any{}}, nil
		}),
		ArchitectureDesigner: agent.CapabilityFunc(func(_ context.Context, _ agent.Input) (*agent.Output, error) {
			return &agent.Output{Summary: "architecture designed", Architecture: map[string]any{}}, nil
		}),
	}
	tasks := task.New(agent.NewRegistry(caps), nil, 0)
	return NewRouter(tasks, workflow.New(tasks, nil))
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{ExecuteAgentTask, ExecuteWorkflow, RequestHumanApproval, RequestHumanInput} {
		assert.True(t, Allowed(name), name)
	}
	assert.False(t, Allowed("executeagenttask"))
	assert.False(t, Allowed(""))
	assert.False(t, Allowed("dropTables"))
}

func TestDispatchUnknownAction(t *testing.T) {
	r := testRouter()

	res, err := r.Dispatch(context.Background(), "frobnicate", nil, "tenant-a")

	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Contains(t, err.Error(), `"frobnicate"`)
}

func TestDispatchNotImplemented(t *testing.T) {
	r := testRouter()

	for _, name := range []string{RequestHumanApproval, RequestHumanInput} {
		t.Run(name, func(t *testing.T) {
			res, err := r.Dispatch(context.Background(), name, nil, "tenant-a")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrNotImplemented)
		})
	}
}

func TestDispatchAgentTask(t *testing.T) {
	r := testRouter()

	params := json.RawMessage(`{
		"agent_type": "repository_analyzer",
		"task_description": "Look at the tree",
		"parameters": {"repository_path": "src"}
	}`)
	res, err := r.Dispatch(context.Background(), ExecuteAgentTask, params, "tenant-a")
	require.NoError(t, err)

	tr, ok := res.(task.Result)
	require.True(t, ok, "expected task.Result, got %T", res)
	assert.True(t, tr.Success)
	require.NotNil(t, tr.Result)
	assert.Equal(t, "repo analyzed", tr.Result.Summary)
}

func TestDispatchAgentTaskMalformedParameters(t *testing.T) {
	r := testRouter()

	// Type mismatch at decode time must come back as a structured result,
	// not a Go error.
	params := json.RawMessage(`{"agent_type": 42}`)
	res, err := r.Dispatch(context.Background(), ExecuteAgentTask, params, "tenant-a")
	require.NoError(t, err)

	tr, ok := res.(task.Result)
	require.True(t, ok)
	assert.False(t, tr.Success)
	assert.Contains(t, tr.Error, "Validation error: invalid parameters")
}

func TestDispatchAgentTaskEmptyParameters(t *testing.T) {
	r := testRouter()

	// Absent parameters decode as an empty request, which then fails
	// request validation inside the executor.
	res, err := r.Dispatch(context.Background(), ExecuteAgentTask, nil, "tenant-a")
	require.NoError(t, err)

	tr, ok := res.(task.Result)
	require.True(t, ok)
	assert.False(t, tr.Success)
	assert.Contains(t, tr.Error, "Validation error: ")
}

func TestDispatchWorkflow(t *testing.T) {
	r := testRouter()

	params := json.RawMessage(`{"workflow_type": "architecture_only"}`)
	res, err := r.Dispatch(context.Background(), ExecuteWorkflow, params, "tenant-a")
	require.NoError(t, err)

	wr, ok := res.(workflow.Result)
	require.True(t, ok, "expected workflow.Result, got %T", res)
	assert.True(t, wr.Success)
	assert.Len(t, wr.StepsCompleted, 3)
	assert.Contains(t, wr.Results, "architecture_design")
}

func TestDispatchWorkflowMalformedParameters(t *testing.T) {
	r := testRouter()

	params := json.RawMessage(`{"workflow_type": ["not", "a", "string"]}`)
	res, err := r.Dispatch(context.Background(), ExecuteWorkflow, params, "tenant-a")
	require.NoError(t, err)

	wr, ok := res.(workflow.Result)
	require.True(t, ok)
	assert.False(t, wr.Success)
	assert.Contains(t, wr.Error, "Validation error: invalid parameters")
	assert.NotNil(t, wr.StepsCompleted)
	assert.Empty(t, wr.StepsCompleted)
}
