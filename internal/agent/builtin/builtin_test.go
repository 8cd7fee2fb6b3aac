package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestRepositoryAnalyzer(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":               "package main",
		"internal/core.go":      "package internal",
		"internal/core_test.go": "package internal",
		"docs/readme.md":        "# docs",
		"Makefile":              "all:",
		".git/HEAD":             "ref: refs/heads/main",
	})

	out, err := NewRepositoryAnalyzer(root).Invoke(context.Background(), agent.Input{})
	require.NoError(t, err)

	assert.Contains(t, out.Summary, "5 files")
	assert.Equal(t, 5, out.Structure["files"])
	assert.Equal(t, 2, out.Structure["directories"])

	languages, ok := out.Structure["languages"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, languages["go"])
	assert.Equal(t, 1, languages["md"])

	topLevel, ok := out.Structure["top_level"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{".git", "Makefile", "docs", "internal", "main.go"}, topLevel)
}

func TestRepositoryAnalyzerFocusAreas(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"cmd/app/main.go":        "package main",
		"internal/a.go":          "package internal",
		"internal/a_test.go":     "package internal",
		"internal/sub/b_test.go": "package sub",
	})

	out, err := NewRepositoryAnalyzer(root).Invoke(context.Background(), agent.Input{
		FocusAreas: []string{"**/*_test.go", "cmd/**"},
	})
	require.NoError(t, err)

	matches, ok := out.Structure["focus_matches"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, matches["**/*_test.go"])
	assert.Equal(t, 1, matches["cmd/**"])
}

func TestRepositoryAnalyzerSubpath(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"svc/api/handler.go": "package api",
		"other/ignored.txt":  "x",
	})

	out, err := NewRepositoryAnalyzer(root).Invoke(context.Background(), agent.Input{
		RepositoryPath: "svc",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Structure["files"])
}

func TestRepositoryAnalyzerMissingPath(t *testing.T) {
	_, err := NewRepositoryAnalyzer(t.TempDir()).Invoke(context.Background(), agent.Input{
		RepositoryPath: "does-not-exist",
	})
	assert.Error(t, err)
}

func TestRequirementsExtractor(t *testing.T) {
	out, err := NewRequirementsExtractor().Invoke(context.Background(), agent.Input{
		Description: "The service must authenticate callers. It should log every request. We like Go.",
		Context:     map[string]any{"lang": "go", "audience": "internal"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Extracted 2 requirements from description", out.Summary)
	assert.Equal(t, 2, out.Requirements["count"])

	functional, ok := out.Requirements["functional"].([]any)
	require.True(t, ok)
	require.Len(t, functional, 2)
	assert.Contains(t, functional[0], "must authenticate")

	notes, ok := out.Requirements["notes"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"We like Go"}, notes)

	assert.Equal(t, []any{"audience", "lang"}, out.Requirements["context_keys"])
}

func TestRequirementsExtractorEmptyDescription(t *testing.T) {
	out, err := NewRequirementsExtractor().Invoke(context.Background(), agent.Input{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Requirements["count"])
}

func TestArchitectureDesigner(t *testing.T) {
	out, err := NewArchitectureDesigner().Invoke(context.Background(), agent.Input{
		Requirements: map[string]any{
			"functional": []any{"must authenticate callers", "should log requests"},
		},
		Constraints: map[string]any{"runtime": "linux"},
	})
	require.NoError(t, err)

	assert.Equal(t, "layered", out.Architecture["style"])
	components, ok := out.Architecture["components"].([]any)
	require.True(t, ok)
	assert.Len(t, components, 5) // api, core, storage + 2 features
	assert.Equal(t, map[string]any{"runtime": "linux"}, out.Architecture["constraints"])
}

func TestArchitectureDesignerModularStyle(t *testing.T) {
	functional := make([]any, 6)
	for i := range functional {
		functional[i] = "a requirement"
	}

	out, err := NewArchitectureDesigner().Invoke(context.Background(), agent.Input{
		Requirements: map[string]any{"functional": functional},
	})
	require.NoError(t, err)
	assert.Equal(t, "modular", out.Architecture["style"])
}

func TestImplementationPlanner(t *testing.T) {
	out, err := NewImplementationPlanner().Invoke(context.Background(), agent.Input{
		Architecture: map[string]any{
			"components": []any{
				map[string]any{"name": "api", "role": "handling"},
				map[string]any{"name": "storage", "role": "persistence"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Plan["total_steps"])
	steps, ok := out.Plan["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 4)

	first, ok := steps[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, first["order"])

	second, ok := steps[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "implement api", second["task"])

	last, ok := steps[3].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integration tests and hardening", last["task"])
}

func TestImplementationPlannerEmptyArchitecture(t *testing.T) {
	out, err := NewImplementationPlanner().Invoke(context.Background(), agent.Input{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Plan["total_steps"])
}

func TestValidatorAllCovered(t *testing.T) {
	out, err := NewValidator().Invoke(context.Background(), agent.Input{
		Requirements: map[string]any{
			"functional": []any{"must provide storage layer"},
		},
		Implementation: map[string]any{
			"steps": []any{
				map[string]any{"order": 1, "task": "implement storage"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Validated 1 requirements, 0 issues found", out.Summary)
	assert.Empty(t, out.Issues)
	assert.Equal(t, 1, out.Detail["requirements_checked"])
}

func TestValidatorUncoveredRequirement(t *testing.T) {
	out, err := NewValidator().Invoke(context.Background(), agent.Input{
		Requirements: map[string]any{
			"functional": []any{"must support telemetry export"},
		},
		Implementation: map[string]any{
			"steps": []any{
				map[string]any{"order": 1, "task": "implement storage"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, out.Issues, 1)
	assert.Contains(t, out.Issues[0], "telemetry export")
}

func TestValidatorNothingToCheck(t *testing.T) {
	out, err := NewValidator().Invoke(context.Background(), agent.Input{})
	require.NoError(t, err)
	assert.Equal(t, "Validated 0 requirements, 0 issues found", out.Summary)
}

func TestCapabilitiesComplete(t *testing.T) {
	caps := Capabilities(t.TempDir())
	r := agent.NewRegistry(caps)
	assert.Equal(t, agent.All(), r.Registered())
}
