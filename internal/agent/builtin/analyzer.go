// Package builtin provides the stock capability implementations wired
// into the registry at startup. Each one is a plain heuristic over local
// inputs; deployments with model-backed agents swap these out behind the
// same Capability interface.
package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
)

// RepositoryAnalyzer walks a repository tree and reports its structure:
// file and directory counts, a language histogram keyed by extension, the
// top-level entries, and per-focus-area match counts. Focus areas are
// doublestar glob patterns (e.g. "**/*_test.go", "cmd/**").
type RepositoryAnalyzer struct {
	// Root is the directory repository paths are resolved against.
	Root string
}

func NewRepositoryAnalyzer(root string) *RepositoryAnalyzer {
	if root == "" {
		root = "."
	}
	return &RepositoryAnalyzer{Root: root}
}

func (a *RepositoryAnalyzer) Invoke(ctx context.Context, in agent.Input) (*agent.Output, error) {
	path := in.RepositoryPath
	if path == "" {
		path = "."
	}
	root := filepath.Join(a.Root, filepath.FromSlash(path))

	var (
		files     int
		dirs      int
		languages = map[string]any{}
		topLevel  []string
		relPaths  []string
	)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, rerr := filepath.Rel(root, p)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !strings.Contains(rel, "/") {
			topLevel = append(topLevel, rel)
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			dirs++
			return nil
		}

		files++
		relPaths = append(relPaths, rel)
		if ext := strings.TrimPrefix(filepath.Ext(rel), "."); ext != "" {
			n, _ := languages[ext].(int)
			languages[ext] = n + 1
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyze repository %q: %w", path, err)
	}

	sort.Strings(topLevel)

	structure := map[string]any{
		"files":       files,
		"directories": dirs,
		"languages":   languages,
		"top_level":   topLevel,
	}

	if len(in.FocusAreas) > 0 {
		matches := map[string]any{}
		for _, pattern := range in.FocusAreas {
			count := 0
			for _, rel := range relPaths {
				ok, merr := doublestar.Match(pattern, rel)
				if merr != nil {
					return nil, fmt.Errorf("invalid focus area %q: %w", pattern, merr)
				}
				if ok {
					count++
				}
			}
			matches[pattern] = count
		}
		structure["focus_matches"] = matches
	}

	return &agent.Output{
		Summary:   fmt.Sprintf("Repository %q: %d files in %d directories", path, files, dirs),
		Structure: structure,
	}, nil
}
