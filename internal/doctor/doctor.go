// Package doctor validates orchestra-gw configuration and runtime setup.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/config"
	"github.com/mattjoyce/orchestra-gw/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against the agent registry and state
// store.
type Doctor struct {
	cfg      *config.Config
	registry *agent.Registry
}

// New creates a Doctor from a loaded config and agent registry. registry
// may be nil to skip agent checks.
func New(cfg *config.Config, registry *agent.Registry) *Doctor {
	return &Doctor{cfg: cfg, registry: registry}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateAPIConfig(r)
	d.validateQuotaConfig(r)
	d.validateState(r)
	d.validateAgents(r)
	d.warnDeprecatedAuth(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServiceConfig checks required service fields.
func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.State.Path == "" {
		d.addError(r, "service", "state.path", "state.path is required")
	}
	if d.cfg.Agents.RepositoryRoot != "" {
		if info, err := os.Stat(d.cfg.Agents.RepositoryRoot); err != nil {
			d.addWarning(r, "service", "agents.repository_root",
				fmt.Sprintf("repository root %q is not accessible: %v", d.cfg.Agents.RepositoryRoot, err))
		} else if !info.IsDir() {
			d.addError(r, "service", "agents.repository_root",
				fmt.Sprintf("repository root %q is not a directory", d.cfg.Agents.RepositoryRoot))
		}
	}
}

// validateAPIConfig checks API server settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required")
	}
	if d.cfg.API.Auth.APIKey == "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addError(r, "api", "api.auth", "no authentication configured")
	}
	for i, token := range d.cfg.API.Auth.Tokens {
		field := fmt.Sprintf("api.auth.tokens[%d]", i)
		if token.Token == "" {
			d.addError(r, "api", field+".token",
				"token value is empty (possibly unresolved environment variable)")
		}
		for j, scope := range token.Scopes {
			d.validateSingleScope(r, scope, fmt.Sprintf("%s.scopes[%d]", field, j))
		}
	}
}

func (d *Doctor) validateSingleScope(r *Result, scope, field string) {
	if scope == "*" {
		return
	}
	known := map[string]bool{
		"actions:execute": true,
		"events:ro":       true,
		"agents:ro":       true,
		"audit:ro":        true,
	}
	if !known[scope] {
		d.addError(r, "token_scopes", field,
			fmt.Sprintf("unknown scope %q (expected actions:execute, events:ro, agents:ro, audit:ro, or *)", scope))
	}
}

// validateQuotaConfig checks quota settings.
func (d *Doctor) validateQuotaConfig(r *Result) {
	if !d.cfg.Quota.Enabled {
		d.addWarning(r, "quota", "quota.enabled", "quota gate disabled; tenants have unlimited budget")
		return
	}
	if d.cfg.Quota.DailyBudget <= 0 && len(d.cfg.Quota.Overrides) == 0 {
		d.addWarning(r, "quota", "quota.daily_budget",
			"quota enabled but no budget configured; all tenants are unlimited")
	}
	for tenant, budget := range d.cfg.Quota.Overrides {
		if budget < 0 {
			d.addError(r, "quota", fmt.Sprintf("quota.overrides.%s", tenant),
				"override budget must not be negative")
		}
	}
}

// validateState verifies the sqlite state store can be opened and written.
func (d *Doctor) validateState(r *Result) {
	if d.cfg.State.Path == "" {
		return
	}

	db, err := storage.OpenSQLite(context.Background(), d.cfg.State.Path)
	if err != nil {
		d.addError(r, "state", "state.path", fmt.Sprintf("cannot open state store: %v", err))
		return
	}
	_ = db.Close()
}

// validateAgents checks that every declared agent type resolves.
func (d *Doctor) validateAgents(r *Result) {
	if d.registry == nil {
		return
	}
	for _, t := range agent.All() {
		if _, err := d.registry.Resolve(t); err != nil {
			d.addWarning(r, "agents", string(t),
				fmt.Sprintf("agent %q is declared but not registered; tasks targeting it will fail", t))
		}
	}
}

// warnDeprecatedAuth warns about legacy auth patterns.
func (d *Doctor) warnDeprecatedAuth(r *Result) {
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) > 0 {
		d.addWarning(r, "deprecated", "api.auth",
			"both api_key and tokens configured; prefer tokens array only")
	}
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "deprecated", "api.auth.api_key",
			"legacy api_key grants full access; migrate to tokens array with scopes")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
