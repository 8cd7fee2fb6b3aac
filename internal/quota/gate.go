// Package quota gates execution on per-tenant consumption budgets.
package quota

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_gate.go -package=mocks github.com/mattjoyce/orchestra-gw/internal/quota Gate

// Status is the answer to a budget check. Only CanExecute is interpreted
// by the executors; the accounting fields are informational.
type Status struct {
	CanExecute  bool      `json:"can_execute"`
	Tenant      string    `json:"tenant"`
	UsedMS      int64     `json:"used_ms"`
	LimitMS     int64     `json:"limit_ms"`
	WindowStart time.Time `json:"window_start"`
}

// Gate is consulted before any task or workflow execution.
type Gate interface {
	CheckBudget(ctx context.Context, tenantID string) (Status, error)
}

// AllowAll is a Gate that never denies. Used when quota enforcement is
// disabled in config.
type AllowAll struct{}

func (AllowAll) CheckBudget(_ context.Context, tenantID string) (Status, error) {
	return Status{CanExecute: true, Tenant: tenantID}, nil
}
