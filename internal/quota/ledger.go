package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Limits configures the daily execution-time budget. A zero or negative
// budget means unlimited.
type Limits struct {
	DailyBudget time.Duration
	// Overrides maps tenant IDs to per-tenant budgets.
	Overrides map[string]time.Duration
}

// Ledger is a sqlite-backed Gate that accounts execution time per tenant
// per UTC day. The window resets lazily: a row whose window_start is
// before today's midnight counts as zero spend.
type Ledger struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
}

// NewLedger creates a Ledger over an already-bootstrapped database.
func NewLedger(db *sql.DB, limits Limits) *Ledger {
	return &Ledger{db: db, limits: limits, now: time.Now}
}

func (l *Ledger) budgetFor(tenant string) time.Duration {
	if d, ok := l.limits.Overrides[tenant]; ok {
		return d
	}
	return l.limits.DailyBudget
}

func (l *Ledger) windowStart() time.Time {
	now := l.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckBudget implements Gate.
func (l *Ledger) CheckBudget(ctx context.Context, tenantID string) (Status, error) {
	if tenantID == "" {
		return Status{}, fmt.Errorf("tenant id is empty")
	}

	window := l.windowStart()
	status := Status{
		CanExecute:  true,
		Tenant:      tenantID,
		WindowStart: window,
	}

	budget := l.budgetFor(tenantID)
	if budget <= 0 {
		return status, nil
	}
	status.LimitMS = budget.Milliseconds()

	var (
		usedMS int64
		startS string
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT used_ms, window_start FROM quota_usage WHERE tenant = ?;",
		tenantID,
	).Scan(&usedMS, &startS)
	if errors.Is(err, sql.ErrNoRows) {
		return status, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read quota usage: %w", err)
	}

	if start, perr := time.Parse(time.RFC3339Nano, startS); perr == nil && !start.Before(window) {
		status.UsedMS = usedMS
	}
	status.CanExecute = status.UsedMS < status.LimitMS
	return status, nil
}

// Record adds spend to the tenant's current window. Spend from a stale
// window is discarded rather than carried over.
func (l *Ledger) Record(ctx context.Context, tenantID string, d time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is empty")
	}
	if d < 0 {
		d = 0
	}

	window := l.windowStart().Format(time.RFC3339Nano)
	_, err := l.db.ExecContext(ctx, `
INSERT INTO quota_usage(tenant, window_start, used_ms)
VALUES(?, ?, ?)
ON CONFLICT(tenant) DO UPDATE SET
  used_ms = CASE WHEN quota_usage.window_start = excluded.window_start
                 THEN quota_usage.used_ms + excluded.used_ms
                 ELSE excluded.used_ms END,
  window_start = excluded.window_start;
`, tenantID, window, d.Milliseconds())
	if err != nil {
		return fmt.Errorf("record quota spend: %w", err)
	}
	return nil
}
