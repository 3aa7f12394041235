package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Health statuses, ordered from best to worst
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// backlogGrace is how far past due an owed schedule may be before the
// backlog check reports degradation; daily billing runs keep the
// backlog empty, so anything older means the runs are not happening
const backlogGrace = 72 * time.Hour

// CheckResult is the outcome of one health check
type CheckResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport aggregates all checks; overall status is the worst
// individual status
type HealthReport struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// HealthChecker probes the database and the billing backlog
type HealthChecker struct {
	pool *pgxpool.Pool
}

// NewHealthChecker creates a health checker over the given pool
func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

// Check runs all health checks and aggregates them into one report
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	checks := map[string]CheckResult{
		"database": h.checkDatabase(ctx),
	}
	if checks["database"].Status == StatusHealthy {
		checks["billing_backlog"] = h.checkBacklog(ctx)
	}

	overall := StatusHealthy
	for _, c := range checks {
		overall = worseOf(overall, c.Status)
	}

	return HealthReport{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{Status: StatusUnhealthy, Detail: "pool not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.pool.Ping(pingCtx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Detail: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// checkBacklog counts owed schedules whose due date fell out of the
// grace window without a billing run picking them up
func (h *HealthChecker) checkBacklog(ctx context.Context) CheckResult {
	var stale int64
	err := h.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM due_schedules
		 WHERE status IN ('PENDING', 'OVERDUE') AND due_date < $1`,
		time.Now().UTC().Add(-backlogGrace),
	).Scan(&stale)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Detail: "backlog query: " + err.Error()}
	}
	if stale > 0 {
		return CheckResult{
			Status: StatusDegraded,
			Detail: fmt.Sprintf("%d owed schedules past the billing grace window", stale),
		}
	}
	return CheckResult{Status: StatusHealthy}
}

// worseOf returns the worse of two statuses
func worseOf(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// HealthHandler serves the full report; degraded still returns 200 so
// orchestrators don't restart a service that only has billing debt
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// ReadyHandler gates readiness on database reachability alone
func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.checkDatabase(r.Context()).Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.Write([]byte("ready"))
	}
}
