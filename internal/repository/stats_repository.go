package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/garageworks/repair-shop/internal/model"
)

// StatsTotals is the single-pass aggregate over the whole repairs table.
type StatsTotals struct {
	TotalRepairs       int
	TotalEstimatedCost float64
	TotalActualCost    float64
	PendingCount       int
	InProgressCount    int
	CompletedCount     int
}

// MonthCount is one calendar-month bucket of repair creations. Months with
// zero repairs produce no bucket.
type MonthCount struct {
	Year  int
	Month time.Month
	Count int
}

// StatsRepo computes dashboard aggregates over the repairs table. Results
// are deterministic for a given table state and clock; nothing is cached
// here (the HTTP layer may put a short-lived cache in front).
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// Totals aggregates counts and cost sums by status in one query.
// NULL actual costs count as zero, mirroring how unfinished jobs are
// presented on the dashboard.
func (r *StatsRepo) Totals(ctx context.Context) (StatsTotals, error) {
	var t StatsTotals
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(estimated_cost), 0),
		        COALESCE(SUM(COALESCE(actual_cost, 0)), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM repairs`,
		model.StatusPending, model.StatusInProgress, model.StatusCompleted).
		Scan(&t.TotalRepairs, &t.TotalEstimatedCost, &t.TotalActualCost,
			&t.PendingCount, &t.InProgressCount, &t.CompletedCount)
	return t, err
}

// MonthlyCounts buckets repairs created since the given cutoff by calendar
// year and month, ascending chronologically.
func (r *StatsRepo) MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT YEAR(created_at), MONTH(created_at), COUNT(*)
		 FROM repairs
		 WHERE created_at >= ?
		 GROUP BY YEAR(created_at), MONTH(created_at)
		 ORDER BY YEAR(created_at) ASC, MONTH(created_at) ASC`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthCount
	for rows.Next() {
		var mc MonthCount
		var month int
		if err := rows.Scan(&mc.Year, &month, &mc.Count); err != nil {
			return nil, err
		}
		mc.Month = time.Month(month)
		out = append(out, mc)
	}
	return out, rows.Err()
}
