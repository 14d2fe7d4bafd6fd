package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/repository"
)

// StatsSource is the slice of the stats repository the dashboard endpoint
// needs. *repository.StatsRepo satisfies it; tests substitute a fake.
type StatsSource interface {
	Totals(ctx context.Context) (repository.StatsTotals, error)
	MonthlyCounts(ctx context.Context, since time.Time) ([]repository.MonthCount, error)
}

// StatsHandler serves the admin dashboard aggregates.
type StatsHandler struct {
	Stats StatsSource
}

func NewStatsHandler(s StatsSource) *StatsHandler { return &StatsHandler{Stats: s} }

type monthBucket struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type statsResp struct {
	TotalRepairs       int           `json:"totalRepairs"`
	TotalEstimatedCost float64       `json:"totalEstimatedCost"`
	TotalActualCost    float64       `json:"totalActualCost"`
	PendingCount       int           `json:"pendingCount"`
	InProgressCount    int           `json:"inProgressCount"`
	CompletedCount     int           `json:"completedCount"`
	MonthlyData        []monthBucket `json:"monthlyData"`
}

// formatMonthly converts year/month buckets into the wire shape with
// short English month names. The input is already in ascending
// chronological order; months without repairs produce no bucket.
func formatMonthly(counts []repository.MonthCount) []monthBucket {
	out := []monthBucket{}
	for _, mc := range counts {
		out = append(out, monthBucket{
			Month: mc.Month.String()[:3],
			Count: mc.Count,
		})
	}
	return out
}

// Get handles GET /api/stats (admin only). A single-pass aggregate over
// the whole repair store plus per-month creation counts for the trailing
// six months. Recomputed on every call; the route-level Redis cache is the
// only thing between this and the database.
func (h *StatsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	totals, err := h.Stats.Totals(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	since := time.Now().UTC().AddDate(0, -6, 0)
	monthly, err := h.Stats.MonthlyCounts(ctx, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	return c.JSON(http.StatusOK, statsResp{
		TotalRepairs:       totals.TotalRepairs,
		TotalEstimatedCost: totals.TotalEstimatedCost,
		TotalActualCost:    totals.TotalActualCost,
		PendingCount:       totals.PendingCount,
		InProgressCount:    totals.InProgressCount,
		CompletedCount:     totals.CompletedCount,
		MonthlyData:        formatMonthly(monthly),
	})
}
