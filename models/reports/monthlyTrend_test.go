package reports_test

import (
	"testing"
	"time"

	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/models/reports"
)

func TestComputeMonthlyTrendFixedWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	orders := []*models.Order{
		{
			Status:            models.OrderStatusShipped,
			FinalSellingPrice: dec("1000"),
			StitchingCost:     dec("300"),
			CreatedAt:         time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			Status:     models.OrderStatusReadyToShip,
			OrderTotal: dec("500"),
			CreatedAt:  time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			Status:            models.OrderStatusShipped,
			FinalSellingPrice: dec("700"),
			CreatedAt:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// outside the trailing window, must be dropped
			Status:            models.OrderStatusShipped,
			FinalSellingPrice: dec("9999"),
			CreatedAt:         time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			// cancelled, must be dropped
			Status:            models.OrderStatusCancelled,
			FinalSellingPrice: dec("9999"),
			CreatedAt:         time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	points := reports.ComputeMonthlyTrend(orders, now)

	if len(points) != 6 {
		t.Fatalf("expected 6 trailing months, got %d", len(points))
	}
	wantMonths := []string{"2026-03", "2026-04", "2026-05", "2026-06", "2026-07", "2026-08"}
	for i, want := range wantMonths {
		if points[i].Month != want {
			t.Fatalf("points[%d].Month = %q, want %q", i, points[i].Month, want)
		}
	}

	march := points[0]
	if march.OrderCount != 1 || !march.Revenue.Equal(dec("700")) {
		t.Fatalf("march = %d orders / %s revenue, want 1 / 700", march.OrderCount, march.Revenue)
	}

	// empty months still present, zero-valued
	for _, i := range []int{1, 2, 3, 4} {
		if points[i].OrderCount != 0 || !points[i].Revenue.IsZero() {
			t.Fatalf("%s should be empty, got %d orders / %s revenue", points[i].Month, points[i].OrderCount, points[i].Revenue)
		}
	}

	august := points[5]
	if august.OrderCount != 2 {
		t.Fatalf("august OrderCount = %d, want 2", august.OrderCount)
	}
	if !august.Revenue.Equal(dec("1500")) {
		t.Fatalf("august Revenue = %s, want 1500", august.Revenue)
	}
	if !august.Cost.Equal(dec("300")) {
		t.Fatalf("august Cost = %s, want 300", august.Cost)
	}
	if !august.Profit.Equal(dec("1200")) {
		t.Fatalf("august Profit = %s, want 1200", august.Profit)
	}
}

func TestComputeMonthlyTrendYearBoundary(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	points := reports.ComputeMonthlyTrend(nil, now)
	wantMonths := []string{"2025-09", "2025-10", "2025-11", "2025-12", "2026-01", "2026-02"}
	for i, want := range wantMonths {
		if points[i].Month != want {
			t.Fatalf("points[%d].Month = %q, want %q", i, points[i].Month, want)
		}
	}
}
