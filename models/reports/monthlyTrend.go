package reports

import (
	"context"
	"time"

	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/shopspring/decimal"
)

type MonthlyTrendPoint struct {
	Month      string          `json:"month"` // 2006-01
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Profit     decimal.Decimal `json:"profit"`
}

const trendMonths = 6

// ComputeMonthlyTrend buckets orders into a fixed trailing window of
// calendar months ending at now. Months with no orders still appear,
// zero-valued. Cancelled orders are excluded.
func ComputeMonthlyTrend(orders []*models.Order, now time.Time) []*MonthlyTrendPoint {

	points := make([]*MonthlyTrendPoint, 0, trendMonths)
	index := make(map[string]*MonthlyTrendPoint, trendMonths)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(trendMonths - 1), 0)
	for i := 0; i < trendMonths; i++ {
		month := first.AddDate(0, i, 0)
		point := &MonthlyTrendPoint{
			Month:   month.Format("2006-01"),
			Revenue: decimal.Zero,
			Cost:    decimal.Zero,
			Profit:  decimal.Zero,
		}
		points = append(points, point)
		index[point.Month] = point
	}

	for _, order := range orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		point, ok := index[order.CreatedAt.Format("2006-01")]
		if !ok {
			continue
		}
		revenue := ResolveOrderRevenue(order)
		cost := OrderCost(order)
		point.OrderCount++
		point.Revenue = point.Revenue.Add(revenue)
		point.Cost = point.Cost.Add(cost)
		point.Profit = point.Revenue.Sub(point.Cost)
	}

	return points
}

func GetMonthlyTrend(ctx context.Context) ([]*MonthlyTrendPoint, error) {

	orders, err := fetchOrderSnapshot(ctx, "last6months")
	if err != nil {
		return nil, err
	}
	return ComputeMonthlyTrend(orders, time.Now()), nil
}
