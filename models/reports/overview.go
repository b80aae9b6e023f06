package reports

import (
	"context"
	"errors"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/shopspring/decimal"
)

type OverviewResponse struct {
	OrderCount     int             `json:"order_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	ProfitMargin   decimal.Decimal `json:"profit_margin"`
	FabricCost     decimal.Decimal `json:"fabric_cost"`
	StitchingCost  decimal.Decimal `json:"stitching_cost"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	CodCharge      decimal.Decimal `json:"cod_charge"`
	OtherExpenses  decimal.Decimal `json:"other_expenses"`
	PrepaidCount   int             `json:"prepaid_count"`
	CodCount       int             `json:"cod_count"`
	PrepaidRevenue decimal.Decimal `json:"prepaid_revenue"`
	CodRevenue     decimal.Decimal `json:"cod_revenue"`
}

// ResolveOrderRevenue picks the revenue contribution of one order using
// the fixed priority: imported "Order Total", then order_total, then
// final_selling_price, then imported "Product Price", then imported
// "Total", then zero. The first non-empty source wins even when later
// sources hold larger values.
func ResolveOrderRevenue(order *models.Order) decimal.Decimal {
	if v := order.ImportedField("Order Total"); v != "" {
		if d, err := utils.ParseDecimal(v); err == nil {
			return d
		}
	}
	if !order.OrderTotal.IsZero() {
		return order.OrderTotal
	}
	if !order.FinalSellingPrice.IsZero() {
		return order.FinalSellingPrice
	}
	if v := order.ImportedField("Product Price"); v != "" {
		if d, err := utils.ParseDecimal(v); err == nil {
			return d
		}
	}
	if v := order.ImportedField("Total"); v != "" {
		if d, err := utils.ParseDecimal(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// OrderCost sums whatever cost fields are present; absent fields count
// as zero.
func OrderCost(order *models.Order) decimal.Decimal {
	return order.StitchingCost.
		Add(order.FabricCost).
		Add(order.ShippingCost).
		Add(order.CodCharge).
		Add(order.OtherExpenses)
}

// ComputeOverview aggregates the order snapshot. Cancelled orders
// contribute nothing to any metric. Pure; recomputed from scratch per
// call.
func ComputeOverview(orders []*models.Order) *OverviewResponse {

	result := OverviewResponse{
		TotalRevenue:   decimal.Zero,
		TotalCost:      decimal.Zero,
		GrossProfit:    decimal.Zero,
		ProfitMargin:   decimal.Zero,
		FabricCost:     decimal.Zero,
		StitchingCost:  decimal.Zero,
		ShippingCost:   decimal.Zero,
		CodCharge:      decimal.Zero,
		OtherExpenses:  decimal.Zero,
		PrepaidRevenue: decimal.Zero,
		CodRevenue:     decimal.Zero,
	}

	for _, order := range orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		revenue := ResolveOrderRevenue(order)

		result.OrderCount++
		result.TotalRevenue = result.TotalRevenue.Add(revenue)
		result.TotalCost = result.TotalCost.Add(OrderCost(order))
		result.FabricCost = result.FabricCost.Add(order.FabricCost)
		result.StitchingCost = result.StitchingCost.Add(order.StitchingCost)
		result.ShippingCost = result.ShippingCost.Add(order.ShippingCost)
		result.CodCharge = result.CodCharge.Add(order.CodCharge)
		result.OtherExpenses = result.OtherExpenses.Add(order.OtherExpenses)

		if order.PaymentMethod == models.PaymentMethodCOD {
			result.CodCount++
			result.CodRevenue = result.CodRevenue.Add(revenue)
		} else {
			result.PrepaidCount++
			result.PrepaidRevenue = result.PrepaidRevenue.Add(revenue)
		}
	}

	result.GrossProfit = result.TotalRevenue.Sub(result.TotalCost)
	if result.TotalRevenue.IsPositive() {
		result.ProfitMargin = result.GrossProfit.DivRound(result.TotalRevenue, 4).Mul(decimal.NewFromInt(100))
	}
	return &result
}

// fetchOrderSnapshot loads the full order set for the business within
// the date filter. Imported rows are included: the aggregator is the
// one surface they feed.
func fetchOrderSnapshot(ctx context.Context, filterType string) ([]*models.Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)

	if filterType != "" && filterType != "allTime" {
		fromDate, toDate, err := utils.GetStartAndEndDate(filterType)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("created_at BETWEEN ? AND ?", fromDate, toDate)
	}

	var orders []*models.Order
	if err := dbCtx.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func GetBusinessOverview(ctx context.Context, filterType string) (*OverviewResponse, error) {

	orders, err := fetchOrderSnapshot(ctx, filterType)
	if err != nil {
		return nil, err
	}
	return ComputeOverview(orders), nil
}
