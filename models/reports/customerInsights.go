package reports

import (
	"context"
	"sort"
	"strings"

	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/shopspring/decimal"
)

type CustomerInsight struct {
	CustomerName string          `json:"customer_name"`
	OrderCount   int             `json:"order_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type ProductInsight struct {
	OutfitName   string          `json:"outfit_name"`
	OrderCount   int             `json:"order_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type CustomerInsightsResponse struct {
	Customers    []*CustomerInsight `json:"customers"`
	TopCustomers []*CustomerInsight `json:"top_customers"`
	TopProducts  []*ProductInsight  `json:"top_products"`
}

// ComputeCustomerInsights groups orders by case-insensitive customer
// name (imported rows have no customer id) and by outfit name, ranked
// by revenue. Cancelled orders are excluded.
func ComputeCustomerInsights(orders []*models.Order, topN int) *CustomerInsightsResponse {

	byCustomer := make(map[string]*CustomerInsight)
	byProduct := make(map[string]*ProductInsight)

	for _, order := range orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		revenue := ResolveOrderRevenue(order)

		if order.CustomerName != "" {
			key := strings.ToLower(order.CustomerName)
			c, ok := byCustomer[key]
			if !ok {
				c = &CustomerInsight{CustomerName: order.CustomerName, TotalRevenue: decimal.Zero}
				byCustomer[key] = c
			}
			c.OrderCount++
			c.TotalRevenue = c.TotalRevenue.Add(revenue)
		}

		if order.OutfitName != "" {
			key := strings.ToLower(order.OutfitName)
			p, ok := byProduct[key]
			if !ok {
				p = &ProductInsight{OutfitName: order.OutfitName, TotalRevenue: decimal.Zero}
				byProduct[key] = p
			}
			p.OrderCount++
			p.TotalRevenue = p.TotalRevenue.Add(revenue)
		}
	}

	customers := make([]*CustomerInsight, 0, len(byCustomer))
	for _, c := range byCustomer {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].TotalRevenue.Equal(customers[j].TotalRevenue) {
			return customers[i].TotalRevenue.GreaterThan(customers[j].TotalRevenue)
		}
		return customers[i].CustomerName < customers[j].CustomerName
	})

	products := make([]*ProductInsight, 0, len(byProduct))
	for _, p := range byProduct {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].TotalRevenue.Equal(products[j].TotalRevenue) {
			return products[i].TotalRevenue.GreaterThan(products[j].TotalRevenue)
		}
		return products[i].OutfitName < products[j].OutfitName
	})

	result := CustomerInsightsResponse{Customers: customers}
	if topN > len(customers) {
		result.TopCustomers = customers
	} else {
		result.TopCustomers = customers[:topN]
	}
	if topN > len(products) {
		result.TopProducts = products
	} else {
		result.TopProducts = products[:topN]
	}
	return &result
}

func GetCustomerInsights(ctx context.Context, filterType string, topN int) (*CustomerInsightsResponse, error) {

	if topN <= 0 {
		topN = 10
	}
	orders, err := fetchOrderSnapshot(ctx, filterType)
	if err != nil {
		return nil, err
	}
	return ComputeCustomerInsights(orders, topN), nil
}
