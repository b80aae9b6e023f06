package reports_test

import (
	"testing"

	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/models/reports"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolveOrderRevenuePriority(t *testing.T) {
	cases := []struct {
		name  string
		order *models.Order
		want  decimal.Decimal
	}{
		{
			name: "imported order total wins over everything",
			order: &models.Order{
				ImportedData:      []byte(`{"Order Total": "1500", "Product Price": "9000", "Total": "9000"}`),
				OrderTotal:        dec("3000"),
				FinalSellingPrice: dec("4000"),
			},
			want: dec("1500"),
		},
		{
			name: "order total beats final selling price",
			order: &models.Order{
				OrderTotal:        dec("2500"),
				FinalSellingPrice: dec("9999"),
			},
			want: dec("2500"),
		},
		{
			name:  "final selling price when order total is zero",
			order: &models.Order{FinalSellingPrice: dec("1800")},
			want:  dec("1800"),
		},
		{
			name: "imported product price as fallback",
			order: &models.Order{
				ImportedData: []byte(`{"Product Price": "1200", "Total": "5000"}`),
			},
			want: dec("1200"),
		},
		{
			name: "imported total as last resort",
			order: &models.Order{
				ImportedData: []byte(`{"Total": "750"}`),
			},
			want: dec("750"),
		},
		{
			name: "header match is case insensitive",
			order: &models.Order{
				ImportedData: []byte(`{"order total": "888"}`),
			},
			want: dec("888"),
		},
		{
			name: "unparseable imported value falls through",
			order: &models.Order{
				ImportedData:      []byte(`{"Order Total": "n/a"}`),
				FinalSellingPrice: dec("600"),
			},
			want: dec("600"),
		},
		{
			name: "currency noise in imported value is stripped",
			order: &models.Order{
				ImportedData: []byte(`{"Order Total": "1,500 MMK"}`),
			},
			want: dec("1500"),
		},
		{
			name:  "no source resolves to zero",
			order: &models.Order{},
			want:  decimal.Zero,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := reports.ResolveOrderRevenue(c.order)
			if !got.Equal(c.want) {
				t.Fatalf("ResolveOrderRevenue = %s, want %s", got, c.want)
			}
		})
	}
}

func TestComputeOverviewExcludesCancelled(t *testing.T) {
	orders := []*models.Order{
		{
			Status:            models.OrderStatusShipped,
			FinalSellingPrice: dec("1000"),
			StitchingCost:     dec("200"),
			FabricCost:        dec("300"),
			PaymentMethod:     models.PaymentMethodPrepaid,
		},
		{
			Status:        models.OrderStatusReadyToShip,
			OrderTotal:    dec("2000"),
			ShippingCost:  dec("100"),
			CodCharge:     dec("50"),
			OtherExpenses: dec("25"),
			PaymentMethod: models.PaymentMethodCOD,
		},
		{
			// must contribute nothing, not even costs
			Status:            models.OrderStatusCancelled,
			FinalSellingPrice: dec("99999"),
			StitchingCost:     dec("99999"),
			PaymentMethod:     models.PaymentMethodCOD,
		},
	}

	got := reports.ComputeOverview(orders)

	if got.OrderCount != 2 {
		t.Fatalf("OrderCount = %d, want 2", got.OrderCount)
	}
	if !got.TotalRevenue.Equal(dec("3000")) {
		t.Fatalf("TotalRevenue = %s, want 3000", got.TotalRevenue)
	}
	if !got.TotalCost.Equal(dec("675")) {
		t.Fatalf("TotalCost = %s, want 675", got.TotalCost)
	}
	if !got.GrossProfit.Equal(dec("2325")) {
		t.Fatalf("GrossProfit = %s, want 2325", got.GrossProfit)
	}
	if got.PrepaidCount != 1 || got.CodCount != 1 {
		t.Fatalf("payment split = %d prepaid / %d cod, want 1/1", got.PrepaidCount, got.CodCount)
	}
	if !got.PrepaidRevenue.Equal(dec("1000")) || !got.CodRevenue.Equal(dec("2000")) {
		t.Fatalf("revenue split = %s prepaid / %s cod", got.PrepaidRevenue, got.CodRevenue)
	}
	wantMargin := dec("77.5")
	if !got.ProfitMargin.Equal(wantMargin) {
		t.Fatalf("ProfitMargin = %s, want %s", got.ProfitMargin, wantMargin)
	}
}

func TestComputeOverviewZeroRevenueMargin(t *testing.T) {
	orders := []*models.Order{
		{Status: models.OrderStatusReadyToShip, StitchingCost: dec("500")},
	}
	got := reports.ComputeOverview(orders)
	if !got.ProfitMargin.IsZero() {
		t.Fatalf("ProfitMargin = %s, want 0 when revenue is zero", got.ProfitMargin)
	}
	if !got.GrossProfit.Equal(dec("-500")) {
		t.Fatalf("GrossProfit = %s, want -500", got.GrossProfit)
	}
}

func TestComputeOverviewEmpty(t *testing.T) {
	got := reports.ComputeOverview(nil)
	if got.OrderCount != 0 {
		t.Fatalf("OrderCount = %d, want 0", got.OrderCount)
	}
	if !got.TotalRevenue.IsZero() || !got.ProfitMargin.IsZero() {
		t.Fatalf("empty snapshot must be all zero, got revenue=%s margin=%s", got.TotalRevenue, got.ProfitMargin)
	}
}
