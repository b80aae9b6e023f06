package reports_test

import (
	"testing"

	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/models/reports"
)

func TestComputeCustomerInsightsGroupsCaseInsensitively(t *testing.T) {
	orders := []*models.Order{
		{Status: models.OrderStatusShipped, CustomerName: "Daw Mya", OutfitName: "Summer Dress", FinalSellingPrice: dec("1000")},
		{Status: models.OrderStatusShipped, CustomerName: "daw mya", OutfitName: "summer dress", FinalSellingPrice: dec("500")},
		{Status: models.OrderStatusShipped, CustomerName: "Ko Aung", OutfitName: "Office Shirt", FinalSellingPrice: dec("2000")},
		{Status: models.OrderStatusCancelled, CustomerName: "Daw Mya", OutfitName: "Summer Dress", FinalSellingPrice: dec("9999")},
		// nameless rows (bad imports) are skipped entirely
		{Status: models.OrderStatusShipped, CustomerName: "", FinalSellingPrice: dec("100")},
	}

	got := reports.ComputeCustomerInsights(orders, 10)

	if len(got.Customers) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(got.Customers))
	}
	// revenue-sorted: Ko Aung 2000, Daw Mya 1500
	if got.Customers[0].CustomerName != "Ko Aung" || !got.Customers[0].TotalRevenue.Equal(dec("2000")) {
		t.Fatalf("top customer = %+v", got.Customers[0])
	}
	if got.Customers[1].CustomerName != "Daw Mya" || got.Customers[1].OrderCount != 2 {
		t.Fatalf("second customer = %+v", got.Customers[1])
	}
	if !got.Customers[1].TotalRevenue.Equal(dec("1500")) {
		t.Fatalf("Daw Mya revenue = %s, want 1500", got.Customers[1].TotalRevenue)
	}

	if len(got.TopProducts) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got.TopProducts))
	}
	if got.TopProducts[0].OutfitName != "Office Shirt" {
		t.Fatalf("top product = %+v", got.TopProducts[0])
	}
	if got.TopProducts[1].OrderCount != 2 || !got.TopProducts[1].TotalRevenue.Equal(dec("1500")) {
		t.Fatalf("second product = %+v", got.TopProducts[1])
	}
}

func TestComputeCustomerInsightsTopNAndTies(t *testing.T) {
	orders := []*models.Order{
		{Status: models.OrderStatusShipped, CustomerName: "Zaw", FinalSellingPrice: dec("500")},
		{Status: models.OrderStatusShipped, CustomerName: "Aye", FinalSellingPrice: dec("500")},
		{Status: models.OrderStatusShipped, CustomerName: "Mon", FinalSellingPrice: dec("900")},
	}

	got := reports.ComputeCustomerInsights(orders, 2)

	if len(got.Customers) != 3 {
		t.Fatalf("full list should keep all customers, got %d", len(got.Customers))
	}
	if len(got.TopCustomers) != 2 {
		t.Fatalf("expected top 2, got %d", len(got.TopCustomers))
	}
	if got.TopCustomers[0].CustomerName != "Mon" {
		t.Fatalf("top customer = %q, want Mon", got.TopCustomers[0].CustomerName)
	}
	// equal revenue ties break on name
	if got.TopCustomers[1].CustomerName != "Aye" {
		t.Fatalf("tie break = %q, want Aye", got.TopCustomers[1].CustomerName)
	}
}
