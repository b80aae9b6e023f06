package models_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/models/reports"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Imported spreadsheet rows must stay frozen (no stock, no transitions)
// while still feeding the financial aggregator.
func TestOrderImportFeedsReportsOnly(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stitchbooks_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: "Import Co"})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	ctx = utils.SetBusinessIdInContext(ctx, biz.ID.String())

	// Build a legacy-shaped workbook in memory.
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Order Number", "Customer Name", "Phone", "Outfit", "Size", "Order Total", "Product Price"},
		{"OLD-1", "Daw Mya", "0977700001", "Summer Dress", "M", "1,500 MMK", "9000"},
		{"", "Ko Aung", "", "Office Shirt", "xl", "", "1200"},
		{"OLD-3", "", "", "", "", "500", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := models.ImportOrdersFromXlsx(ctx, "legacy_orders.xlsx", &buf)
	if err != nil {
		t.Fatalf("ImportOrdersFromXlsx: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("Imported = %d, want 2", result.Imported)
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0], "row 4") {
		t.Fatalf("Skipped = %v, want one row-4 entry", result.Skipped)
	}

	// Default listing hides imported rows.
	visible, err := models.ListOrders(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("default listing shows %d imported rows", len(visible))
	}
	importedType := models.OrderTypeImported
	imported, err := models.ListOrders(ctx, nil, &importedType, nil)
	if err != nil {
		t.Fatalf("ListOrders imported: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("imported listing = %d rows, want 2", len(imported))
	}

	// Frozen: no lifecycle transitions, generated numbers, raw row kept.
	var generated *models.Order
	for _, o := range imported {
		if o.CustomerName == "Ko Aung" {
			generated = o
		}
		if _, err := models.CancelOrder(ctx, o.ID); err == nil {
			t.Fatalf("cancelled an imported order")
		}
	}
	if generated == nil {
		t.Fatalf("missing generated-number row")
	}
	if !strings.HasPrefix(generated.OrderNumber, "IMPORT-") {
		t.Fatalf("generated order number = %q", generated.OrderNumber)
	}
	if generated.Size == nil || *generated.Size != models.SizeXL {
		t.Fatalf("size not normalized: %v", generated.Size)
	}
	if generated.ImportedField("Product Price") != "1200" {
		t.Fatalf("raw row lost: %q", generated.ImportedField("Product Price"))
	}

	// The aggregator resolves revenue per row: 1500 (imported order
	// total, noise stripped) + 1200 (product price fallback).
	overview, err := reports.GetBusinessOverview(ctx, "allTime")
	if err != nil {
		t.Fatalf("GetBusinessOverview: %v", err)
	}
	if overview.OrderCount != 2 {
		t.Fatalf("overview OrderCount = %d, want 2", overview.OrderCount)
	}
	if !overview.TotalRevenue.Equal(decimal.NewFromInt(2700)) {
		t.Fatalf("overview TotalRevenue = %s, want 2700", overview.TotalRevenue)
	}

	insights, err := reports.GetCustomerInsights(ctx, "allTime", 5)
	if err != nil {
		t.Fatalf("GetCustomerInsights: %v", err)
	}
	if len(insights.Customers) != 2 {
		t.Fatalf("insights customers = %d, want 2", len(insights.Customers))
	}
	if insights.Customers[0].CustomerName != "Daw Mya" {
		t.Fatalf("top customer = %q, want Daw Mya", insights.Customers[0].CustomerName)
	}
}
