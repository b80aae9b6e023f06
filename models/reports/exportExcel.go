package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportCustomerReportExcel writes the per-customer revenue report as
// an xlsx workbook to w (the HTTP response body).
func ExportCustomerReportExcel(ctx context.Context, filterType string, w io.Writer) error {

	insights, err := GetCustomerInsights(ctx, filterType, 0)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "CustomerName")
	f.SetCellValue(sheetName, "B1", "OrderCount")
	f.SetCellValue(sheetName, "C1", "TotalRevenue")

	// Add data
	for i, c := range insights.Customers {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+2), c.CustomerName)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+2), c.OrderCount)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+2), c.TotalRevenue.String())
	}

	return f.Write(w)
}
