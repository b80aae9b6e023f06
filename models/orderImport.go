package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes one spreadsheet import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped"`
}

// well-known spreadsheet columns mapped onto order fields; everything
// else survives only inside imported_data
const (
	importColOrderNumber  = "order number"
	importColCustomerName = "customer name"
	importColPhone        = "phone"
	importColOutfit       = "outfit"
	importColSize         = "size"
)

// ImportOrdersFromXlsx loads spreadsheet rows as Imported orders. Each
// row is stored with the raw cell map preserved in imported_data;
// normal validation is bypassed and stock is never touched. Imported
// rows feed the financial aggregator only.
func ImportOrdersFromXlsx(ctx context.Context, filename string, reader io.Reader) (*ImportResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return nil, errors.New("invalid file type: only .xlsx files are allowed")
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("spreadsheet has no data rows")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	result := ImportResult{}
	tx := beginTx(ctx)

	for idx, row := range rows[1:] {
		rowNo := idx + 2

		cells := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			cells[h] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		rawData, err := json.Marshal(cells)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("could not encode row %d: %v", rowNo, err)
		}

		order := Order{
			BusinessId:   businessId,
			Type:         OrderTypeImported,
			Status:       OrderStatusImported,
			OrderNumber:  lookupCell(cells, importColOrderNumber),
			CustomerName: lookupCell(cells, importColCustomerName),
			Phone:        lookupCell(cells, importColPhone),
			OutfitName:   lookupCell(cells, importColOutfit),
			ImportedData: rawData,
		}
		if order.OrderNumber == "" {
			order.OrderNumber = fmt.Sprintf("IMPORT-%d", rowNo)
		}
		if order.CustomerName == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: customer name is blank", rowNo))
			continue
		}
		if sizeStr := lookupCell(cells, importColSize); sizeStr != "" {
			size := SizeLabel(strings.ToUpper(sizeStr))
			if size.Valid() {
				order.Size = &size
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("could not save row %d: %v", rowNo, err)
		}
		result.Imported++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// lookupCell finds a cell by case-insensitive header name.
func lookupCell(cells map[string]string, header string) string {
	for k, v := range cells {
		if strings.EqualFold(k, header) {
			return v
		}
	}
	return ""
}

// ImportedField reads one named column out of an imported order's raw
// row, case-insensitively. Empty on non-imported orders.
func (order *Order) ImportedField(name string) string {
	if len(order.ImportedData) == 0 {
		return ""
	}
	cells := make(map[string]string)
	if err := json.Unmarshal(order.ImportedData, &cells); err != nil {
		return ""
	}
	return lookupCell(cells, name)
}
