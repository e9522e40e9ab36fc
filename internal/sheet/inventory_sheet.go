// Package sheet reads and writes the inventory workbooks exchanged with
// store operators.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storepos/internal/domain/model"
	"storepos/internal/usecase"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"store_id",
	"store",
	"product_id",
	"product",
	"unit",
	"available",
}

// ReadStockLevels needs these columns, in any order.
var requiredColumns = []string{"store_id", "product_id", "available"}

var ErrEmptySheet = errors.New("sheet has no data rows")

// WriteInventory renders inventory rows (with Store and Product loaded) as
// an xlsx workbook. The output can be edited and fed back to ReadStockLevels.
func WriteInventory(w io.Writer, rows []model.Inventory) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, inv := range rows {
		row := []interface{}{
			inv.Store.ID,
			inv.Store.Name,
			inv.Product.ID,
			inv.Product.Name,
			string(inv.Product.Unit),
			inv.Available,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

// ReadStockLevels parses the first sheet of an xlsx workbook. Row numbers in
// the result are 1-based sheet rows so operators can find them.
func ReadStockLevels(r io.Reader) ([]usecase.StockLevel, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	out := make([]usecase.StockLevel, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}

		storeID, err := intCell(row, cols["store_id"])
		if err != nil {
			return nil, fmt.Errorf("row %d store_id: %w", rowNum, err)
		}
		productID, err := intCell(row, cols["product_id"])
		if err != nil {
			return nil, fmt.Errorf("row %d product_id: %w", rowNum, err)
		}
		available, err := intCell(row, cols["available"])
		if err != nil {
			return nil, fmt.Errorf("row %d available: %w", rowNum, err)
		}

		out = append(out, usecase.StockLevel{
			Row:       rowNum,
			StoreID:   storeID,
			ProductID: productID,
			Available: available,
		})
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}

// GetRows trims trailing empty cells, so a short row reads as blank.
func intCell(row []string, idx int) (int64, error) {
	if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
		return 0, errors.New("empty cell")
	}
	return strconv.ParseInt(strings.TrimSpace(row[idx]), 10, 64)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
