package forecast

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Row is one flattened prediction line for export.
type Row struct {
	Product         string
	Day             int
	Stock           float64
	AvailableStock  float64
	PlannedOutbound float64
}

var exportHeader = []string{"product", "day", "stock", "available_stock", "planned_outbound"}

// Flatten orders the response into export rows, products sorted for
// deterministic output, days 1..Horizon.
func Flatten(resp *PredictResponse) []Row {
	products := make([]string, 0, len(resp.Predictions))
	for p := range resp.Predictions {
		products = append(products, p)
	}
	sort.Strings(products)

	var rows []Row
	for _, p := range products {
		for i, day := range resp.Predictions[p] {
			rows = append(rows, Row{
				Product:         p,
				Day:             i + 1,
				Stock:           day.Stock,
				AvailableStock:  day.AvailableStock,
				PlannedOutbound: day.PlannedOutbound,
			})
		}
	}
	return rows
}

// WriteCSV writes prediction rows to path.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Product,
			fmt.Sprintf("%d", r.Day),
			fmt.Sprintf("%.2f", r.Stock),
			fmt.Sprintf("%.2f", r.AvailableStock),
			fmt.Sprintf("%.2f", r.PlannedOutbound),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes prediction rows to a single-sheet workbook at path.
func WriteXLSX(path string, rows []Row) error {
	xl := excelize.NewFile()
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Product, r.Day, r.Stock, r.AvailableStock, r.PlannedOutbound}
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return xl.SaveAs(path)
}
