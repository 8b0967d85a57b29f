package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// requiredSalesColumns must all be present (case-insensitively) for a table to
// qualify for domain extraction. Revenue is optional.
var requiredSalesColumns = []string{"sale_date", "sku", "quantity"}

// SalesRecord is one coerced row from a recognized sales table, not yet bound
// to a tenant or product id.
type SalesRecord struct {
	SKU      string
	SaleDate time.Time
	Quantity float64
	Revenue  float64
}

// ExtractOutcome tags which extraction path ran, so callers and tests can
// assert on it instead of inferring from side effects.
type ExtractOutcome struct {
	Applied bool
	Records []SalesRecord
}

// HasSalesSchema reports whether the table's columns, lowercased, are a
// superset of {sale_date, sku, quantity}.
func HasSalesSchema(t *Table) bool {
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[strings.ToLower(strings.TrimSpace(c))] = true
	}
	for _, want := range requiredSalesColumns {
		if !have[want] {
			return false
		}
	}
	return true
}

// ExtractSales coerces a recognized sales table into typed records. Tables
// lacking the required columns come back with Applied=false and no error; the
// file is still profiled and the job still completes. A row that cannot be
// coerced (bad date, non-numeric quantity) fails the whole extraction, and
// with it the job. Revenue defaults to 0.0 when missing or not a number.
func ExtractSales(t *Table) (ExtractOutcome, error) {
	if !HasSalesSchema(t) {
		return ExtractOutcome{}, nil
	}

	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[strings.ToLower(strings.TrimSpace(c))] = i
	}
	dateIdx := idx["sale_date"]
	skuIdx := idx["sku"]
	qtyIdx := idx["quantity"]
	revIdx, hasRevenue := idx["revenue"]

	records := make([]SalesRecord, 0, t.NumRows())
	for n, row := range t.Rows {
		date, err := parseSaleDate(cellAt(row, dateIdx))
		if err != nil {
			return ExtractOutcome{}, fmt.Errorf("row %d: %w", n+1, err)
		}
		qty, err := parseQuantity(cellAt(row, qtyIdx))
		if err != nil {
			return ExtractOutcome{}, fmt.Errorf("row %d: %w", n+1, err)
		}
		rec := SalesRecord{
			SKU:      strings.TrimSpace(cellAt(row, skuIdx)),
			SaleDate: date,
			Quantity: qty,
		}
		if hasRevenue {
			rec.Revenue = parseRevenue(cellAt(row, revIdx))
		}
		records = append(records, rec)
	}
	return ExtractOutcome{Applied: true, Records: records}, nil
}

// saleDateFormats are tried in order after the Excel-serial fast path.
var saleDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"20060102",
	"01/02/2006",
	"01-02-06",
	"Jan 2, 2006",
}

// maxExcelSerial is 9999-12-31, the last date Excel can represent. Numerics
// above it are not serial dates; they fall through to the format list.
const maxExcelSerial = 2958465

// parseSaleDate accepts ISO and common slash formats plus Excel serial
// numbers (1900 date system, with the leap-year bug adjustment).
// The result is truncated to a calendar date.
func parseSaleDate(v string) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty sale_date")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 && serial <= maxExcelSerial {
		days := int(serial)
		if serial >= 60 {
			days-- // Excel treats 1900 as a leap year
		}
		ts := time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		return truncateToDate(ts), nil
	}

	for _, layout := range saleDateFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return truncateToDate(ts), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable sale_date %q", s)
}

func truncateToDate(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseQuantity(v string) (float64, error) {
	qty, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable quantity %q", v)
	}
	return qty, nil
}

func parseRevenue(v string) float64 {
	if isNullCell(v) {
		return 0.0
	}
	rev, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0.0
	}
	return rev
}
