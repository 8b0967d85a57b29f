package ingest

import (
	"encoding/json"
	"math"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Columns: []string{"sku", "quantity", "price", "in_stock", "note"},
		Rows: [][]string{
			{"A-1", "10", "9.99", "true", "first"},
			{"A-2", "20", "19.50", "false", ""},
			{"A-3", "30", "NaN", "true", "third"},
			{"A-1", "10", "9.99", "true", "first"},
		},
	}
}

func TestBuildProfileShapeAndCounts(t *testing.T) {
	p := BuildProfile(sampleTable())

	if p.Shape != [2]int{4, 5} {
		t.Fatalf("shape = %v, want [4 5]", p.Shape)
	}
	if p.TotalRows != 4 || p.TotalColumns != 5 {
		t.Fatalf("totals = %d x %d, want 4 x 5", p.TotalRows, p.TotalColumns)
	}
	if p.DuplicateCount != 1 {
		t.Fatalf("duplicate_count = %d, want 1", p.DuplicateCount)
	}
	// one empty note + one NaN price
	if p.NullCount != 2 {
		t.Fatalf("null_count = %d, want 2", p.NullCount)
	}
	if p.NullByColumn["note"] != 1 || p.NullByColumn["price"] != 1 {
		t.Fatalf("null_by_column = %v", p.NullByColumn)
	}
}

func TestBuildProfileDtypes(t *testing.T) {
	p := BuildProfile(sampleTable())

	want := map[string]string{
		"sku":      "object",
		"quantity": "int64",
		"price":    "float64", // has a null, so even parseable values stay float
		"in_stock": "bool",
		"note":     "object",
	}
	for col, dtype := range want {
		if p.Dtypes[col] != dtype {
			t.Errorf("dtype[%s] = %q, want %q", col, p.Dtypes[col], dtype)
		}
	}
}

func TestBuildProfileIntColumnWithNullsPromotes(t *testing.T) {
	table := &Table{
		Columns: []string{"qty"},
		Rows:    [][]string{{"1"}, {""}, {"3"}},
	}
	p := BuildProfile(table)
	if p.Dtypes["qty"] != "float64" {
		t.Fatalf("dtype = %q, want float64 for int column with nulls", p.Dtypes["qty"])
	}
}

func TestBuildProfileAllNullColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"empty"},
		Rows:    [][]string{{""}, {"null"}, {"N/A"}},
	}
	p := BuildProfile(table)
	if p.Dtypes["empty"] != "float64" {
		t.Fatalf("dtype = %q, want float64 for all-null column", p.Dtypes["empty"])
	}
	if p.NullCount != 3 {
		t.Fatalf("null_count = %d, want 3", p.NullCount)
	}
}

func TestBuildProfileHead(t *testing.T) {
	p := BuildProfile(sampleTable())
	if len(p.Head) != 4 {
		t.Fatalf("head length = %d, want 4", len(p.Head))
	}
	first := p.Head[0]
	if first["sku"] != "A-1" {
		t.Errorf("head sku = %v", first["sku"])
	}
	if n, ok := first["quantity"].(int64); !ok || n != 10 {
		t.Errorf("head quantity = %v (%T), want int64 10", first["quantity"], first["quantity"])
	}
	if b, ok := first["in_stock"].(bool); !ok || !b {
		t.Errorf("head in_stock = %v", first["in_stock"])
	}
}

func TestBuildProfileHeadCapped(t *testing.T) {
	table := &Table{Columns: []string{"n"}}
	for i := 0; i < 20; i++ {
		table.Rows = append(table.Rows, []string{"1"})
	}
	p := BuildProfile(table)
	if len(p.Head) != headSample {
		t.Fatalf("head length = %d, want %d", len(p.Head), headSample)
	}
}

func TestBuildProfileStatistics(t *testing.T) {
	table := &Table{
		Columns: []string{"v"},
		Rows:    [][]string{{"1"}, {"2"}, {"3"}, {"4"}},
	}
	p := BuildProfile(table)
	stats, ok := p.Statistics["numeric"]["v"]
	if !ok {
		t.Fatalf("missing numeric stats for v: %v", p.Statistics)
	}
	checks := map[string]float64{
		"count": 4,
		"mean":  2.5,
		"min":   1,
		"max":   4,
		"25%":   1.75,
		"50%":   2.5,
		"75%":   3.25,
	}
	for k, want := range checks {
		got := stats[k]
		if got == nil || math.Abs(*got-want) > 1e-9 {
			t.Errorf("stats[%s] = %v, want %v", k, got, want)
		}
	}
	// sample std of 1..4 is sqrt(5/3)
	if stats["std"] == nil || math.Abs(*stats["std"]-math.Sqrt(5.0/3.0)) > 1e-9 {
		t.Errorf("stats[std] = %v", stats["std"])
	}
}

func TestBuildProfileStdNilForSingleValue(t *testing.T) {
	table := &Table{Columns: []string{"v"}, Rows: [][]string{{"42"}}}
	p := BuildProfile(table)
	stats := p.Statistics["numeric"]["v"]
	if stats["std"] != nil {
		t.Fatalf("std = %v, want nil for a single observation", *stats["std"])
	}
	if stats["mean"] == nil || *stats["mean"] != 42 {
		t.Fatalf("mean = %v, want 42", stats["mean"])
	}
}

func TestBuildProfileEmptyTable(t *testing.T) {
	p := BuildProfile(&Table{Columns: []string{"a", "b"}})
	if p.TotalRows != 0 || p.TotalColumns != 2 {
		t.Fatalf("totals = %d x %d", p.TotalRows, p.TotalColumns)
	}
	if len(p.Head) != 0 {
		t.Fatalf("head not empty: %v", p.Head)
	}
}

func TestProfileJSONRoundTrip(t *testing.T) {
	p := BuildProfile(sampleTable())
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"shape", "total_rows", "dtypes", "null_by_column", "duplicate_count", "head", "statistics"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("serialized profile missing %q", key)
		}
	}
}
