package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadTableCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "sku,quantity\nA-1,10\nA-2,20\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := ReadTable(path, "utf-8")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table.NumColumns() != 2 || table.NumRows() != 2 {
		t.Fatalf("shape = %d x %d", table.NumRows(), table.NumColumns())
	}
	if table.Columns[0] != "sku" || table.Rows[1][1] != "20" {
		t.Fatalf("unexpected content: %+v", table)
	}
}

func TestReadTableCSVStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	content := "\ufeffsku,quantity\nA-1,1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := ReadTable(path, "utf-8")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table.Columns[0] != "sku" {
		t.Fatalf("BOM not stripped: %q", table.Columns[0])
	}
}

func TestReadTableCSVCP949(t *testing.T) {
	// header "sku,이름" where 이름 is EUC-KR encoded
	data := append([]byte("sku,"), 0xC0, 0xCC, 0xB8, 0xA7)
	data = append(data, []byte("\nA-1,x\n")...)
	path := filepath.Join(t.TempDir(), "kr.csv")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := ReadTable(path, "cp949")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table.Columns[1] != "이름" {
		t.Fatalf("decoded header = %q, want 이름", table.Columns[1])
	}
}

func TestReadTableEmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadTable(path, "utf-8"); err == nil {
		t.Fatal("expected error for empty csv")
	}
}

func TestReadTableUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadTable(path, "utf-8"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestReadTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	xl := excelize.NewFile()
	sheet := xl.GetSheetName(0)
	rows := [][]interface{}{
		{"sale_date", "sku", "quantity"},
		{"2024-01-15", "A-1", 10},
		{"2024-01-16", "A-2", nil}, // trailing empty cell gets padded
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := xl.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	xl.Close()

	table, err := ReadTable(path, "utf-8")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table.NumColumns() != 3 || table.NumRows() != 2 {
		t.Fatalf("shape = %d x %d", table.NumRows(), table.NumColumns())
	}
	if len(table.Rows[1]) != 3 {
		t.Fatalf("row not padded to header width: %v", table.Rows[1])
	}
	if table.Rows[0][1] != "A-1" {
		t.Fatalf("unexpected cell: %v", table.Rows[0])
	}
}
