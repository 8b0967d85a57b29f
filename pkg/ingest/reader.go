package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/transform"
)

// Table is a parsed tabular file: a header plus rows of raw cell strings.
// Typing (nulls, numerics, dates) is applied by the profiler and extractor,
// not at parse time.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) NumRows() int { return len(t.Rows) }

func (t *Table) NumColumns() int { return len(t.Columns) }

// AllowedExtensions is the upload allow-list.
var AllowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// ReadTable parses the file at path, dispatching on extension. CSV uses the
// given encoding; Excel formats are binary containers and ignore it.
func ReadTable(path, encodingName string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(path, encodingName)
	case ".xlsx", ".xls":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readCSV(path, encodingName string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if dec := decoderFor(encodingName); dec != nil {
		src = transform.NewReader(f, dec)
	}

	r := csv.NewReader(src)
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	// Strip a UTF-8 BOM that survived decoding.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Columns: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv row: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func readExcel(path string) (*Table, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		list := xl.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("no sheets found in excel file")
		}
		sheet = list[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet rows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("excel file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	t := &Table{Columns: header}
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read data row: %w", err)
		}
		// excelize drops trailing empty cells; pad so every row is rectangular.
		for len(cols) < len(header) {
			cols = append(cols, "")
		}
		if len(cols) > len(header) {
			cols = cols[:len(header)]
		}
		t.Rows = append(t.Rows, cols)
	}
	return t, nil
}
