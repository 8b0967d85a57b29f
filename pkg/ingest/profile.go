package ingest

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Profile is the structural summary of a parsed table. It is computed once per
// ingestion, serialized to JSON on the job row, and never mutated afterward.
// Numeric statistics follow the usual describe() shape: count, mean, std, min,
// quartiles, max; NaN values serialize as null.
type Profile struct {
	Shape          [2]int                                    `json:"shape"`
	TotalRows      int                                       `json:"total_rows"`
	TotalColumns   int                                       `json:"total_columns"`
	Columns        []string                                  `json:"columns"`
	Dtypes         map[string]string                         `json:"dtypes"`
	NullCount      int                                       `json:"null_count"`
	NullByColumn   map[string]int                            `json:"null_by_column"`
	DuplicateCount int                                       `json:"duplicate_count"`
	MemoryUsage    int                                       `json:"memory_usage"`
	Head           []map[string]any                          `json:"head"`
	Statistics     map[string]map[string]map[string]*float64 `json:"statistics"`
}

const headSample = 5

// nullTokens mirrors the NA markers a dataframe reader would treat as missing.
var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"na":   true,
	"n/a":  true,
	"none": true,
}

func isNullCell(v string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(v))]
}

// BuildProfile computes the profile for a table. It is deterministic for a
// given table and tolerates zero-row and all-null input: the statistics block
// is simply empty rather than an error.
func BuildProfile(t *Table) *Profile {
	p := &Profile{
		Shape:        [2]int{t.NumRows(), t.NumColumns()},
		TotalRows:    t.NumRows(),
		TotalColumns: t.NumColumns(),
		Columns:      append([]string(nil), t.Columns...),
		Dtypes:       make(map[string]string, t.NumColumns()),
		NullByColumn: make(map[string]int, t.NumColumns()),
		Head:         []map[string]any{},
		Statistics:   map[string]map[string]map[string]*float64{},
	}

	dtypes := make([]string, t.NumColumns())
	for i, col := range t.Columns {
		dtypes[i] = inferColumnType(t, i)
		p.Dtypes[col] = dtypes[i]
	}

	seen := make(map[string]bool, t.NumRows())
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			v := cellAt(row, i)
			p.MemoryUsage += len(v) + 16
			if isNullCell(v) {
				p.NullByColumn[col]++
				p.NullCount++
			}
		}
		key := strings.Join(row, "\x1f")
		if seen[key] {
			p.DuplicateCount++
		}
		seen[key] = true
	}

	for r := 0; r < t.NumRows() && r < headSample; r++ {
		rec := make(map[string]any, t.NumColumns())
		for i, col := range t.Columns {
			rec[col] = typedCell(cellAt(t.Rows[r], i), dtypes[i])
		}
		p.Head = append(p.Head, rec)
	}

	numeric := map[string]map[string]*float64{}
	for i, col := range t.Columns {
		if dtypes[i] != "int64" && dtypes[i] != "float64" {
			continue
		}
		var values []float64
		for _, row := range t.Rows {
			v := cellAt(row, i)
			if isNullCell(v) {
				continue
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				values = append(values, f)
			}
		}
		numeric[col] = describe(values)
	}
	if len(numeric) > 0 {
		p.Statistics["numeric"] = numeric
	}
	return p
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// inferColumnType assigns a dataframe-style dtype label to a column. Integer
// columns containing nulls promote to float64, and all-null columns are
// float64, the usual dataframe convention.
func inferColumnType(t *Table, col int) string {
	sawValue := false
	hasNull := false
	isInt, isFloat, isBool := true, true, true
	for _, row := range t.Rows {
		v := cellAt(row, col)
		if isNullCell(v) {
			hasNull = true
			continue
		}
		sawValue = true
		s := strings.TrimSpace(v)
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(s) {
			case "true", "false":
			default:
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return "object"
		}
	}
	switch {
	case !sawValue:
		return "float64"
	case isBool:
		return "bool"
	case isInt && !hasNull:
		return "int64"
	case isInt || isFloat:
		return "float64"
	default:
		return "object"
	}
}

// typedCell converts a raw cell to the JSON value implied by its column dtype.
func typedCell(v, dtype string) any {
	if isNullCell(v) {
		return nil
	}
	s := strings.TrimSpace(v)
	switch dtype {
	case "int64":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "float64":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "bool":
		return strings.EqualFold(s, "true")
	}
	return v
}

// describe computes count/mean/std/min/quartiles/max for one numeric column.
// std uses the sample definition and is null for fewer than two observations.
func describe(values []float64) map[string]*float64 {
	count := float64(len(values))
	out := map[string]*float64{
		"count": &count,
		"mean":  nil,
		"std":   nil,
		"min":   nil,
		"25%":   nil,
		"50%":   nil,
		"75%":   nil,
		"max":   nil,
	}
	if len(values) == 0 {
		return out
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / count
	out["mean"] = fptr(mean)
	out["min"] = fptr(sorted[0])
	out["max"] = fptr(sorted[len(sorted)-1])
	out["25%"] = fptr(quantile(sorted, 0.25))
	out["50%"] = fptr(quantile(sorted, 0.5))
	out["75%"] = fptr(quantile(sorted, 0.75))

	if len(values) >= 2 {
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		out["std"] = fptr(math.Sqrt(ss / (count - 1)))
	}
	return out
}

// quantile interpolates linearly between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func fptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
