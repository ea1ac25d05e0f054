package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Source column names.
const (
	ColumnYear           = "AÑO"
	ColumnClassification = "CLASIFICACION"
	ColumnCH4            = "CH4_eq"
	ColumnCO2            = "CO2_eq"
	ColumnN2O            = "N2O_eq"
	ColumnTotal          = "Total_Emisiones"
	ColumnNet            = "Emisiones_netas"
)

// RequiredColumns must be present in every input header.
var RequiredColumns = []string{ColumnYear, ColumnClassification, ColumnCH4, ColumnCO2, ColumnN2O}

// MaxQuantity bounds the magnitude of a CO2-equivalent cell. Larger values
// are rejected like unparsable ones so the weighted products stay finite.
const MaxQuantity = 1e15

// Years outside this range are treated as missing.
const (
	minYear = math.MinInt32
	maxYear = math.MaxInt32
)

// numericColumns in the order they are parsed.
var numericColumns = []string{ColumnCH4, ColumnCO2, ColumnN2O, ColumnTotal, ColumnNet}

// yearAliases and classificationAliases are folded header spellings.
var (
	yearAliases           = []string{"ano", "anio"}
	classificationAliases = []string{"clasificacion"}
)

// NormalizeResult is the output of Normalize.
type NormalizeResult struct {
	Records  []EmissionRecord
	Warnings []ParseError

	// RowsRead counts data rows in the table; Dropped counts rows removed
	// for lacking a year.
	RowsRead int
	Dropped  int
}

// StrictError joins every parse warning into one error, or returns nil when
// there were none.
func (r NormalizeResult) StrictError() error {
	if len(r.Warnings) == 0 {
		return nil
	}
	errs := make([]error, len(r.Warnings))
	for i := range r.Warnings {
		errs[i] = &r.Warnings[i]
	}
	return errors.Join(errs...)
}

// Normalize maps a raw table onto typed records. It renames the year and
// classification columns, parses decimal-comma numbers, fills missing
// numbers with zero and drops rows without a year. Row order is kept.
//
// A missing required column returns a *SchemaError. Unparsable numeric cells
// do not fail the call: they are read as zero and listed in Warnings.
func Normalize(table RawTable) (NormalizeResult, error) {
	idx, err := resolveColumns(table.Columns)
	if err != nil {
		return NormalizeResult{}, err
	}

	res := NormalizeResult{
		Records:  make([]EmissionRecord, 0, len(table.Rows)),
		RowsRead: len(table.Rows),
	}

	for i, row := range table.Rows {
		line := table.Line(i)

		year, ok := parseYear(cell(row, idx[ColumnYear]))
		if !ok {
			res.Dropped++
			continue
		}

		rec := EmissionRecord{
			Year:           year,
			Classification: strings.TrimSpace(cell(row, idx[ColumnClassification])),
			Line:           line,
		}

		for _, col := range numericColumns {
			pos, present := idx[col]
			if !present {
				continue
			}
			raw := cell(row, pos)
			v, err := parseNumber(raw)
			if err != nil {
				res.Warnings = append(res.Warnings, ParseError{Line: line, Column: col, Value: raw})
				v = 0
			}
			setNumeric(&rec, col, v)
		}

		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// resolveColumns maps canonical column names to their position in the header.
func resolveColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(numericColumns)+2)

	for i, h := range header {
		folded := foldName(h)
		switch {
		case containsString(yearAliases, folded):
			setOnce(idx, ColumnYear, i)
		case containsString(classificationAliases, folded):
			setOnce(idx, ColumnClassification, i)
		}
	}

	for _, col := range numericColumns {
		if pos, ok := exactColumn(header, col); ok {
			idx[col] = pos
			continue
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				setOnce(idx, col, i)
			}
		}
	}

	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaError{Column: col}
		}
	}
	return idx, nil
}

func exactColumn(header []string, name string) (int, bool) {
	for i, h := range header {
		if strings.TrimPrefix(h, "\ufeff") == name {
			return i, true
		}
	}
	return 0, false
}

func setOnce(idx map[string]int, key string, pos int) {
	if _, ok := idx[key]; !ok {
		idx[key] = pos
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// foldName strips a byte order mark, surrounding space, accents and case:
// "\ufeffAÑO " -> "ano".
func foldName(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// ContainsFolded reports whether substr occurs in s ignoring case and accents.
func ContainsFolded(s, substr string) bool {
	return strings.Contains(foldName(s), foldName(substr))
}

func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return row[pos]
}

// isMissing reports tokens that stand for an absent value.
func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

// parseNumber replaces decimal commas and parses the result. Missing tokens
// return 0 without error; non-finite results and magnitudes above
// MaxQuantity are errors.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) || math.Abs(v) > MaxQuantity {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// parseYear accepts "2020", "2020.0" and "2020,0".
func parseYear(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return 0, false
	}
	if y, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(y), true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f != math.Trunc(f) || f < minYear || f > maxYear {
		return 0, false
	}
	return int(f), true
}

func setNumeric(rec *EmissionRecord, col string, v float64) {
	switch col {
	case ColumnCH4:
		rec.CH4Eq = v
	case ColumnCO2:
		rec.CO2Eq = v
	case ColumnN2O:
		rec.N2OEq = v
	case ColumnTotal:
		rec.TotalEmissions = v
	case ColumnNet:
		rec.NetEmissions = v
	}
}
