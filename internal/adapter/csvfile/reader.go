// Package csvfile loads emission inventory files into raw tables.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Reader loads a CSV file from disk. It implements pipeline.Extractor.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Extract reads the file at path. A missing file returns an error wrapping
// domain.ErrFileNotFound.
func (r *Reader) Extract(_ context.Context, path string) (domain.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RawTable{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return domain.RawTable{}, fmt.Errorf("read %s: %w", path, err)
	}
	table, err := Parse(data)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, nil
}

// Parse decodes CSV bytes into a raw table. The delimiter is a comma unless
// the header line only contains semicolons. Short rows are padded with empty
// cells so every row matches the header width. Blank rows and unnamed empty
// columns, as left behind by spreadsheet exports, are removed.
func Parse(data []byte) (domain.RawTable, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.RawTable{}, errors.New("empty file: no header")
	}
	if err != nil {
		return domain.RawTable{}, err
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawTable{}, err
		}
		// The first field's line is where a multi-line record starts.
		line, _ := cr.FieldPos(0)
		rows = append(rows, append(fitRow(row, len(header)), strconv.Itoa(line)))
	}
	if len(rows) == 0 {
		return domain.RawTable{Columns: header, Rows: [][]string{}}, nil
	}

	return compact(header, rows)
}

// lineColumn carries each row's source line through the frame.
const lineColumn = "line"

var hasContent = func(el series.Element) bool {
	return strings.TrimSpace(el.String()) != ""
}

// compact loads the rows into a frame with positional column names, keeps
// the rows where any cell has content and drops unnamed columns that never
// do. Every cell stays text; missing tokens and numbers are interpreted by
// domain.Normalize.
func compact(header []string, rows [][]string) (domain.RawTable, error) {
	names := make([]string, len(header)+1)
	for i := range header {
		names[i] = "c" + strconv.Itoa(i)
	}
	names[len(header)] = lineColumn

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(false),
		dataframe.Names(names...),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)

	filters := make([]dataframe.F, len(header))
	for i := range header {
		filters[i] = dataframe.F{Colidx: i, Comparator: series.CompFunc, Comparando: hasContent}
	}
	df = df.Filter(filters...)
	if df.Err != nil {
		return domain.RawTable{}, df.Err
	}

	var keep []int
	var columns []string
	for i, name := range header {
		if strings.TrimSpace(name) == "" && !anyContent(df.Col(names[i])) {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, name)
	}
	if len(keep) == 0 {
		// Nothing to select; normalization reports the missing columns.
		return domain.RawTable{Columns: header, Rows: [][]string{}}, nil
	}

	lineCells := df.Col(lineColumn).Records()
	lines := make([]int, len(lineCells))
	for i, cell := range lineCells {
		n, err := strconv.Atoi(cell)
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("line column: %w", err)
		}
		lines[i] = n
	}

	df = df.Select(keep)
	if df.Err != nil {
		return domain.RawTable{}, df.Err
	}
	out := df.Records()[1:]
	if len(out) == 0 {
		out = [][]string{}
	}
	return domain.RawTable{Columns: columns, Rows: out, Lines: lines}, nil
}

func anyContent(s series.Series) bool {
	for _, cell := range s.Records() {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func fitRow(row []string, width int) []string {
	switch {
	case len(row) == width:
		return row
	case len(row) > width:
		return row[:width]
	default:
		padded := make([]string, width)
		copy(padded, row)
		return padded
	}
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.IndexByte(line, ',') < 0 && bytes.IndexByte(line, ';') >= 0 {
		return ';'
	}
	return ','
}

// ReadAll is Extract for callers holding an io.Reader.
func ReadAll(r io.Reader) (domain.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RawTable{}, err
	}
	return Parse(data)
}
