// Package export writes the derived dataset as CSV and XLSX tables.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// DerivedColumns is the header of the derived CSV: the source columns
// followed by the weighted ones.
var DerivedColumns = []string{
	domain.ColumnYear,
	domain.ColumnClassification,
	domain.ColumnCH4,
	domain.ColumnCO2,
	domain.ColumnN2O,
	domain.ColumnTotal,
	domain.ColumnNet,
	"CO2_GWP_weighted",
	"CH4_GWP_weighted",
	"N2O_GWP_weighted",
	"Total_GWP_weighted",
	"CO2_damage_weighted",
	"CH4_damage_weighted",
	"N2O_damage_weighted",
	"Total_damage_weighted",
	"Impacto_Combinado",
	"CO2_porcentaje_contribucion",
	"CH4_porcentaje_contribucion",
	"N2O_porcentaje_contribucion",
}

// WriteCSV writes records under DerivedColumns. Floats use the shortest
// representation that parses back to the same value.
func WriteCSV(w io.Writer, records []domain.DerivedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DerivedColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r domain.DerivedRecord) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(r.Year),
		r.Classification,
		f(r.CH4Eq),
		f(r.CO2Eq),
		f(r.N2OEq),
		f(r.TotalEmissions),
		f(r.NetEmissions),
		f(r.GWPWeighted.CO2),
		f(r.GWPWeighted.CH4),
		f(r.GWPWeighted.N2O),
		f(r.TotalGWPWeighted),
		f(r.DamageWeighted.CO2),
		f(r.DamageWeighted.CH4),
		f(r.DamageWeighted.N2O),
		f(r.TotalDamageWeighted),
		f(r.CombinedImpact),
		f(r.ContributionPct.CO2),
		f(r.ContributionPct.CH4),
		f(r.ContributionPct.N2O),
	}
}

// ReadCSV parses a file produced by WriteCSV. Line numbers are set from the
// file.
func ReadCSV(r io.Reader) ([]domain.DerivedRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("derived csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(DerivedColumns) {
		return nil, fmt.Errorf("derived csv has %d columns, want %d", len(header), len(DerivedColumns))
	}
	for i, name := range DerivedColumns {
		if header[i] != name {
			return nil, &domain.SchemaError{Column: name}
		}
	}

	var out []domain.DerivedRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec, err := parseRow(row, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func parseRow(row []string, line int) (domain.DerivedRecord, error) {
	year, err := strconv.Atoi(row[0])
	if err != nil {
		return domain.DerivedRecord{}, &domain.ParseError{Line: line, Column: DerivedColumns[0], Value: row[0]}
	}

	nums := make([]float64, len(row)-2)
	for i := range nums {
		v, err := strconv.ParseFloat(row[i+2], 64)
		if err != nil {
			return domain.DerivedRecord{}, &domain.ParseError{Line: line, Column: DerivedColumns[i+2], Value: row[i+2]}
		}
		nums[i] = v
	}

	return domain.DerivedRecord{
		EmissionRecord: domain.EmissionRecord{
			Year:           year,
			Classification: row[1],
			CH4Eq:          nums[0],
			CO2Eq:          nums[1],
			N2OEq:          nums[2],
			TotalEmissions: nums[3],
			NetEmissions:   nums[4],
			Line:           line,
		},
		GWPWeighted:         domain.GasValues{CO2: nums[5], CH4: nums[6], N2O: nums[7]},
		TotalGWPWeighted:    nums[8],
		DamageWeighted:      domain.GasValues{CO2: nums[9], CH4: nums[10], N2O: nums[11]},
		TotalDamageWeighted: nums[12],
		CombinedImpact:      nums[13],
		ContributionPct:     domain.GasValues{CO2: nums[14], CH4: nums[15], N2O: nums[16]},
	}, nil
}
