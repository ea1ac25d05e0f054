package export

import (
	"fmt"
	"io"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetRecords            = "Registros"
	SheetByYear             = "Emisiones_por_Anio"
	SheetTopClassifications = "Top_Clasificaciones"
	SheetGases              = "Gases"
)

// WriteXLSX writes a workbook with the derived records, the per-year table,
// the top classifications and the gas constants in use.
func WriteXLSX(w io.Writer, ds domain.Dataset, gc domain.GasConstants) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := make([][]any, len(ds.Records))
	for i, r := range ds.Records {
		rows[i] = []any{
			r.Year, r.Classification,
			r.CH4Eq, r.CO2Eq, r.N2OEq, r.TotalEmissions, r.NetEmissions,
			r.GWPWeighted.CO2, r.GWPWeighted.CH4, r.GWPWeighted.N2O, r.TotalGWPWeighted,
			r.DamageWeighted.CO2, r.DamageWeighted.CH4, r.DamageWeighted.N2O, r.TotalDamageWeighted,
			r.CombinedImpact,
			r.ContributionPct.CO2, r.ContributionPct.CH4, r.ContributionPct.N2O,
		}
	}
	if err := writeSheet(f, SheetRecords, DerivedColumns, rows, bold); err != nil {
		return err
	}

	byYear := make([][]any, len(ds.Stats.EmissionsByYear))
	for i, y := range ds.Stats.EmissionsByYear {
		byYear[i] = []any{y.Year, y.GWPWeighted.CO2, y.GWPWeighted.CH4, y.GWPWeighted.N2O, y.TotalGWPWeighted}
	}
	if err := writeSheet(f, SheetByYear,
		[]string{"Año", "CO2_total", "CH4_total", "N2O_total", "Total_GWP"}, byYear, bold); err != nil {
		return err
	}

	top := make([][]any, len(ds.Stats.TopClassifications))
	for i, c := range ds.Stats.TopClassifications {
		top[i] = []any{i + 1, c.Classification, c.TotalGWPWeighted, c.CombinedImpact}
	}
	if err := writeSheet(f, SheetTopClassifications,
		[]string{"Rank", "Clasificación", "Total_GWP_weighted", "Impacto_Combinado"}, top, bold); err != nil {
		return err
	}

	info := domain.GasImpactInfo(gc)
	gases := make([][]any, len(info))
	for i, g := range info {
		gases[i] = []any{string(g.Gas), g.Name, g.GWP, g.DamageFactor, g.Lifetime, g.Sources, g.Impact}
	}
	if err := writeSheet(f, SheetGases,
		[]string{"Gas", "Nombre", "GWP", "Factor de daño", "Vida media", "Fuentes", "Impacto"}, gases, bold); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
