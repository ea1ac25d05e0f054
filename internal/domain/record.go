package domain

import "time"

// RawTable is a header plus string cells, as read from the source file.
// Every row has len(Columns) cells.
type RawTable struct {
	Columns []string
	Rows    [][]string

	// Lines holds the 1-based source line where each row starts. Quoted
	// cells may span lines, so it is not derivable from the row index.
	Lines []int
}

// Line returns the source line of row i. Tables built without Lines assume
// one line per row after the header.
func (t RawTable) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// EmissionRecord is one normalized inventory row.
type EmissionRecord struct {
	Year           int     `json:"year"`
	Classification string  `json:"classification"`
	CH4Eq          float64 `json:"ch4_eq"`
	CO2Eq          float64 `json:"co2_eq"`
	N2OEq          float64 `json:"n2o_eq"`
	TotalEmissions float64 `json:"total_emissions"`
	NetEmissions   float64 `json:"net_emissions"`

	// Line is the 1-based line in the source file, header included.
	Line int `json:"line,omitempty"`
}

// Eq returns the CO2-equivalent quantity recorded for the gas.
func (r EmissionRecord) Eq(g Gas) float64 {
	switch g {
	case CO2:
		return r.CO2Eq
	case CH4:
		return r.CH4Eq
	case N2O:
		return r.N2OEq
	default:
		return 0
	}
}

// GasValues holds one float per gas.
type GasValues struct {
	CO2 float64 `json:"co2"`
	CH4 float64 `json:"ch4"`
	N2O float64 `json:"n2o"`
}

// Get returns the value for g.
func (v GasValues) Get(g Gas) float64 {
	switch g {
	case CO2:
		return v.CO2
	case CH4:
		return v.CH4
	case N2O:
		return v.N2O
	default:
		return 0
	}
}

// Sum adds the three gases in canonical order (CO2, CH4, N2O).
func (v GasValues) Sum() float64 {
	return v.CO2 + v.CH4 + v.N2O
}

func (v *GasValues) set(g Gas, f float64) {
	switch g {
	case CO2:
		v.CO2 = f
	case CH4:
		v.CH4 = f
	case N2O:
		v.N2O = f
	}
}

// DerivedRecord is an EmissionRecord with its weighted columns.
type DerivedRecord struct {
	EmissionRecord

	GWPWeighted         GasValues `json:"gwp_weighted"`
	TotalGWPWeighted    float64   `json:"total_gwp_weighted"`
	DamageWeighted      GasValues `json:"damage_weighted"`
	TotalDamageWeighted float64   `json:"total_damage_weighted"`
	CombinedImpact      float64   `json:"combined_impact"`
	ContributionPct     GasValues `json:"contribution_pct"`
}

// YearGasTotals is one row of the per-year table.
type YearGasTotals struct {
	Year             int       `json:"year"`
	GWPWeighted      GasValues `json:"gwp_weighted"`
	TotalGWPWeighted float64   `json:"total_gwp_weighted"`
}

// ClassificationTotals is one row of the top classifications table.
type ClassificationTotals struct {
	Classification   string  `json:"classification"`
	TotalGWPWeighted float64 `json:"total_gwp_weighted"`
	CombinedImpact   float64 `json:"combined_impact"`
}

// AggregateStats summarizes a derived collection.
type AggregateStats struct {
	TotalGWPWeighted    float64                `json:"total_gwp_weighted"`
	TotalDamageWeighted float64                `json:"total_damage_weighted"`
	TotalCombinedImpact float64                `json:"total_combined_impact"`
	MeanContributionPct GasValues              `json:"mean_contribution_pct"`
	EmissionsByYear     []YearGasTotals        `json:"emissions_by_year"`
	TopClassifications  []ClassificationTotals `json:"top_classifications"`
}

// Dataset is what a pipeline run hands to its consumers. Consumers must not
// mutate it.
type Dataset struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
	Records     []DerivedRecord `json:"records"`
	Stats       AggregateStats  `json:"stats"`
	Warnings    []ParseError    `json:"-"`
	RowsRead    int             `json:"rows_read"`
	RowsDropped int             `json:"rows_dropped"`

	// Empty is set when no row survived year filtering.
	Empty bool `json:"empty"`
}
