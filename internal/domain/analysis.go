package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// View selects which quantity the dashboard charts.
type View string

const (
	ViewOriginal View = "original"
	ViewGWP      View = "gwp"
	ViewCombined View = "combined"
)

// ParseView resolves a view name; the empty string selects ViewOriginal.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewOriginal:
		return ViewOriginal, nil
	case ViewGWP:
		return ViewGWP, nil
	case ViewCombined:
		return ViewCombined, nil
	default:
		return "", fmt.Errorf("unknown view %q (want original, gwp or combined)", s)
	}
}

// Label is the human-readable suffix used in titles.
func (v View) Label() string {
	switch v {
	case ViewGWP:
		return "GWP-weighted"
	case ViewCombined:
		return "Combined impact"
	default:
		return "Original"
	}
}

// Total returns the view's total column for r: TotalEmissions,
// TotalGWPWeighted or CombinedImpact.
func (v View) Total(r DerivedRecord) float64 {
	switch v {
	case ViewGWP:
		return r.TotalGWPWeighted
	case ViewCombined:
		return r.CombinedImpact
	default:
		return r.TotalEmissions
	}
}

// PerGas returns the view's per-gas columns for r: raw CO2-eq quantities,
// GWP-weighted, or damage-weighted for the combined view.
func (v View) PerGas(r DerivedRecord) GasValues {
	switch v {
	case ViewGWP:
		return r.GWPWeighted
	case ViewCombined:
		return r.DamageWeighted
	default:
		return GasValues{CO2: r.CO2Eq, CH4: r.CH4Eq, N2O: r.N2OEq}
	}
}

// FilterYears keeps records whose year is selected. An empty selection keeps
// everything.
func FilterYears(records []DerivedRecord, years []int) []DerivedRecord {
	if len(years) == 0 {
		return records
	}
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	out := make([]DerivedRecord, 0, len(records))
	for _, r := range records {
		if want[r.Year] {
			out = append(out, r)
		}
	}
	return out
}

// ParseYears reads a comma-separated year list such as "2019,2020". The
// empty string selects every year.
func ParseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

// Selection is the record filter shared by the report, dashboard and API.
type Selection struct {
	Years      []int
	Industrial bool
}

// Apply filters records by year, then by industrial classification.
func (s Selection) Apply(records []DerivedRecord) []DerivedRecord {
	out := FilterYears(records, s.Years)
	if s.Industrial {
		out = FilterIndustrial(out)
	}
	return out
}

// industrialMarkers identify industrial classifications.
var industrialMarkers = []string{"Industr", "Fabricación"}

// IsIndustrial reports whether a classification names an industrial sector.
func IsIndustrial(classification string) bool {
	for _, m := range industrialMarkers {
		if ContainsFolded(classification, m) {
			return true
		}
	}
	return false
}

// FilterIndustrial keeps industrial classifications.
func FilterIndustrial(records []DerivedRecord) []DerivedRecord {
	out := make([]DerivedRecord, 0, len(records))
	for _, r := range records {
		if IsIndustrial(r.Classification) {
			out = append(out, r)
		}
	}
	return out
}

// KeyMetrics are the headline numbers for one view.
type KeyMetrics struct {
	View  View      `json:"view"`
	Total float64   `json:"total"`
	Gas   GasValues `json:"gas"`
}

// ComputeKeyMetrics sums the view's total and per-gas columns.
func ComputeKeyMetrics(records []DerivedRecord, v View) KeyMetrics {
	m := KeyMetrics{View: v}
	for _, r := range records {
		m.Total += v.Total(r)
		g := v.PerGas(r)
		m.Gas.CO2 += g.CO2
		m.Gas.CH4 += g.CH4
		m.Gas.N2O += g.N2O
	}
	return m
}

// YearValue is one point of a per-year series.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// YearGasValues is one point of the per-gas, per-year series.
type YearGasValues struct {
	Year int       `json:"year"`
	Gas  GasValues `json:"gas"`
}

// TotalsByYear sums the view's total per year, ascending.
func TotalsByYear(records []DerivedRecord, v View) []YearValue {
	groups := GroupBy(records, func(r DerivedRecord) int { return r.Year })
	out := make([]YearValue, len(groups))
	for i, g := range groups {
		out[i].Year = g.Key
		for _, r := range g.Records {
			out[i].Value += v.Total(r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// GasSeriesByYear sums the view's per-gas columns per year, ascending.
func GasSeriesByYear(records []DerivedRecord, v View) []YearGasValues {
	groups := GroupBy(records, func(r DerivedRecord) int { return r.Year })
	out := make([]YearGasValues, len(groups))
	for i, g := range groups {
		out[i].Year = g.Key
		for _, r := range g.Records {
			pg := v.PerGas(r)
			out[i].Gas.CO2 += pg.CO2
			out[i].Gas.CH4 += pg.CH4
			out[i].Gas.N2O += pg.N2O
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// ClassificationValue is a classification with a summed value and its share
// of the grand total in percent.
type ClassificationValue struct {
	Classification string  `json:"classification"`
	Value          float64 `json:"value"`
	SharePct       float64 `json:"share_pct"`
}

// ClassificationShares sums the view's total per classification, sorted
// descending with ties in first-encounter order. Shares are zero when the
// grand total is zero.
func ClassificationShares(records []DerivedRecord, v View) []ClassificationValue {
	groups := GroupBy(records, func(r DerivedRecord) string { return r.Classification })
	out := make([]ClassificationValue, len(groups))
	var grand float64
	for i, g := range groups {
		out[i].Classification = g.Key
		for _, r := range g.Records {
			out[i].Value += v.Total(r)
		}
		grand += out[i].Value
	}
	if grand != 0 {
		for i := range out {
			out[i].SharePct = out[i].Value / grand * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// TopClassifications returns the n classifications with the largest view
// total.
func TopClassifications(records []DerivedRecord, v View, n int) []ClassificationValue {
	out := ClassificationShares(records, v)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Info describes the shape of a record collection.
type Info struct {
	Records         int   `json:"records"`
	Years           []int `json:"years"`
	Classifications int   `json:"classifications"`
}

// DatasetInfo counts records, distinct years (ascending) and distinct
// classifications.
func DatasetInfo(records []DerivedRecord) Info {
	years := make(map[int]struct{})
	classes := make(map[string]struct{})
	for _, r := range records {
		years[r.Year] = struct{}{}
		classes[r.Classification] = struct{}{}
	}
	info := Info{Records: len(records), Years: make([]int, 0, len(years)), Classifications: len(classes)}
	for y := range years {
		info.Years = append(info.Years, y)
	}
	sort.Ints(info.Years)
	return info
}
