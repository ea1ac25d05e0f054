package domain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Correlation is the Pearson coefficient between two gases' raw CO2-eq
// quantities. OK is false when it is undefined: fewer than two rows, or a
// column with zero variance.
type Correlation struct {
	A     Gas     `json:"a"`
	B     Gas     `json:"b"`
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

// Correlations returns the pairwise coefficients CH4-CO2, CH4-N2O and
// CO2-N2O.
func Correlations(records []DerivedRecord) []Correlation {
	cols := make(map[Gas][]float64, len(Gases))
	for _, g := range Gases {
		col := make([]float64, len(records))
		for i := range records {
			col[i] = records[i].Eq(g)
		}
		cols[g] = col
	}

	pairs := [][2]Gas{{CH4, CO2}, {CH4, N2O}, {CO2, N2O}}
	out := make([]Correlation, len(pairs))
	for i, p := range pairs {
		out[i] = Correlation{A: p[0], B: p[1]}
		x, y := cols[p[0]], cols[p[1]]
		if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
			continue
		}
		v := stat.Correlation(x, y, nil)
		if math.IsNaN(v) {
			continue
		}
		out[i].Value = v
		out[i].OK = true
	}
	return out
}

// Summary is a descriptive summary of one column. Std is the sample standard
// deviation; quartiles interpolate linearly between closest ranks.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// describedColumns are the columns Describe reports, in order.
var describedColumns = []struct {
	name string
	get  func(DerivedRecord) float64
}{
	{ColumnCH4, func(r DerivedRecord) float64 { return r.CH4Eq }},
	{ColumnCO2, func(r DerivedRecord) float64 { return r.CO2Eq }},
	{ColumnN2O, func(r DerivedRecord) float64 { return r.N2OEq }},
	{ColumnTotal, func(r DerivedRecord) float64 { return r.TotalEmissions }},
	{"Total_GWP_weighted", func(r DerivedRecord) float64 { return r.TotalGWPWeighted }},
	{"Impacto_Combinado", func(r DerivedRecord) float64 { return r.CombinedImpact }},
}

// Describe summarizes the raw gas columns, the source total, the GWP-weighted
// total and the combined impact. Statistics other than Count are NaN for an
// empty input, and Std is NaN for a single row.
func Describe(records []DerivedRecord) []Summary {
	out := make([]Summary, len(describedColumns))
	for i, c := range describedColumns {
		col := make([]float64, len(records))
		for j := range records {
			col[j] = c.get(records[j])
		}
		out[i] = summarize(c.name, col)
	}
	return out
}

func summarize(name string, col []float64) Summary {
	s := Summary{Column: name, Count: len(col)}
	if len(col) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	s.Mean, s.Std = stat.MeanStdDev(col, nil)
	if len(col) < 2 {
		s.Std = math.NaN()
	}
	s.Min = floats.Min(col)
	s.Max = floats.Max(col)

	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)
	s.Q25 = quantile(0.25, sorted)
	s.Median = quantile(0.5, sorted)
	s.Q75 = quantile(0.75, sorted)
	return s
}

// quantile interpolates linearly between the closest ranks of sorted data
// at position p*(n-1).
func quantile(p float64, sorted []float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
