package domain

import (
	"fmt"
	"sort"
)

// DefaultTopN is the size of the top classifications table.
const DefaultTopN = 10

// MaxTopN bounds the configurable table size.
const MaxTopN = 50

// Summarize computes the aggregate view over a derived collection with the
// default top-10 classification table. An empty input returns zero stats and
// ErrEmptyDataset.
func Summarize(records []DerivedRecord) (AggregateStats, error) {
	return SummarizeTop(records, DefaultTopN)
}

// SummarizeTop is Summarize with a top classifications table of n rows.
func SummarizeTop(records []DerivedRecord, n int) (AggregateStats, error) {
	if n < 1 || n > MaxTopN {
		return AggregateStats{}, fmt.Errorf("top classifications: n must be within 1-%d, got %d", MaxTopN, n)
	}
	stats := AggregateStats{
		EmissionsByYear:    []YearGasTotals{},
		TopClassifications: []ClassificationTotals{},
	}
	if len(records) == 0 {
		return stats, ErrEmptyDataset
	}

	var pctSum GasValues
	for i := range records {
		r := &records[i]
		stats.TotalGWPWeighted += r.TotalGWPWeighted
		stats.TotalDamageWeighted += r.TotalDamageWeighted
		stats.TotalCombinedImpact += r.CombinedImpact
		pctSum.CO2 += r.ContributionPct.CO2
		pctSum.CH4 += r.ContributionPct.CH4
		pctSum.N2O += r.ContributionPct.N2O
	}
	count := float64(len(records))
	stats.MeanContributionPct = GasValues{
		CO2: pctSum.CO2 / count,
		CH4: pctSum.CH4 / count,
		N2O: pctSum.N2O / count,
	}

	stats.EmissionsByYear = emissionsByYear(records)
	stats.TopClassifications = topClassifications(records, n)
	return stats, nil
}

// emissionsByYear sums the GWP-weighted columns per year, ascending.
func emissionsByYear(records []DerivedRecord) []YearGasTotals {
	byYear := make(map[int]*YearGasTotals)
	for i := range records {
		r := &records[i]
		t, ok := byYear[r.Year]
		if !ok {
			t = &YearGasTotals{Year: r.Year}
			byYear[r.Year] = t
		}
		t.GWPWeighted.CO2 += r.GWPWeighted.CO2
		t.GWPWeighted.CH4 += r.GWPWeighted.CH4
		t.GWPWeighted.N2O += r.GWPWeighted.N2O
		t.TotalGWPWeighted += r.TotalGWPWeighted
	}

	out := make([]YearGasTotals, 0, len(byYear))
	for _, t := range byYear {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// topClassifications groups by classification and keeps the n largest by
// GWP-weighted total. Ties keep first-encounter order.
func topClassifications(records []DerivedRecord, n int) []ClassificationTotals {
	groups := GroupBy(records, func(r DerivedRecord) string { return r.Classification })

	out := make([]ClassificationTotals, len(groups))
	for i, g := range groups {
		out[i].Classification = g.Key
		for _, r := range g.Records {
			out[i].TotalGWPWeighted += r.TotalGWPWeighted
			out[i].CombinedImpact += r.CombinedImpact
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalGWPWeighted > out[j].TotalGWPWeighted
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Group is the set of records sharing one key.
type Group[K comparable] struct {
	Key     K
	Records []DerivedRecord
}

// GroupBy partitions records by key, with groups in first-encounter order and
// records in input order within each group.
func GroupBy[K comparable](records []DerivedRecord, key func(DerivedRecord) K) []Group[K] {
	pos := make(map[K]int)
	var groups []Group[K]
	for _, r := range records {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			i = len(groups)
			pos[k] = i
			groups = append(groups, Group[K]{Key: k})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
