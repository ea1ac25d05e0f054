package domain

// Blend of the two weighting schemes in the combined impact index.
const (
	CombinedGWPShare    = 0.7
	CombinedDamageShare = 0.3
)

// DeriveWeighted computes the weighted columns for every record. It keeps
// order and length and performs no I/O.
func DeriveWeighted(records []EmissionRecord, gc GasConstants) []DerivedRecord {
	out := make([]DerivedRecord, len(records))
	for i, rec := range records {
		out[i] = deriveRecord(rec, gc)
	}
	return out
}

// deriveRecord fills the derived groups in order: GWP per gas, GWP total,
// damage per gas, damage total, combined impact, contribution shares.
//
// Products are wrapped in float64 conversions so the compiler cannot fuse
// them into the following addition; totals must equal the plain
// multiply-then-add result.
func deriveRecord(rec EmissionRecord, gc GasConstants) DerivedRecord {
	d := DerivedRecord{EmissionRecord: rec}

	for _, g := range Gases {
		d.GWPWeighted.set(g, float64(rec.Eq(g)*gc.GWP(g)))
	}
	d.TotalGWPWeighted = d.GWPWeighted.Sum()

	for _, g := range Gases {
		d.DamageWeighted.set(g, float64(rec.Eq(g)*gc.DamageFactor(g)))
	}
	d.TotalDamageWeighted = d.DamageWeighted.Sum()

	d.CombinedImpact = float64(d.TotalGWPWeighted*CombinedGWPShare) + float64(d.TotalDamageWeighted*CombinedDamageShare)

	if d.TotalGWPWeighted != 0 {
		for _, g := range Gases {
			d.ContributionPct.set(g, float64(d.GWPWeighted.Get(g)/d.TotalGWPWeighted)*100)
		}
	}

	return d
}
