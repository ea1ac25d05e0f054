package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveWeighted(t *testing.T) {
	gc := DefaultGasConstants()

	t.Run("single row scenario", func(t *testing.T) {
		in := []EmissionRecord{{Year: 2020, Classification: "A", CO2Eq: 100, CH4Eq: 10, N2OEq: 1}}

		out := DeriveWeighted(in, gc)

		require.Len(t, out, 1)
		d := out[0]
		assert.Equal(t, GasValues{CO2: 100, CH4: 280, N2O: 265}, d.GWPWeighted)
		assert.Equal(t, 645.0, d.TotalGWPWeighted)
		assert.Equal(t, GasValues{CO2: 500, CH4: 80, N2O: 9}, d.DamageWeighted)
		assert.Equal(t, 589.0, d.TotalDamageWeighted)
		assert.InDelta(t, 628.2, d.CombinedImpact, 1e-9)
		assert.InDelta(t, 15.50, d.ContributionPct.CO2, 0.01)
		assert.InDelta(t, 43.41, d.ContributionPct.CH4, 0.01)
		assert.InDelta(t, 41.09, d.ContributionPct.N2O, 0.01)
		assert.Equal(t, in[0], d.EmissionRecord)
	})

	t.Run("zero total leaves shares at zero", func(t *testing.T) {
		out := DeriveWeighted([]EmissionRecord{{Year: 2020, Classification: "A"}}, gc)

		require.Len(t, out, 1)
		assert.Zero(t, out[0].TotalGWPWeighted)
		assert.Equal(t, GasValues{}, out[0].ContributionPct)
	})

	t.Run("largest accepted inputs stay finite", func(t *testing.T) {
		huge, err := NewGasConstants(map[Gas]Weights{
			CO2: {GWP: MaxGWP, DamageFactor: 10},
			CH4: {GWP: MaxGWP, DamageFactor: 10},
			N2O: {GWP: MaxGWP, DamageFactor: 10},
		})
		require.NoError(t, err)
		in := []EmissionRecord{{Year: 2020, CO2Eq: MaxQuantity, CH4Eq: -MaxQuantity, N2OEq: MaxQuantity}}

		d := DeriveWeighted(in, huge)[0]

		for _, v := range []float64{d.TotalGWPWeighted, d.TotalDamageWeighted, d.CombinedImpact, d.ContributionPct.Sum()} {
			assert.False(t, math.IsInf(v, 0) || math.IsNaN(v), "%v", v)
		}
		_, err = json.Marshal(d)
		assert.NoError(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DeriveWeighted(nil, gc))
	})

	t.Run("custom constants", func(t *testing.T) {
		custom, err := NewGasConstants(map[Gas]Weights{
			CO2: {GWP: 1, DamageFactor: 1},
			CH4: {GWP: 80, DamageFactor: 2},
			N2O: {GWP: 273, DamageFactor: 3},
		})
		require.NoError(t, err)

		out := DeriveWeighted([]EmissionRecord{{CO2Eq: 1, CH4Eq: 1, N2OEq: 1}}, custom)

		assert.Equal(t, 354.0, out[0].TotalGWPWeighted)
		assert.Equal(t, 6.0, out[0].TotalDamageWeighted)
	})
}

func sampleRecords() []EmissionRecord {
	return []EmissionRecord{
		{Year: 2019, Classification: "Energía", CO2Eq: 1234.56, CH4Eq: 78.9, N2OEq: 3.21, Line: 2},
		{Year: 2019, Classification: "Agricultura", CO2Eq: 12.5, CH4Eq: 450.25, N2OEq: 33.3, Line: 3},
		{Year: 2020, Classification: "Procesos Industriales", CO2Eq: 0.1, CH4Eq: 0.2, N2OEq: 0.3, Line: 4},
		{Year: 2020, Classification: "Residuos", CO2Eq: -5, CH4Eq: 5, N2OEq: 0, Line: 5},
		{Year: 2021, Classification: "Energía", CO2Eq: 987654.321, CH4Eq: 1e-7, N2OEq: 42, Line: 6},
		{Year: 2021, Classification: "Vacío", Line: 7},
	}
}

func TestDeriveWeightedProperties(t *testing.T) {
	gc := DefaultGasConstants()
	in := sampleRecords()
	out := DeriveWeighted(in, gc)
	require.Len(t, out, len(in))

	for i, d := range out {
		r := in[i]

		wantGWP := float64(r.CO2Eq*1) + float64(r.CH4Eq*28) + float64(r.N2OEq*265)
		assert.Equal(t, wantGWP, d.TotalGWPWeighted, "row %d", i)

		wantCombined := float64(0.7*d.TotalGWPWeighted) + float64(0.3*d.TotalDamageWeighted)
		assert.Equal(t, wantCombined, d.CombinedImpact, "row %d", i)

		pct := d.ContributionPct
		if d.TotalGWPWeighted > 0 {
			assert.InDelta(t, 100.0, pct.CO2+pct.CH4+pct.N2O, 1e-6, "row %d", i)
		}
		if d.TotalGWPWeighted == 0 {
			assert.Equal(t, GasValues{}, pct, "row %d", i)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		again := DeriveWeighted(in, gc)
		if diff := cmp.Diff(out, again); diff != "" {
			t.Errorf("second run differs (-first +second):\n%s", diff)
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Equal(t, sampleRecords(), in)
	})
}
