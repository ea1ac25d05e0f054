package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(t *testing.T) domain.Dataset {
	t.Helper()
	records := domain.DeriveWeighted([]domain.EmissionRecord{
		{Year: 2019, Classification: "Energía", CO2Eq: 1234567, CH4Eq: 10, TotalEmissions: 1234577},
		{Year: 2020, Classification: "Procesos Industriales", CO2Eq: 100, CH4Eq: 10, N2OEq: 1, TotalEmissions: 111},
		{Year: 2020, Classification: "Residuos", CH4Eq: 50, TotalEmissions: 50},
	}, domain.DefaultGasConstants())
	stats, err := domain.Summarize(records)
	require.NoError(t, err)
	return domain.Dataset{
		RunID:       "run-42",
		Source:      "data/emisiones.csv",
		GeneratedAt: time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC),
		Records:     records,
		Stats:       stats,
		RowsRead:    4,
		RowsDropped: 1,
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, testDataset(t), Options{View: domain.ViewOriginal}))

	out := buf.String()
	assert.Contains(t, out, "Emissions impact report")
	assert.Contains(t, out, "data/emisiones.csv")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "4 read, 1 dropped, 0 warnings")
	assert.Contains(t, out, "Key metrics (Original)")
	assert.Contains(t, out, "1,234,738")
	assert.Contains(t, out, "Top 3 classifications")
	assert.Contains(t, out, "Procesos Industriales")
	assert.NotContains(t, out, EmptyMessage)
}

func TestRender_Selection(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{
		View:      domain.ViewGWP,
		Selection: domain.Selection{Years: []int{2020}, Industrial: true},
		TopN:      5,
	}

	require.NoError(t, Render(&buf, testDataset(t), opts))

	out := buf.String()
	assert.Contains(t, out, "Key metrics (GWP-weighted)")
	// 100 + 10*28 + 1*265
	assert.Contains(t, out, "645")
	assert.Contains(t, out, "Top 1 classifications")
	assert.NotContains(t, out, "Energía")
	assert.NotContains(t, out, "Residuos")
}

func TestRender_Empty(t *testing.T) {
	t.Run("empty dataset", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, domain.Dataset{Empty: true, Source: "x.csv"}, Options{}))
		assert.Contains(t, buf.String(), EmptyMessage)
		assert.NotContains(t, buf.String(), "Key metrics")
	})

	t.Run("selection matches nothing", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, testDataset(t), Options{Selection: domain.Selection{Years: []int{1990}}}))
		assert.Contains(t, buf.String(), EmptyMessage)
	})
}

func TestRenderGases(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, RenderGases(&buf, domain.DefaultGasConstants()))

	out := buf.String()
	assert.Contains(t, out, "Methane (CH4)")
	assert.Contains(t, out, "265")
	assert.Contains(t, out, "9/10")
	assert.Contains(t, out, "114 years")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234,568", FormatAmount(1234567.8))
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "43.4%", FormatPercent(43.41))
}
