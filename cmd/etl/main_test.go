package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/charts"
	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/export"
	"github.com/couchcryptid/emissions-impact-etl/internal/report"
)

const sampleCSV = `AÑO;CLASIFICACION;CH4_eq;CO2_eq;N2O_eq;Total_Emisiones;Emisiones_netas
2019;Energía;10,5;1200,25;3;1213,75;1100
2019;Procesos Industriales;1;340;0,5;341,5;341,5
2020;Energía;9;1100;2,5;1111,5;1000
2020;Residuos;45;2;1;48;48
;Sin año;1;1;1;3;3
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emisiones.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestReport(t *testing.T) {
	path := writeInput(t, sampleCSV)

	out, err := execute(t, "report", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Key metrics (Original)")
	assert.Contains(t, out, "5 read, 1 dropped, 0 warnings")
	assert.Contains(t, out, "Procesos Industriales")
}

func TestRootDefaultsToReport(t *testing.T) {
	path := writeInput(t, sampleCSV)

	out, err := execute(t, path, "--view", "gwp", "--years", "2020")

	require.NoError(t, err)
	assert.Contains(t, out, "Key metrics (GWP-weighted)")
	assert.NotContains(t, out, "Procesos Industriales")
}

func TestReport_InputFromEnv(t *testing.T) {
	t.Setenv("INPUT_PATH", writeInput(t, sampleCSV))

	out, err := execute(t, "report", "--industrial")

	require.NoError(t, err)
	assert.Contains(t, out, "Top 1 classifications")
}

func TestReport_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{"no input", func(t *testing.T) []string { return []string{"report"} }, "INPUT_PATH"},
		{"missing file", func(t *testing.T) []string {
			return []string{"report", filepath.Join(t.TempDir(), "nope.csv")}
		}, "not found"},
		{"missing column", func(t *testing.T) []string {
			return []string{"report", writeInput(t, "AÑO;CLASIFICACION;CH4_eq;CO2_eq\n2020;A;1;2\n")}
		}, "N2O_eq"},
		{"strict parse", func(t *testing.T) []string {
			return []string{"report", "--strict", writeInput(t, sampleCSV+"2021;Energía;abc;1;1;3;3\n")}
		}, "abc"},
		{"bad view", func(t *testing.T) []string {
			return []string{"report", "--view", "damage", writeInput(t, sampleCSV)}
		}, "--view"},
		{"bad top", func(t *testing.T) []string {
			return []string{"report", "--top", "0", writeInput(t, sampleCSV)}
		}, "--top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INPUT_PATH", "")
			_, err := execute(t, tt.args(t)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReport_EmptyDataset(t *testing.T) {
	path := writeInput(t, "AÑO;CLASIFICACION;CH4_eq;CO2_eq;N2O_eq\n;A;1;1;1\n")

	out, err := execute(t, "report", path)

	require.NoError(t, err)
	assert.Contains(t, out, report.EmptyMessage)
}

func TestExport(t *testing.T) {
	path := writeInput(t, sampleCSV)
	dir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "export", path, "--out", dir, "--format", "svg", "--years", "2019")

	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 records")
	for _, name := range []string{
		charts.TotalsByYearChart + ".svg",
		charts.GasByYearChart + ".svg",
		charts.TopClassificationsChart + ".svg",
		export.CSVFile,
		export.XLSXFile,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(dir, export.CSVFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := export.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2019, records[1].Year)
}

func TestExport_RejectsFormat(t *testing.T) {
	_, err := execute(t, "export", writeInput(t, sampleCSV), "--out", t.TempDir(), "--format", "gif")
	assert.Error(t, err)
}

func TestGases(t *testing.T) {
	out, err := execute(t, "gases")

	require.NoError(t, err)
	assert.Contains(t, out, "Nitrous oxide (N2O)")
}

func TestPublish_RequiresKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_ENABLED", "")

	_, err := execute(t, "publish", writeInput(t, sampleCSV))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
