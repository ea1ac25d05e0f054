package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/emissions-impact-etl/internal/adapter/http"
	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRunner struct {
	ds    domain.Dataset
	err   error
	paths []string
}

func (m *mockRunner) Run(_ context.Context, path string) (domain.Dataset, error) {
	m.paths = append(m.paths, path)
	return m.ds, m.err
}

func testDataset() domain.Dataset {
	return domain.Dataset{
		RunID:       "run-1",
		Source:      "emisiones.csv",
		GeneratedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		Records: domain.DeriveWeighted([]domain.EmissionRecord{
			{Year: 2019, Classification: "Energía", CO2Eq: 100, CH4Eq: 10, N2OEq: 1, TotalEmissions: 111},
			{Year: 2020, Classification: "Procesos Industriales", CO2Eq: 10, CH4Eq: 2, N2OEq: 2, TotalEmissions: 14},
			{Year: 2020, Classification: "Agricultura", CO2Eq: 1, CH4Eq: 30, N2OEq: 3, TotalEmissions: 34},
		}, domain.DefaultGasConstants()),
		Warnings: []domain.ParseError{{Line: 5, Column: "CH4_eq", Value: "x"}},
	}
}

func newTestServer(readyErr error, runner *mockRunner) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, httpadapter.API{
		Runner:       runner,
		InputPath:    "data/emisiones.csv",
		GasConstants: domain.DefaultGasConstants(),
		TopN:         domain.DefaultTopN,
	}, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("not ready yet"), &mockRunner{}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummary(t *testing.T) {
	runner := &mockRunner{ds: testDataset()}
	rec := get(t, newTestServer(nil, runner), "/api/summary?years=2020&view=gwp&top=1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"data/emisiones.csv"}, runner.paths)

	var body struct {
		RunID      string `json:"run_id"`
		Empty      bool   `json:"empty"`
		View       string `json:"view"`
		Info       domain.Info
		KeyMetrics domain.KeyMetrics `json:"key_metrics"`
		Stats      domain.AggregateStats
		Top        []domain.ClassificationValue `json:"top_classifications"`
		Warnings   int                          `json:"parse_warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "run-1", body.RunID)
	assert.False(t, body.Empty)
	assert.Equal(t, "gwp", body.View)
	assert.Equal(t, []int{2020}, body.Info.Years)
	assert.Equal(t, 2, body.Info.Records)
	// 10+56+530 and 1+840+795
	assert.Equal(t, 596.0+1636.0, body.KeyMetrics.Total)
	require.Len(t, body.Top, 1)
	assert.Equal(t, "Agricultura", body.Top[0].Classification)
	require.Len(t, body.Stats.TopClassifications, 1)
	assert.Equal(t, 1, body.Warnings)
}

func TestSummaryIndustrialFilter(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), "/api/summary?industrial=true")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Info domain.Info `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Info.Records)
}

func TestSummaryEmptyDataset(t *testing.T) {
	runner := &mockRunner{ds: domain.Dataset{RunID: "run-2", Empty: true}}
	rec := get(t, newTestServer(nil, runner), "/api/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["empty"])
	assert.Equal(t, []any{}, body["top_classifications"])
	assert.Equal(t, []any{}, body["totals_by_year"])
}

func TestSummaryNoMatchingYearIsEmpty(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), "/api/summary?years=1990")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["empty"])
}

func TestSummaryBadQuery(t *testing.T) {
	for _, target := range []string{
		"/api/summary?years=abc",
		"/api/summary?view=damage",
		"/api/summary?top=0",
		"/api/summary?top=51",
		"/api/summary?industrial=sometimes",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestLoadFailureReturns500(t *testing.T) {
	runner := &mockRunner{err: fmt.Errorf("extract: %w", domain.ErrFileNotFound)}

	for _, target := range []string{"/api/summary", "/api/records", "/api/correlations", "/api/describe"} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, newTestServer(nil, runner), target)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], "input file not found")
		})
	}
}

func TestRecords(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), "/api/records?years=2019")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Records []domain.DerivedRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, 1)
	assert.Equal(t, 645.0, body.Records[0].TotalGWPWeighted)
}

func TestGases(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{err: errors.New("unused")}), "/api/gases")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []domain.GasInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, domain.CH4, body[1].Gas)
	assert.Equal(t, 28.0, body[1].GWP)
}

func TestCorrelations(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), "/api/correlations")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Correlations []domain.Correlation `json:"correlations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Correlations, 3)
	assert.True(t, body.Correlations[0].OK)
}

func TestDescribeEncodesUndefinedAsNull(t *testing.T) {
	rec := get(t, newTestServer(nil, &mockRunner{ds: testDataset()}), "/api/describe?years=2019")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Columns []map[string]any `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Columns, 6)
	assert.Equal(t, float64(1), body.Columns[0]["count"])
	assert.Nil(t, body.Columns[0]["std"])
	assert.Equal(t, 10.0, body.Columns[0]["mean"])
}
