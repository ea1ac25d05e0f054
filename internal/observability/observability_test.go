package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	t.Run("json at warn", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger("warn", "json", &buf)

		logger.Info("hidden")
		logger.Warn("parse warning", "line", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "parse warning", entry["msg"])
		assert.Equal(t, float64(3), entry["line"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger("debug", "TEXT", &buf).Debug("loaded", "rows", 2)
		assert.Contains(t, buf.String(), "msg=loaded rows=2")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.RowsRead.Add(4)
	m.PipelineRuns.WithLabelValues(OutcomeEmpty).Inc()

	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues(OutcomeEmpty)))

	// A second set must not collide with the first.
	assert.NotPanics(t, func() { NewMetricsForTesting() })
}

func TestNewMetricsWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.RowsKept.Add(2)

	n, err := testutil.GatherAndCount(reg, "emissions_etl_rows_kept_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() { NewMetricsWith(reg) })
}
