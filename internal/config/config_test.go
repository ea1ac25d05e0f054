package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.InputPath)
	assert.Equal(t, "./out", cfg.OutputDir)
	assert.Equal(t, "png", cfg.ChartFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10, cfg.TopN)
	assert.False(t, cfg.StrictParse)
	assert.Equal(t, 16, cfg.LoadCacheSize)
	assert.Equal(t, domain.DefaultGasConstants(), cfg.GasConstants)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "emissions-derived", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, 3, cfg.KafkaPublishAttempts)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INPUT_PATH", "data/emisiones.csv")
	t.Setenv("OUTPUT_DIR", "/tmp/charts")
	t.Setenv("CHART_FORMAT", "SVG")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("TOP_N", "25")
	t.Setenv("STRICT_PARSE", "true")
	t.Setenv("LOAD_CACHE_SIZE", "4")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_PUBLISH_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/emisiones.csv", cfg.InputPath)
	assert.Equal(t, "/tmp/charts", cfg.OutputDir)
	assert.Equal(t, "svg", cfg.ChartFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 25, cfg.TopN)
	assert.True(t, cfg.StrictParse)
	assert.Equal(t, 4, cfg.LoadCacheSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, 5, cfg.KafkaPublishAttempts)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"TOP_N", "0"},
		{"TOP_N", "51"},
		{"TOP_N", "ten"},
		{"STRICT_PARSE", "maybe"},
		{"CHART_FORMAT", "jpeg"},
		{"KAFKA_PUBLISH_ATTEMPTS", "0"},
		{"GAS_CONSTANTS_FILE", "/does/not/exist.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidLoadCacheSize(t *testing.T) {
	for _, v := range []string{"-3", "0", "lots"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("LOAD_CACHE_SIZE", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid LOAD_CACHE_SIZE")
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{testBroker}, cfg.KafkaBrokers)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGasConstants(t *testing.T) {
	t.Run("empty path is default", func(t *testing.T) {
		gc, err := LoadGasConstants("")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultGasConstants(), gc)
	})

	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, "gases.yaml", `
gases:
  co2: {gwp: 1, damage_factor: 5}
  CH4: {gwp: 80, damage_factor: 8}
  N2O:
    gwp: 273
    damage_factor: 9
`)
		gc, err := LoadGasConstants(path)
		require.NoError(t, err)
		assert.Equal(t, 80.0, gc.GWP(domain.CH4))
		assert.Equal(t, 273.0, gc.GWP(domain.N2O))
		assert.Equal(t, 5.0, gc.DamageFactor(domain.CO2))
	})

	t.Run("unknown gas", func(t *testing.T) {
		path := writeFile(t, "gases.yaml", "gases:\n  SF6: {gwp: 23500, damage_factor: 9}\n")
		_, err := LoadGasConstants(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SF6")
	})

	t.Run("out of range damage", func(t *testing.T) {
		path := writeFile(t, "gases.yaml", `
gases:
  CO2: {gwp: 1, damage_factor: 5}
  CH4: {gwp: 28, damage_factor: 12}
  N2O: {gwp: 265, damage_factor: 9}
`)
		_, err := LoadGasConstants(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "damage factor")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "gases.yaml", "gases: [")
		_, err := LoadGasConstants(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse GAS_CONSTANTS_FILE")
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		t.Setenv("TOP_N", "7")
		t.Setenv("OUTPUT_DIR", "")
		require.NoError(t, os.Unsetenv("OUTPUT_DIR"))
		path := writeFile(t, ".env", "TOP_N=3\nOUTPUT_DIR=/srv/out\n")

		require.NoError(t, LoadDotEnv(path))
		t.Cleanup(func() { os.Unsetenv("OUTPUT_DIR") })

		assert.Equal(t, "7", os.Getenv("TOP_N"))
		assert.Equal(t, "/srv/out", os.Getenv("OUTPUT_DIR"))
	})
}
