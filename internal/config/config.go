package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	InputPath   string
	OutputDir   string
	ChartFormat string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	TopN          int
	StrictParse   bool
	LoadCacheSize int

	// GasConstants is the weighting table, read from GasConstantsFile when set.
	GasConstantsFile string
	GasConstants     domain.GasConstants

	// Kafka sink configuration.
	KafkaBrokers         []string
	KafkaSinkTopic       string
	KafkaEnabled         bool
	KafkaPublishAttempts int
}

// LoadDotEnv reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	topN, err := parseTopN()
	if err != nil {
		return nil, err
	}

	strict, err := parseBool("STRICT_PARSE", false)
	if err != nil {
		return nil, err
	}

	chartFormat := strings.ToLower(sharedcfg.EnvOrDefault("CHART_FORMAT", "png"))
	if chartFormat != "png" && chartFormat != "svg" {
		return nil, errors.New("invalid CHART_FORMAT: must be png or svg")
	}

	gasFile := os.Getenv("GAS_CONSTANTS_FILE")
	gc, err := LoadGasConstants(gasFile)
	if err != nil {
		return nil, err
	}

	attempts, err := parsePublishAttempts()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseLoadCacheSize()
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		InputPath:   os.Getenv("INPUT_PATH"),
		OutputDir:   sharedcfg.EnvOrDefault("OUTPUT_DIR", "./out"),
		ChartFormat: chartFormat,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TopN:          topN,
		StrictParse:   strict,
		LoadCacheSize: cacheSize,

		GasConstantsFile: gasFile,
		GasConstants:     gc,

		KafkaBrokers:         brokers,
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "emissions-derived"),
		KafkaEnabled:         kafkaEnabled,
		KafkaPublishAttempts: attempts,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// gasConstantsFile is the YAML layout of GAS_CONSTANTS_FILE:
//
//	gases:
//	  CO2: {gwp: 1, damage_factor: 5}
//	  CH4: {gwp: 28, damage_factor: 8}
//	  N2O: {gwp: 265, damage_factor: 9}
type gasConstantsFile struct {
	Gases map[string]domain.Weights `yaml:"gases"`
}

// LoadGasConstants reads a weighting table from a YAML file. An empty path
// returns the default table.
func LoadGasConstants(path string) (domain.GasConstants, error) {
	if path == "" {
		return domain.DefaultGasConstants(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.GasConstants{}, fmt.Errorf("read GAS_CONSTANTS_FILE: %w", err)
	}

	var f gasConstantsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.GasConstants{}, fmt.Errorf("parse GAS_CONSTANTS_FILE: %w", err)
	}

	weights := make(map[domain.Gas]domain.Weights, len(f.Gases))
	for name, w := range f.Gases {
		g, err := domain.ParseGas(name)
		if err != nil {
			return domain.GasConstants{}, fmt.Errorf("invalid GAS_CONSTANTS_FILE: %w", err)
		}
		weights[g] = w
	}

	gc, err := domain.NewGasConstants(weights)
	if err != nil {
		return domain.GasConstants{}, fmt.Errorf("invalid GAS_CONSTANTS_FILE: %w", err)
	}
	return gc, nil
}

func parseTopN() (int, error) {
	s := os.Getenv("TOP_N")
	if s == "" {
		return domain.DefaultTopN, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > domain.MaxTopN {
		return 0, fmt.Errorf("invalid TOP_N: must be 1-%d", domain.MaxTopN)
	}
	return n, nil
}

func parsePublishAttempts() (int, error) {
	s := os.Getenv("KAFKA_PUBLISH_ATTEMPTS")
	if s == "" {
		return 3, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 10 {
		return 0, errors.New("invalid KAFKA_PUBLISH_ATTEMPTS: must be 1-10")
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

func parseLoadCacheSize() (int, error) {
	s := os.Getenv("LOAD_CACHE_SIZE")
	if s == "" {
		return 16, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New("invalid LOAD_CACHE_SIZE: must be a positive integer")
	}
	return n, nil
}
