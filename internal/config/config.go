// Package config loads stitcher settings: defaults, then an optional YAML file, then
// STITCHER_* environment variables, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/merge"
	"tour-stitcher/internal/partition"
)

const envPrefix = "STITCHER_"

// Solver engines
const (
	EngineTwoOpt = "two_opt"
	EngineStored = "stored"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Distance  DistanceConfig  `yaml:"distance"`
	Partition PartitionConfig `yaml:"partition"`
	Search    SearchConfig    `yaml:"search"`
	Solver    SolverConfig    `yaml:"solver"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type DistanceConfig struct {
	CacheLimit int `yaml:"cache_limit" validate:"gte=0"`
}

type PartitionConfig struct {
	SingleClusterLimit int     `yaml:"single_cluster_limit" validate:"gte=0"`
	Bands              int     `yaml:"bands" validate:"gte=1"`
	PolarFraction      float64 `yaml:"polar_fraction" validate:"gte=0,lt=0.5"`
	PolarBandLow       float64 `yaml:"polar_band_low" validate:"gte=0,lte=1"`
	PolarBandHigh      float64 `yaml:"polar_band_high" validate:"gtefield=PolarBandLow,lte=1"`
}

type SearchConfig struct {
	MarginX       float64 `yaml:"margin_x" validate:"gte=0"`
	MarginY       float64 `yaml:"margin_y" validate:"gte=0"`
	MaxExpansions int     `yaml:"max_expansions" validate:"gte=0"`
}

type SolverConfig struct {
	Engine    string        `yaml:"engine" validate:"oneof=two_opt stored"`
	Workers   int           `yaml:"workers" validate:"gte=1"`
	TimeLimit time.Duration `yaml:"time_limit" validate:"gte=0"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file sqlite"`
	// Dir holds sub-tour files and the file backend's run history; empty means ~/.tour-stitcher
	Dir string `yaml:"dir"`
	// DBPath is the sqlite database; empty means ~/.tour-stitcher/stitcher.db
	DBPath string `yaml:"db_path"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration
func Default() *Config {
	p := partition.DefaultConfig()
	return &Config{
		Distance: DistanceConfig{CacheLimit: distance.DefaultCacheLimit},
		Partition: PartitionConfig{
			SingleClusterLimit: p.SingleClusterLimit,
			Bands:              p.Bands,
			PolarFraction:      p.PolarFraction,
			PolarBandLow:       p.PolarBandLow,
			PolarBandHigh:      p.PolarBandHigh,
		},
		Search: SearchConfig{
			MarginX:       10,
			MarginY:       10,
			MaxExpansions: merge.DefaultMaxExpansions,
		},
		Solver: SolverConfig{
			Engine:    EngineTwoOpt,
			Workers:   runtime.NumCPU(),
			TimeLimit: 5 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// PartitionerConfig converts the partition section for partition.New
func (c *Config) PartitionerConfig() partition.Config {
	return partition.Config{
		SingleClusterLimit: c.Partition.SingleClusterLimit,
		Bands:              c.Partition.Bands,
		PolarFraction:      c.Partition.PolarFraction,
		PolarBandLow:       c.Partition.PolarBandLow,
		PolarBandHigh:      c.Partition.PolarBandHigh,
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped when path is
// empty) and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional is Load for a file that may not exist
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return Load(path)
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file decodes to io.EOF and keeps the defaults
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnvironment(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := getEnv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := getEnv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := getEnv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := getEnv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	setInt("DISTANCE_CACHE_LIMIT", &cfg.Distance.CacheLimit)
	setInt("PARTITION_SINGLE_CLUSTER_LIMIT", &cfg.Partition.SingleClusterLimit)
	setInt("PARTITION_BANDS", &cfg.Partition.Bands)
	setFloat("PARTITION_POLAR_FRACTION", &cfg.Partition.PolarFraction)
	setFloat("SEARCH_MARGIN_X", &cfg.Search.MarginX)
	setFloat("SEARCH_MARGIN_Y", &cfg.Search.MarginY)
	setInt("SEARCH_MAX_EXPANSIONS", &cfg.Search.MaxExpansions)
	setString("SOLVER_ENGINE", &cfg.Solver.Engine)
	setInt("SOLVER_WORKERS", &cfg.Solver.Workers)
	setDuration("SOLVER_TIME_LIMIT", &cfg.Solver.TimeLimit)
	setString("STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("STORAGE_DIR", &cfg.Storage.Dir)
	setString("STORAGE_DB_PATH", &cfg.Storage.DBPath)
	setString("SERVER_ADDR", &cfg.Server.Addr)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

func getEnv(key string) string {
	return os.Getenv(envPrefix + key)
}

var validate = validator.New()

// Validate checks every section against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte", "gt", "lte", "lt":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, strings.ToLower(e.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
