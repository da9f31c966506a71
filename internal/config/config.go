package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the vectorization service
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Vectorize  VectorizeConfig  `yaml:"vectorize"`
	Linguistic LinguisticConfig `yaml:"linguistic"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// VectorizeConfig holds request defaults and reducer tuning
type VectorizeConfig struct {
	NComponents         int    `yaml:"n_components"`
	WindowSize          int    `yaml:"window_size"`
	Solver              string `yaml:"solver"`
	RandomizedThreshold int    `yaml:"randomized_threshold"`
	PowerIterations     int    `yaml:"power_iterations"`
	Oversamples         int    `yaml:"oversamples"`
}

// LinguisticConfig holds defaults for the text endpoints
type LinguisticConfig struct {
	Language string `yaml:"language"`
	TopN     int    `yaml:"top_n"`
	NGram    int    `yaml:"ngram"`
}

// StorageConfig holds the fixture directory
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Vectorize: VectorizeConfig{
			NComponents:         2,
			WindowSize:          2,
			Solver:              "auto",
			RandomizedThreshold: 500,
			PowerIterations:     5,
			Oversamples:         10,
		},
		Linguistic: LinguisticConfig{
			Language: "english",
			TopN:     10,
			NGram:    2,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = GetStringEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.ReadTimeout = GetDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = GetDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.MaxBodyBytes = int64(GetIntEnv("SERVER_MAX_BODY_BYTES", int(cfg.Server.MaxBodyBytes)))

	cfg.Vectorize.NComponents = GetIntEnv("VECTORIZE_N_COMPONENTS", cfg.Vectorize.NComponents)
	cfg.Vectorize.WindowSize = GetIntEnv("VECTORIZE_WINDOW_SIZE", cfg.Vectorize.WindowSize)
	cfg.Vectorize.Solver = GetStringEnv("VECTORIZE_SOLVER", cfg.Vectorize.Solver)
	cfg.Vectorize.RandomizedThreshold = GetIntEnv("VECTORIZE_RANDOMIZED_THRESHOLD", cfg.Vectorize.RandomizedThreshold)
	cfg.Vectorize.PowerIterations = GetIntEnv("VECTORIZE_POWER_ITERATIONS", cfg.Vectorize.PowerIterations)
	cfg.Vectorize.Oversamples = GetIntEnv("VECTORIZE_OVERSAMPLES", cfg.Vectorize.Oversamples)

	cfg.Linguistic.Language = GetStringEnv("LINGUISTIC_LANGUAGE", cfg.Linguistic.Language)
	cfg.Linguistic.TopN = GetIntEnv("LINGUISTIC_TOP_N", cfg.Linguistic.TopN)
	cfg.Linguistic.NGram = GetIntEnv("LINGUISTIC_NGRAM", cfg.Linguistic.NGram)

	cfg.Storage.DataDir = GetStringEnv("STORAGE_DATA_DIR", cfg.Storage.DataDir)

	cfg.Log.Level = GetStringEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = GetBoolEnv("LOG_JSON", cfg.Log.JSON)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
