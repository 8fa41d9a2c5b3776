package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"workservice/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	Service      ServiceConfig   `json:"Service"`
	Server       rawServerConfig `json:"Server"`
	DrainTimeout string          `json:"DrainTimeout"`
}

type rawServerConfig struct {
	Host              string `json:"Host"`
	Port              int    `json:"Port"`
	Greeting          string `json:"Greeting"`
	ReadHeaderTimeout string `json:"ReadHeaderTimeout"`
	ReadTimeout       string `json:"ReadTimeout"`
	WriteTimeout      string `json:"WriteTimeout"`
	IdleTimeout       string `json:"IdleTimeout"`
	ShutdownTimeout   string `json:"ShutdownTimeout"`
	MaxConnections    int    `json:"MaxConnections"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   *bool  `json:"Compress"`
	Console    *bool  `json:"Console"`
}

// Load reads configuration from the specified file path.
// A missing file yields the defaults; the service needs no configuration to run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from JSON bytes and validates the result.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Merge(parsed)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		Service: raw.Service,
		Server: ServerConfig{
			Host:           raw.Server.Host,
			Port:           raw.Server.Port,
			Greeting:       raw.Server.Greeting,
			MaxConnections: raw.Server.MaxConnections,
		},
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"Server.ReadHeaderTimeout", raw.Server.ReadHeaderTimeout, &cfg.Server.ReadHeaderTimeout},
		{"Server.ReadTimeout", raw.Server.ReadTimeout, &cfg.Server.ReadTimeout},
		{"Server.WriteTimeout", raw.Server.WriteTimeout, &cfg.Server.WriteTimeout},
		{"Server.IdleTimeout", raw.Server.IdleTimeout, &cfg.Server.IdleTimeout},
		{"Server.ShutdownTimeout", raw.Server.ShutdownTimeout, &cfg.Server.ShutdownTimeout},
		{"DrainTimeout", raw.DrainTimeout, &cfg.DrainTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s duration: %w", d.name, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadLogging reads logging configuration from the specified file path.
// A missing file yields logger.DefaultConfig().
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		def := logger.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	def := logger.DefaultConfig()

	// Merge: apply non-zero parsed values over defaults
	if raw.Level != "" {
		def.Level = raw.Level
	}
	if raw.FilePath != "" {
		def.FilePath = raw.FilePath
	}
	if raw.Format != "" {
		def.Format = raw.Format
	}
	if raw.MaxSizeMB != 0 {
		def.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		def.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		def.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Compress != nil {
		def.Compress = *raw.Compress
	}
	if raw.Console != nil {
		def.Console = *raw.Console
	}

	return &def, nil
}

// LoadSplit loads configuration from two separate files:
// configPath (WorkService.json) and loggingPath (Logging.json).
func LoadSplit(configPath, loggingPath string) (*Config, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, lc, nil
}
