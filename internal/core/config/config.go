package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Intent   IntentConfig   `koanf:"intent"`
	Advisor  AdvisorConfig  `koanf:"advisor"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

// DataConfig selects the snapshot source. Source "csv" reads the five table
// files from Dir; "postgres" reads the same tables over DSN.
type DataConfig struct {
	Source       string `koanf:"source"`
	Dir          string `koanf:"dir"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// AnalysisConfig carries the default scope for the advisor's queries.
type AnalysisConfig struct {
	DefaultMerchantID string            `koanf:"default_merchant_id"`
	DefaultCityID     string            `koanf:"default_city_id"`
	CityNames         map[string]string `koanf:"city_names"`
}

type IntentConfig struct {
	RulesPath string `koanf:"rules_path"`
}

type AdvisorConfig struct {
	Enabled     bool    `koanf:"enabled"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Data.Source {
	case "csv":
		if strings.TrimSpace(c.Data.Dir) == "" {
			return fmt.Errorf("data.dir is required for data.source csv")
		}
	case "postgres":
		if strings.TrimSpace(c.Data.DSN) == "" {
			return fmt.Errorf("data.dsn is required for data.source postgres")
		}
		if c.Data.MaxOpenConns <= 0 {
			return fmt.Errorf("data.max_open_conns must be > 0")
		}
		if c.Data.MaxIdleConns <= 0 {
			return fmt.Errorf("data.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported data.source %q (must be csv or postgres)", c.Data.Source)
	}

	if c.Advisor.Enabled && strings.TrimSpace(c.Advisor.APIKey) == "" {
		return fmt.Errorf("advisor.api_key is required when the advisor is enabled")
	}
	if c.Advisor.Temperature < 0 || c.Advisor.Temperature > 2 {
		return fmt.Errorf("advisor.temperature must be within [0, 2]")
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":         8080,
		"server.host":         "0.0.0.0",
		"server.mode":         "release",
		"data.source":         "csv",
		"data.dir":            "./data",
		"data.dsn":            "",
		"data.max_open_conns": 10,
		"data.max_idle_conns": 5,
		"intent.rules_path":   "",
		"advisor.enabled":     false,
		"advisor.api_key":     "",
		"advisor.base_url":    "",
		"advisor.model":       "gpt-4-turbo",
		"advisor.temperature": 0.6,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("GRUBSIGHT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GRUBSIGHT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
