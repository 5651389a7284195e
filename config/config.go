// Package config loads service settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port               int      `yaml:"port"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Accounting struct {
		// FiscalYearEnd is the closing day written MM-DD.
		FiscalYearEnd string `yaml:"fiscal_year_end"`
	} `yaml:"accounting"`
	Reports struct {
		Workers int `yaml:"workers"`
	} `yaml:"reports"`
	SeedDemoData bool `yaml:"seed_demo_data"`
}

// Load reads config from a YAML file (optional, missing is fine), loads
// dotEnvPath into the environment when it exists, then applies
// environment overrides and defaults.
func Load(path, dotEnvPath string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if dotEnvPath != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(dotEnvPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", dotEnvPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FISCAL_YEAR_END"); v != "" {
		c.Accounting.FiscalYearEnd = v
	}
	if v := os.Getenv("REPORT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPORT_WORKERS: %w", err)
		}
		c.Reports.Workers = n
	}
	if v := os.Getenv("SEED_DEMO_DATA"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED_DEMO_DATA: %w", err)
		}
		c.SeedDemoData = seed
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSAllowedOrigins = origins
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "immobilisations.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Accounting.FiscalYearEnd == "" {
		c.Accounting.FiscalYearEnd = fiscal.CalendarYear.String()
	}
	if c.Reports.Workers == 0 {
		c.Reports.Workers = 4
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Calendar(); err != nil {
		return fmt.Errorf("accounting.fiscal_year_end: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Reports.Workers < 1 {
		return fmt.Errorf("reports.workers must be positive")
	}
	return nil
}

// Calendar returns the fiscal calendar for FiscalYearEnd.
func (c *Config) Calendar() (fiscal.Calendar, error) {
	return fiscal.ParseCalendar(c.Accounting.FiscalYearEnd)
}

// LogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c *Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Log.Level)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
