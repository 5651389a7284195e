package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "FISCAL_YEAR_END", "REPORT_WORKERS", "SEED_DEMO_DATA", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "immobilisations.db", cfg.Database.SQLitePath)
	assert.Equal(t, "12-31", cfg.Accounting.FiscalYearEnd)
	assert.Equal(t, 4, cfg.Reports.Workers)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.False(t, cfg.SeedDemoData)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	// GIVEN: A YAML file and environment overrides for some keys
	// THEN: The environment wins, the file fills the rest

	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
database:
  sqlite_path: /var/lib/immo.db
accounting:
  fiscal_year_end: "06-30"
reports:
  workers: 2
`)
	t.Setenv("PORT", "9100")
	t.Setenv("SEED_DEMO_DATA", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://compta.example.fr")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/var/lib/immo.db", cfg.Database.SQLitePath)
	assert.Equal(t, 2, cfg.Reports.Workers)
	assert.True(t, cfg.SeedDemoData)
	assert.Equal(t, []string{"http://localhost:5173", "https://compta.example.fr"}, cfg.Server.CORSAllowedOrigins)

	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Equal(t, time.June, cal.EndMonth)
	assert.Equal(t, 30, cal.EndDay)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("REPORT_WORKERS")
	envPath := writeFile(t, ".env", "LOG_LEVEL=debug\nREPORT_WORKERS=8\n")

	cfg, err := config.Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Reports.Workers)

	_, err = config.Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err, "a missing .env file is not an error")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "http")
	_, err := config.Load("", "")
	assert.Error(t, err)

	t.Setenv("PORT", "")
	bad := writeFile(t, "bad.yaml", "server: [not, a, map]\n")
	_, err = config.Load(bad, "")
	assert.Error(t, err)

	t.Setenv("FISCAL_YEAR_END", "02-29")
	cfg, err := config.Load("", "")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	t.Setenv("FISCAL_YEAR_END", "")
	t.Setenv("LOG_LEVEL", "loud")
	cfg, err = config.Load("", "")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
