package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/garment-costing/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "123456")
	t.Setenv("DB_NAME", "costing")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, "600", cfg.Pricing.CuttingPatternUnitPrice.String())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  port: "9090"
  env: production
postgres:
  host: db.internal
  user: costing
  password: secret
  dbname: costing
  max_conns: 20
  max_conn_lifetime: 1h
pricing:
  cutting_pattern_unit_price: "650"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("DB_MIN_CONNS", "4")
	t.Setenv("DB_HOST", "")
	t.Setenv("APP_ENV", "")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
	assert.Equal(t, int32(4), cfg.Postgres.MinConns)
	assert.Equal(t, time.Hour, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, "650", cfg.Pricing.CuttingPatternUnitPrice.String())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequiredEnv(t)

	_, err := config.Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "missing_host",
			env:     map[string]string{"DB_HOST": ""},
			wantMsg: "DB_HOST is required",
		},
		{
			name:    "bad_max_conns",
			env:     map[string]string{"DB_MAX_CONNS": "many"},
			wantMsg: `invalid DB_MAX_CONNS "many"`,
		},
		{
			name:    "bad_unit_price",
			env:     map[string]string{"PRICING_CUTTING_PATTERN_UNIT_PRICE": "abc"},
			wantMsg: `invalid PRICING_CUTTING_PATTERN_UNIT_PRICE "abc"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
