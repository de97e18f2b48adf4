package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SKIPQ_ENV", "DB_PATH", "PORT", "MIGRATIONS_DIR", "SKIPQ_CURRENCY", "SKIPQ_DEFAULT_JURISDICTION", "SKIPQ_DEFAULT_TAX_RATE"} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "./dev.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "CAD", cfg.Currency)
	assert.Equal(t, "ON", cfg.DefaultJurisdiction)
	assert.InDelta(t, 0.13, cfg.DefaultTaxRate, 1e-12)
	assert.Empty(t, cfg.Warnings)
	assert.True(t, cfg.IsDev())
}

func TestLoad_ReadsDotEnvWithoutOverwritingEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	// godotenv skips keys that are present at all, even when empty.
	for _, key := range []string{"SKIPQ_DEFAULT_JURISDICTION", "SKIPQ_ENV"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	content := []byte("PORT=7070\nSKIPQ_DEFAULT_JURISDICTION=qc\nSKIPQ_ENV=production\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), content, 0o600))
	chdir(t, dir)

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "QC", cfg.DefaultJurisdiction)
	assert.False(t, cfg.IsDev())
}

func TestLoad_InvalidTaxRateKeepsDefault(t *testing.T) {
	t.Setenv("SKIPQ_DEFAULT_TAX_RATE", "13")
	chdir(t, t.TempDir())

	cfg := Load()

	assert.InDelta(t, 0.13, cfg.DefaultTaxRate, 1e-12)
	require.Len(t, cfg.Warnings, 1)
}

func TestLoad_TaxRateOverride(t *testing.T) {
	t.Setenv("SKIPQ_DEFAULT_TAX_RATE", "0.05")
	chdir(t, t.TempDir())

	cfg := Load()

	assert.InDelta(t, 0.05, cfg.DefaultTaxRate, 1e-12)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
