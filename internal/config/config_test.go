package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "izposoja.sqlite3", cfg.DSN)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "Admin", cfg.AdminName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 1h", cfg.ReconcileSchedule)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("IZPOSOJA_DB_DRIVER", "postgres")
	t.Setenv("IZPOSOJA_DB", "postgres://localhost/izposoja")
	t.Setenv("IZPOSOJA_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("IZPOSOJA_SHUTDOWN_TIMEOUT", "10s")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	dialect, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, db.Postgres, dialect)
	assert.Equal(t, "postgres://localhost/izposoja", cfg.DSN)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IZPOSOJA_ADDR=:9090\nIZPOSOJA_ADMIN=Maja\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("IZPOSOJA_ADDR")
		os.Unsetenv("IZPOSOJA_ADMIN")
	})
	t.Setenv("IZPOSOJA_ADMIN", "Nina")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "Nina", cfg.AdminName, "the environment wins over the file")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("IZPOSOJA_ADDR", ":7000")
	t.Setenv("IZPOSOJA_LOG", "env.log")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-a", ":7001", "-d", "other.sqlite3"}))

	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, "other.sqlite3", cfg.DSN)
	assert.Equal(t, "env.log", cfg.LogPath, "unset flags keep the environment value")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(missingEnvFile(t))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ReconcileSchedule = "every now and then"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ReconcileSchedule = ""
	assert.NoError(t, cfg.Validate(), "an empty schedule disables the checker")

	cfg = base()
	cfg.DSN = " "
	assert.Error(t, cfg.Validate())
}
