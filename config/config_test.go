package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// clearEnv blanks every override so the host environment cannot leak into a case.
func clearEnv(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
		"BOLT_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PORT", "WEB_ORIGIN", "SESSION_TTL_SECONDS",
		"ADMIN_EMAILS", "LOG_LEVEL", "LOG_MODE", "LOG_FILE", "REPORT_TTL_SECONDS", "AUDIT_SCHEDULE", "REPORT_SCHEDULE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
server:
  port: 8080
database:
  driver: postgres
  host: db.internal
  user: lab
  name: lab
admin:
  emails: [" Boss@Lab.io "]
report:
  ttl_seconds: 60
`)
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("SESSION_TTL_SECONDS", "120")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, []string{"boss@lab.io"}, cfg.Admin.Emails)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL())
	assert.Equal(t, time.Minute, cfg.ReportTTL())
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "host=override.internal user=lab password= dbname=lab port=5432 sslmode=disable", cfg.DSN())
}

func TestLoad_MissingFileUsesEnvAndDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/lab.db")
	t.Setenv("ADMIN_EMAILS", "a@lab.io, ,B@lab.io")
	t.Setenv("LOG_FILE", "/tmp/lab.log")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverBolt, cfg.Database.Driver)
	assert.Equal(t, "/tmp/lab.db", cfg.Database.BoltPath)
	assert.Equal(t, []string{"a@lab.io", "b@lab.io"}, cfg.Admin.Emails)
	assert.True(t, cfg.Log.FileEnable)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "@every 10m", cfg.Jobs.AuditSchedule)
	assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"postgres without host": "database:\n  driver: postgres\n  user: u\n  name: n\n",
		"unknown driver":        "database:\n  driver: mongo\n",
		"bad port":              "server:\n  port: 70000\ndatabase:\n  driver: bolt\n",
		"bad yaml":              "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}
