package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configData  string
		envVars     map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config file",
			configData: `
api:
  port: 8080
database:
  type: sqlite
  path: /tmp/cards.db
auth:
  jwt_secret: s3cret
  access_token_ttl_minutes: 5
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.API.Port)
				assert.Equal(t, "/tmp/cards.db", cfg.Database.Path)
				assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
				assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
				assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
				assert.Equal(t, StudyLogPolicyOpen, cfg.StudyLog.AuthPolicy)
			},
		},
		{
			name:        "Invalid config file",
			configData:  "api:\n  port: [not, a, number]\n",
			expectError: true,
		},
		{
			name:       "Environment variables override",
			configData: "api:\n  port: 8080\n",
			envVars: map[string]string{
				"FLASHDECK_API_PORT":               "9090",
				"FLASHDECK_STUDY_LOGS_AUTH_POLICY": "scoped",
				"FLASHDECK_AUTH_CLEANUP_INTERVAL":  "10m",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.API.Port)
				assert.Equal(t, StudyLogPolicyScoped, cfg.StudyLog.AuthPolicy)
				assert.Equal(t, 10*time.Minute, cfg.Auth.CleanupInterval)
			},
		},
		{
			name:        "Unknown study log policy",
			configData:  "study_logs:\n  auth_policy: sometimes\n",
			expectError: true,
		},
		{
			name:        "Unknown database type",
			configData:  "database:\n  type: oracle\n",
			expectError: true,
		},
		{
			name:        "Production requires a secret",
			configData:  "env: prod\n",
			expectError: true,
		},
		{
			name:        "Export requires a bucket",
			configData:  "export:\n  enabled: true\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(writeConfig(t, tt.configData))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, 8000, cfg.API.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 30, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, 7, cfg.Auth.RefreshTokenTTLDays)
	assert.Equal(t, devSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, StudyLogPolicyOpen, cfg.StudyLog.AuthPolicy)
	assert.False(t, cfg.Export.Enabled)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yml"))
	assert.Error(t, err)
}

func TestDatabase_DSN(t *testing.T) {
	sqlite := Database{Type: "sqlite", Path: "/data/cards.db"}
	driver, dsn := sqlite.DSN()
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, "/data/cards.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dsn)
	assert.Equal(t, "sqlite3:///data/cards.db?_foreign_keys=on", sqlite.MigrationURL())

	pg := Database{Type: "postgres", Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "cards", SSLMode: "disable"}
	driver, dsn = pg.DSN()
	assert.Equal(t, "postgres", driver)
	assert.Contains(t, dsn, "host=db port=5432 user=u")
	assert.Equal(t, "postgres://u:p%40ss@db:5432/cards?sslmode=disable", pg.MigrationURL())
}
