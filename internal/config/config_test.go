package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 1<<20, cfg.Server.MaxHeaderBytes)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 725.0, cfg.Leveling.DefaultStartElevation)
	assert.Equal(t, 725.0, cfg.Leveling.DefaultTargetElevation)
	assert.Equal(t, int64(10<<20), cfg.Leveling.MaxUploadBytes)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.NoError(t, cfg.validate())
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"ALTUM_SERVER_PORT":                      "9090",
				"ALTUM_SERVER_READ_TIMEOUT":              "5s",
				"ALTUM_SECURITY_ALLOWED_ORIGINS":         "http://a.test,http://b.test",
				"ALTUM_LEVELING_DEFAULT_START_ELEVATION": "100.5",
				"ALTUM_LEVELING_BATCH_CONCURRENCY":       "8",
				"ALTUM_TELEMETRY_TRACE_EXPORTER":         "stdout",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, 100.5, cfg.Leveling.DefaultStartElevation)
				assert.Equal(t, 725.0, cfg.Leveling.DefaultTargetElevation)
				assert.Equal(t, 8, cfg.Leveling.BatchConcurrency)
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name: "file overlays defaults",
			file: `
server:
  port: 7070
  write_timeout: 45s
leveling:
  max_rows: 200
logging:
  level: debug
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "absent keys keep defaults")
				assert.Equal(t, 200, cfg.Leveling.MaxRows)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"ALTUM_SERVER_PORT": "6060"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name:    "invalid yaml",
			file:    "server: [",
			wantErr: true,
		},
		{
			name:    "invalid env value",
			env:     map[string]string{"ALTUM_SERVER_PORT": "eighty"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			env:     map[string]string{"ALTUM_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "invalid trace exporter",
			env:     map[string]string{"ALTUM_TELEMETRY_TRACE_EXPORTER": "jaeger"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ALTUM_LEVELING_MAX_ROWS=42\n"), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("ALTUM_LEVELING_MAX_ROWS")
	})

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Leveling.MaxRows)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: true},
		{name: "cors without origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{
			name:   "no origins needed without cors",
			mutate: func(c *Config) { c.Security.EnableCORS = false; c.Security.AllowedOrigins = nil },
		},
		{name: "bad rate limit", mutate: func(c *Config) { c.Security.RateLimit.RPS = 0 }, wantErr: true},
		{name: "bad log output", mutate: func(c *Config) { c.Logging.Output = "syslog" }, wantErr: true},
		{
			name:   "file output gets a path",
			mutate: func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "logs/altum.log", c.Logging.FilePath)
			},
		},
		{name: "zero upload limit", mutate: func(c *Config) { c.Leveling.MaxUploadBytes = 0 }, wantErr: true},
		{name: "negative max rows", mutate: func(c *Config) { c.Leveling.MaxRows = -1 }, wantErr: true},
		{
			name:   "concurrency falls back",
			mutate: func(c *Config) { c.Leveling.BatchConcurrency = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultBatchConcurrency, c.Leveling.BatchConcurrency)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
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
