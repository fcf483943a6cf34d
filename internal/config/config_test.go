package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.MaxSolveTimeout())
	assert.Equal(t, "local", cfg.Solver.Backend)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"PORT":                 "9090",
		"APP_ENV":              "Development",
		"LOG_LEVEL":            "DEBUG",
		"LOG_SEARCH":           "true",
		"SOLVER_BACKEND":       "remote",
		"ORTOOL_HOST":          "solver.internal",
		"ORTOOL_PORT":          "8001",
		"RATE_RPS":             "2.5",
		"RATE_BURST":           "5",
		"AUTH_MODE":            "hmac",
		"AUTH_HMAC_SECRET":     "s3cret",
		"MAX_SOLVE_TIMEOUT_MS": "1500",
		"REDIS_URL":            "redis://localhost:6379/0",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogSearch)
	assert.Equal(t, Solver{Backend: "remote", OrtoolHost: "solver.internal", OrtoolPort: 8001}, cfg.Solver)
	assert.Equal(t, Rate{RPS: 2.5, Burst: 5}, cfg.Rate)
	assert.Equal(t, Auth{Mode: "hmac", HMACSecret: "s3cret"}, cfg.Auth)
	assert.Equal(t, 1500*time.Millisecond, cfg.MaxSolveTimeout())
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{"PORT": "eighty", "RATE_RPS": "fast"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "RATE_RPS")
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":       func(c *Config) { c.Solver.Backend = "cloud" },
		"hmac secret":   func(c *Config) { c.Auth.Mode = "hmac" },
		"log level":     func(c *Config) { c.LogLevel = "verbose" },
		"port":          func(c *Config) { c.Port = 0 },
		"method":        func(c *Config) { c.Optimizer.Method = "tabu" },
		"negative rate": func(c *Config) { c.Rate.RPS = -1 },
	}
	for name, edit := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			edit(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
port: 7000
log_level: warn
optimizer:
  method: automatic
  timeout: 250
  enable_guided_local_search: true
`), 0o600))
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("RATE_BURST=9\n"), 0o600))

	t.Setenv("CONFIG_FILE", yamlPath)
	t.Setenv("PORT", "7100")
	// godotenv never overrides variables that are already set
	t.Setenv("RATE_BURST", "")
	require.NoError(t, os.Unsetenv("RATE_BURST"))

	cfg, err := Load(envPath)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9, cfg.Rate.Burst)
	assert.Equal(t, "automatic", cfg.Optimizer.Method)
	assert.Equal(t, int64(250), cfg.Optimizer.Timeout)
	assert.True(t, cfg.Optimizer.EnableGuidedLocalSearch)
}

func TestLoadMissingDotEnvIsFine(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
