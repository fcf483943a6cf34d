// Package config loads process settings: defaults, then an optional YAML file, then the
// environment (a .env file is read first when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdptw/internal/model"
)

// Config is the process configuration.
type Config struct {
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	Env      string `yaml:"env" validate:"oneof=development production test"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
	// LogSearch makes the in-process engine log its progress at debug level.
	LogSearch bool `yaml:"log_search"`

	Solver Solver `yaml:"solver"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url" validate:"omitempty,url"`

	Rate Rate `yaml:"rate"`
	Auth Auth `yaml:"auth"`

	MaxSolveTimeoutMs int64 `yaml:"max_solve_timeout_ms" validate:"gte=0"`
	// Optimizer holds the defaults of tenants that never saved their own.
	Optimizer model.OptimizerConfig `yaml:"optimizer"`
}

// Solver selects the engine.
type Solver struct {
	Backend    string `yaml:"backend" validate:"oneof=local remote"`
	OrtoolHost string `yaml:"ortool_host" validate:"required_if=Backend remote"`
	OrtoolPort int    `yaml:"ortool_port" validate:"gt=0,lte=65535"`
}

// Rate limits solve requests per tenant. RPS 0 disables limiting.
type Rate struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

// Auth configures bearer token verification.
type Auth struct {
	Mode       string `yaml:"mode" validate:"oneof=dev hmac"`
	HMACSecret string `yaml:"hmac_secret" validate:"required_if=Mode hmac"`
}

// MaxSolveTimeout is the longest search budget a request may ask for, zero for no limit.
func (c Config) MaxSolveTimeout() time.Duration {
	return time.Duration(c.MaxSolveTimeoutMs) * time.Millisecond
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:     8080,
		Env:      "production",
		LogLevel: "info",
		Solver: Solver{
			Backend:    "local",
			OrtoolHost: "localhost",
			OrtoolPort: 8000,
		},
		Auth:              Auth{Mode: "dev"},
		MaxSolveTimeoutMs: 60000,
		Optimizer: model.OptimizerConfig{
			Method:  "parallel_cheapest_insertion",
			Timeout: 100,
		},
	}
}

// Load builds the configuration. envFile may be empty; a missing .env is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	integer("PORT", &c.Port)
	str("APP_ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("LOG_SEARCH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_SEARCH: %w", err))
		}
		c.LogSearch = b
	}
	str("SOLVER_BACKEND", &c.Solver.Backend)
	str("ORTOOL_HOST", &c.Solver.OrtoolHost)
	integer("ORTOOL_PORT", &c.Solver.OrtoolPort)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_RPS: %w", err))
		}
		c.Rate.RPS = f
	}
	integer("RATE_BURST", &c.Rate.Burst)
	str("AUTH_MODE", &c.Auth.Mode)
	str("AUTH_HMAC_SECRET", &c.Auth.HMACSecret)
	if v, ok := lookup("MAX_SOLVE_TIMEOUT_MS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_SOLVE_TIMEOUT_MS: %w", err))
		}
		c.MaxSolveTimeoutMs = n
	}
	c.Env = strings.ToLower(c.Env)
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Auth.Mode = strings.ToLower(c.Auth.Mode)
	c.Solver.Backend = strings.ToLower(c.Solver.Backend)
	if len(errs) > 0 {
		return fmt.Errorf("config from environment: %w", errors.Join(errs...))
	}
	return nil
}
