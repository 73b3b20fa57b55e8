// Package config reads server settings from the environment and an optional rules file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr        string
	DatabaseURL string // empty disables the results archive
	LogLevel    string
	RulesFile   string
	SweepEvery  time.Duration
	IdleGrace   time.Duration
	// AllowedOrigins are extra websocket origin host patterns, e.g. "localhost:*".
	AllowedOrigins []string
	Rules          engine.Rules
}

func Default() Config {
	return Config{
		Addr:       ":8080",
		LogLevel:   "info",
		SweepEvery: time.Minute,
		IdleGrace:  time.Minute,
		Rules:      engine.DefaultRules(),
	}
}

// Load reads .env files (if present), then the environment, then the rules file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, which is usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs error

	if v, ok := lookup("ADDR"); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("RULES_FILE"); ok {
		cfg.RulesFile = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	errs = multierr.Append(errs, duration(lookup, "SWEEP_EVERY", &cfg.SweepEvery))
	errs = multierr.Append(errs, duration(lookup, "IDLE_GRACE", &cfg.IdleGrace))

	if cfg.RulesFile != "" {
		data, err := os.ReadFile(cfg.RulesFile)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rules file: %w", err))
		} else if err := ApplyRules(&cfg.Rules, data); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return cfg, cfg.Validate()
}

// ApplyRules overlays a YAML document onto r. Keys left out keep their value.
func ApplyRules(r *engine.Rules, data []byte) error {
	if err := yaml.Unmarshal(data, r); err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs error
	if c.Addr == "" {
		errs = multierr.Append(errs, errors.New("ADDR is empty"))
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.SweepEvery < 0 {
		errs = multierr.Append(errs, errors.New("SWEEP_EVERY is negative"))
	}
	if c.IdleGrace < 0 {
		errs = multierr.Append(errs, errors.New("IDLE_GRACE is negative"))
	}
	errs = multierr.Append(errs, c.Rules.Validate())
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

func duration(lookup func(string) (string, bool), key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d = time.Duration(n) * time.Second
	}
	*dst = d
	return nil
}

// NewLogger builds the production zap logger at the configured level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
