// Package config loads matrixd server settings: built-in defaults, then an
// optional YAML file, then environment overrides, then validation.
//
// Environment variables:
//   - MATRIXD_CONFIG: path of a YAML file to load first
//   - MATRIXD_ADDR: listen address (default ":8080")
//   - MATRIXD_PORT: listen port, shorthand for MATRIXD_ADDR=":<port>"
//   - MATRIXD_WORKERS: workers per request (default 4)
//   - MATRIXD_MAX_SIZE: largest accepted matrix size (default 2048),
//     0 = SizeCeiling
//   - MATRIXD_MAX_CONNS: in-flight connection limit, 0 = unbounded
//   - MATRIXD_WORKER_LIMIT: worker goroutines running at once per request, 0 = all
//   - MATRIXD_READ_TIMEOUT / MATRIXD_WRITE_TIMEOUT: e.g. "30s", 0 disables
//   - MATRIXD_VERIFY: "true" re-checks every product with gonum
//   - MATRIXD_SEED: generator seed, 0 = seeded from the clock
//   - MATRIXD_ADMIN_ADDR: HTTP address for /health and /stats, empty disables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for configuration that cannot be used.
var ErrInvalid = errors.New("config: invalid")

// SizeCeiling is the largest matrix size the server ever accepts, whatever
// MaxSize says. One request holds three size×size float64 matrices, so the
// ceiling keeps a request under 1.5 GiB.
const SizeCeiling = 8192

// Config holds every server setting. All fields are fixed at startup.
type Config struct {
	Addr         string        `yaml:"addr"`
	AdminAddr    string        `yaml:"admin_addr"`
	Workers      int           `yaml:"workers"`
	MaxSize      int           `yaml:"max_size"`
	MaxConns     int           `yaml:"max_connections"`
	WorkerLimit  int           `yaml:"worker_limit"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Seed         uint64        `yaml:"seed"`
	Verify       bool          `yaml:"verify"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         ":8080",
		Workers:      4,
		MaxSize:      2048,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Load builds a Config from defaults, the YAML file named by MATRIXD_CONFIG
// (if set), and MATRIXD_* environment overrides.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("MATRIXD_CONFIG"), os.Getenv)
}

// LoadFrom is Load with an explicit file path and environment lookup.
//
// Parameters:
//   - path: YAML file to read; empty skips the file
//   - env: Environment lookup, os.Getenv in production
//
// Returns:
//   - The merged, validated Config
//   - An error wrapping ErrInvalid for bad values or unknown YAML keys, or
//     the open error for a missing file
//
// Example:
//
//	cfg, err := config.LoadFrom("matrixd.yaml", os.Getenv)
func LoadFrom(path string, env func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse %s: %v: %w", path, err, ErrInvalid)
	}
	return nil
}

func (c *Config) applyEnv(env func(string) string) error {
	get := func(k, def string) string {
		if v := env(k); v != "" {
			return v
		}
		return def
	}

	if port := env("MATRIXD_PORT"); port != "" {
		c.Addr = ":" + port
	}
	c.Addr = get("MATRIXD_ADDR", c.Addr)
	c.AdminAddr = get("MATRIXD_ADMIN_ADDR", c.AdminAddr)

	ints := []struct {
		key string
		dst *int
	}{
		{"MATRIXD_WORKERS", &c.Workers},
		{"MATRIXD_MAX_SIZE", &c.MaxSize},
		{"MATRIXD_MAX_CONNS", &c.MaxConns},
		{"MATRIXD_WORKER_LIMIT", &c.WorkerLimit},
	}
	for _, e := range ints {
		v := env(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", e.key, v, ErrInvalid)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"MATRIXD_READ_TIMEOUT", &c.ReadTimeout},
		{"MATRIXD_WRITE_TIMEOUT", &c.WriteTimeout},
	}
	for _, e := range durations {
		v := env(e.key)
		if v == "" {
			continue
		}
		if v == "0" {
			*e.dst = 0
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", e.key, v, ErrInvalid)
		}
		*e.dst = d
	}

	if v := env("MATRIXD_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MATRIXD_VERIFY=%q: %w", v, ErrInvalid)
		}
		c.Verify = b
	}
	if v := env("MATRIXD_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MATRIXD_SEED=%q: %w", v, ErrInvalid)
		}
		c.Seed = seed
	}
	return nil
}

// SizeLimit returns the largest request size to accept: MaxSize, or
// SizeCeiling when MaxSize is 0.
func (c Config) SizeLimit() int {
	if c.MaxSize == 0 || c.MaxSize > SizeCeiling {
		return SizeCeiling
	}
	return c.MaxSize
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("empty listen address: %w", ErrInvalid)
	case c.Workers < 1:
		return fmt.Errorf("workers = %d, need >= 1: %w", c.Workers, ErrInvalid)
	case c.MaxSize < 0 || c.MaxSize > SizeCeiling:
		return fmt.Errorf("max_size = %d, need 0..%d: %w", c.MaxSize, SizeCeiling, ErrInvalid)
	case c.MaxConns < 0:
		return fmt.Errorf("max_connections = %d: %w", c.MaxConns, ErrInvalid)
	case c.WorkerLimit < 0:
		return fmt.Errorf("worker_limit = %d: %w", c.WorkerLimit, ErrInvalid)
	case c.ReadTimeout < 0 || c.WriteTimeout < 0:
		return fmt.Errorf("negative timeout: %w", ErrInvalid)
	}
	return nil
}
