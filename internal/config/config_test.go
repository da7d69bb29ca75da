package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2048, cfg.MaxSize)
	assert.False(t, cfg.Verify)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := LoadFrom("", envMap(map[string]string{
		"MATRIXD_ADDR":          "127.0.0.1:9000",
		"MATRIXD_WORKERS":       "8",
		"MATRIXD_MAX_SIZE":      "64",
		"MATRIXD_MAX_CONNS":     "16",
		"MATRIXD_WORKER_LIMIT":  "2",
		"MATRIXD_READ_TIMEOUT":  "5s",
		"MATRIXD_WRITE_TIMEOUT": "0",
		"MATRIXD_VERIFY":        "true",
		"MATRIXD_SEED":          "42",
		"MATRIXD_ADMIN_ADDR":    ":9090",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Addr:         "127.0.0.1:9000",
		AdminAddr:    ":9090",
		Workers:      8,
		MaxSize:      64,
		MaxConns:     16,
		WorkerLimit:  2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0,
		Seed:         42,
		Verify:       true,
	}, cfg)
}

func TestPortShorthand(t *testing.T) {
	cfg, err := LoadFrom("", envMap(map[string]string{"MATRIXD_PORT": "7070"}))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)

	// an explicit address wins over the port shorthand
	cfg, err = LoadFrom("", envMap(map[string]string{"MATRIXD_PORT": "7070", "MATRIXD_ADDR": "localhost:1"}))
	require.NoError(t, err)
	assert.Equal(t, "localhost:1", cfg.Addr)
}

func TestYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrixd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":6000"
workers: 6
max_size: 100
read_timeout: 2s
verify: true
seed: 7
`), 0o600))

	cfg, err := LoadFrom(path, envMap(map[string]string{"MATRIXD_WORKERS": "3"}))
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Addr)
	assert.Equal(t, 3, cfg.Workers, "env overrides file")
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout, "unset keys keep defaults")
	assert.True(t, cfg.Verify)
	assert.Equal(t, uint64(7), cfg.Seed)
}

func TestYAMLUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workerz: 3\n"), 0o600))

	_, err := LoadFrom(path, envMap(nil))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"workers not a number", map[string]string{"MATRIXD_WORKERS": "many"}},
		{"zero workers", map[string]string{"MATRIXD_WORKERS": "0"}},
		{"negative max size", map[string]string{"MATRIXD_MAX_SIZE": "-1"}},
		{"max size above ceiling", map[string]string{"MATRIXD_MAX_SIZE": "8193"}},
		{"negative conns", map[string]string{"MATRIXD_MAX_CONNS": "-3"}},
		{"bad duration", map[string]string{"MATRIXD_READ_TIMEOUT": "soon"}},
		{"negative duration", map[string]string{"MATRIXD_WRITE_TIMEOUT": "-1s"}},
		{"bad bool", map[string]string{"MATRIXD_VERIFY": "perhaps"}},
		{"bad seed", map[string]string{"MATRIXD_SEED": "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom("", envMap(tt.env))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Addr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	cfg.WorkerLimit = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestSizeLimit(t *testing.T) {
	tests := []struct {
		maxSize int
		want    int
	}{
		{0, SizeCeiling},
		{1, 1},
		{2048, 2048},
		{SizeCeiling, SizeCeiling},
		{SizeCeiling + 1, SizeCeiling},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.MaxSize = tt.maxSize
		assert.Equal(t, tt.want, cfg.SizeLimit(), "max_size %d", tt.maxSize)
	}

	// three float64 matrices at the ceiling stay addressable
	assert.Less(t, int64(3*8)*SizeCeiling*SizeCeiling, int64(2<<30))
}
