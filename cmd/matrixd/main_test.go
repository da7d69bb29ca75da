package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/matrixd/internal/client"
	"github.com/dreamware/matrixd/internal/config"
	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		env         map[string]string
		wantAddr    string
		wantWorkers int
		wantErr     bool
	}{
		{name: "defaults", wantAddr: ":8080", wantWorkers: 4},
		{name: "port only", args: []string{"9000"}, wantAddr: ":9000", wantWorkers: 4},
		{name: "port and workers", args: []string{"9000", "8"}, wantAddr: ":9000", wantWorkers: 8},
		{
			name:        "args override env",
			args:        []string{"9001", "2"},
			env:         map[string]string{"MATRIXD_ADDR": "127.0.0.1:7000", "MATRIXD_WORKERS": "16"},
			wantAddr:    ":9001",
			wantWorkers: 2,
		},
		{
			name:        "env only",
			env:         map[string]string{"MATRIXD_ADDR": "127.0.0.1:7000", "MATRIXD_WORKERS": "16"},
			wantAddr:    "127.0.0.1:7000",
			wantWorkers: 16,
		},
		{name: "bad port", args: []string{"http"}, wantErr: true},
		{name: "port out of range", args: []string{"70000"}, wantErr: true},
		{name: "bad workers", args: []string{"9000", "lots"}, wantErr: true},
		{name: "zero workers", args: []string{"9000", "0"}, wantErr: true},
		{name: "too many args", args: []string{"1", "2", "3"}, wantErr: true},
		{name: "bad env", env: map[string]string{"MATRIXD_MAX_SIZE": "big"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(tt.args, envMap(tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, cfg.Addr)
			assert.Equal(t, tt.wantWorkers, cfg.Workers)
		})
	}
}

func TestMainFatalOnBadArgs(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"matrixd", "not-a-port"}

	oldLogFatal := logFatal
	defer func() { logFatal = oldLogFatal }()
	fatalCalled := false
	logFatal = func(format string, v ...interface{}) {
		fatalCalled = true
	}

	main()
	assert.True(t, fatalCalled, "expected log.Fatal for an invalid port")
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Workers = 3

	ctx, cancel := context.WithCancel(context.Background())
	addrc := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, func(a net.Addr) { addrc <- a }) }()

	var addr net.Addr
	select {
	case addr = <-addrc:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp := client.New(addr.String()).Calculate(context.Background(), partition.Block, 4, true)
	require.Equal(t, protocol.CodeOK, resp.Code)
	assert.Equal(t, 4, resp.Matrix.Size())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	resp = client.New(addr.String()).Calculate(context.Background(), partition.Block, 4, false)
	assert.Equal(t, protocol.CodeTransport, resp.Code, "listener is closed after shutdown")
}

func TestRunWithAdminEndpoint(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	adminAddr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.AdminAddr = adminAddr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + adminAddr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	snap, err := client.Stats(context.Background(), "http://"+adminAddr)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Workers)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnBusyAddress(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := config.Default()
	cfg.Addr = l.Addr().String()
	assert.Error(t, run(context.Background(), cfg, nil))
}
