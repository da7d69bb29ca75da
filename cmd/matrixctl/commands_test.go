package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/matrixd/internal/config"
	"github.com/dreamware/matrixd/internal/matrix"
	"github.com/dreamware/matrixd/internal/server"
)

func startServer(t *testing.T, opts ...server.Option) (*server.Server, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	srv, err := server.New(cfg, opts...)
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, l.Addr().String()
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCalcCommand(t *testing.T) {
	_, addr := startServer(t, server.WithGenerator(matrix.GeneratorFunc(matrix.Identity)))

	out, err := execute(t, "calc", "--addr", addr, "--size", "2", "--strategy", "block", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "code: ok")
	assert.Contains(t, out, matrix.Identity(2).String())

	out, err = execute(t, "calc", "-a", addr, "-n", "4", "-s", "element")
	require.NoError(t, err)
	assert.Contains(t, out, "code: ok")
	assert.NotContains(t, out, "[")
}

func TestCalcCommandFailures(t *testing.T) {
	_, err := execute(t, "calc", "--strategy", "diagonal")
	assert.ErrorContains(t, err, "diagonal")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	out, err := execute(t, "calc", "--addr", addr, "--timeout", "1s")
	assert.Error(t, err)
	assert.Contains(t, out, "code: -1")
}

func TestBenchCommand(t *testing.T) {
	_, addr := startServer(t)
	out, err := execute(t, "bench", "--addr", addr, "--size", "5", "--requests", "3", "--strategy", "cyclic-element")
	require.NoError(t, err)
	assert.Contains(t, out, "(sequential): 3 requests, 5x5, cyclic-element")
	assert.Contains(t, out, "failures: 0")

	_, err = execute(t, "bench", "--addr", addr, "--requests", "0")
	assert.Error(t, err)
}

func TestSwarmCommand(t *testing.T) {
	_, addr := startServer(t)
	out, err := execute(t, "swarm", "--addr", addr, "--size", "6", "--clients", "8", "--strategy", "row")
	require.NoError(t, err)
	assert.Contains(t, out, "(concurrent): 8 requests, 6x6, cyclic-row")

	_, err = execute(t, "swarm", "--addr", addr, "--clients", "0")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	srv, addr := startServer(t)
	_, err := execute(t, "calc", "--addr", addr)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.AdminHandler())
	defer ts.Close()

	var snap server.Snapshot
	require.Eventually(t, func() bool {
		out, err := execute(t, "stats", "--admin", ts.URL)
		if err != nil {
			return false
		}
		snap = server.Snapshot{}
		return yaml.Unmarshal([]byte(out), &snap) == nil && snap.Completed == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 4, snap.Workers)
	assert.Equal(t, 2, snap.Grid.Rows)
}

func TestStrategiesCommand(t *testing.T) {
	out, err := execute(t, "strategies")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"protocol version 1",
		"  0  cyclic-element",
		"  1  cyclic-row",
		"  2  block",
	}, lines)
}
