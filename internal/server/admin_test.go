package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

func TestAdminHealth(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)
	h := srv.AdminHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminStats(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSize = 8
	srv, addr := startServer(t, cfg)

	exchange(t, addr, encode(t, protocol.Request{Size: 5, Strategy: partition.Block}))
	exchange(t, addr, encode(t, protocol.Request{Size: 9, Strategy: partition.Block}))
	exchange(t, addr, []byte{1})

	require.Eventually(t, func() bool {
		s := srv.Stats()
		return s.Completed == 1 && s.Active == 0
	}, 5*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, uint64(3), snap.Accepted)
	assert.Equal(t, uint64(1), snap.Completed)
	assert.Equal(t, uint64(25), snap.Cells)
	assert.Equal(t, 4, snap.Workers)
	assert.Equal(t, partition.Grid{Rows: 2, Cols: 2}, snap.Grid)
	assert.Equal(t, uint64(1), snap.Failures["size_limit"])
	assert.Equal(t, uint64(1), snap.Failures["protocol"])
	assert.Equal(t, uint64(0), snap.Failures["compute_failure"])
	assert.NotEmpty(t, snap.AvgTime)

	rec = httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// brokenWriter is a ResponseWriter whose body writes always fail.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestAdminStatsLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	srv, err := New(testConfig())
	require.NoError(t, err)

	w := brokenWriter{httptest.NewRecorder()}
	srv.AdminHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Contains(t, logs.String(), "admin[192.0.2.1:1234] encode stats: connection reset")
}

func TestNewAdminServer(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)

	hs := srv.NewAdminServer("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", hs.Addr)
	assert.Equal(t, 5*time.Second, hs.ReadHeaderTimeout)
	assert.NotNil(t, hs.Handler)
}
