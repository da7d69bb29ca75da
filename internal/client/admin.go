package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreamware/matrixd/internal/server"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Health checks the admin endpoint at baseURL (e.g. "http://127.0.0.1:9090").
func Health(ctx context.Context, baseURL string) error {
	resp, err := get(ctx, baseURL, "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Stats fetches the server's counters from the admin endpoint.
func Stats(ctx context.Context, baseURL string) (server.Snapshot, error) {
	var snap server.Snapshot
	resp, err := get(ctx, baseURL, "/stats")
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode stats: %w", err)
	}
	return snap, nil
}

func get(ctx context.Context, baseURL, path string) (*http.Response, error) {
	url := strings.TrimSuffix(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return resp, nil
}
