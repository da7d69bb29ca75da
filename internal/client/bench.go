package client

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

// BenchResult summarizes a benchmark run. Latency figures cover every
// request, failed ones included.
type BenchResult struct {
	Codes    map[protocol.Code]int
	RunID    string
	Mode     string
	Strategy partition.Strategy
	Size     int
	Requests int
	Failures int
	Wall     time.Duration
	Mean     time.Duration
	Min      time.Duration
	Median   time.Duration
	P95      time.Duration
	Max      time.Duration
}

func (r BenchResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s): %d requests, %dx%d, %s\n", r.RunID, r.Mode, r.Requests, r.Size, r.Size, r.Strategy)
	fmt.Fprintf(&b, "  failures: %d\n", r.Failures)
	fmt.Fprintf(&b, "  wall:     %v\n", r.Wall)
	fmt.Fprintf(&b, "  latency:  mean %v  min %v  p50 %v  p95 %v  max %v", r.Mean, r.Min, r.Median, r.P95, r.Max)
	return b.String()
}

// Sequential issues n requests one after another and times each of them.
func (c *Client) Sequential(ctx context.Context, strategy partition.Strategy, size, n int) BenchResult {
	runID := uuid.NewString()
	log.Printf("bench[%s] sequential: %d x %s size=%d against %s", runID, n, strategy, size, c.Addr)

	start := time.Now()
	latencies := make([]time.Duration, 0, n)
	codes := make([]protocol.Code, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		t0 := time.Now()
		resp := c.Calculate(ctx, strategy, size, false)
		latencies = append(latencies, time.Since(t0))
		codes = append(codes, resp.Code)
	}
	return summarize(runID, "sequential", strategy, size, time.Since(start), latencies, codes)
}

// Concurrent starts clients virtual clients at once, each issuing a single
// request, and waits for all of them.
func (c *Client) Concurrent(ctx context.Context, strategy partition.Strategy, size, clients int) BenchResult {
	runID := uuid.NewString()
	log.Printf("bench[%s] concurrent: %d clients x %s size=%d against %s", runID, clients, strategy, size, c.Addr)

	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, clients)
		codes     = make([]protocol.Code, 0, clients)
		g         errgroup.Group
	)
	start := time.Now()
	for i := 0; i < clients; i++ {
		g.Go(func() error {
			t0 := time.Now()
			resp := c.Calculate(ctx, strategy, size, false)
			took := time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			latencies = append(latencies, took)
			codes = append(codes, resp.Code)
			return nil
		})
	}
	_ = g.Wait()
	return summarize(runID, "concurrent", strategy, size, time.Since(start), latencies, codes)
}

func summarize(runID, mode string, strategy partition.Strategy, size int, wall time.Duration, latencies []time.Duration, codes []protocol.Code) BenchResult {
	r := BenchResult{
		RunID:    runID,
		Mode:     mode,
		Strategy: strategy,
		Size:     size,
		Requests: len(latencies),
		Wall:     wall,
		Codes:    make(map[protocol.Code]int),
	}
	for _, code := range codes {
		r.Codes[code]++
		if !code.OK() {
			r.Failures++
		}
	}
	if len(latencies) == 0 {
		return r
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	r.Mean = total / time.Duration(len(sorted))
	r.Min = sorted[0]
	r.Max = sorted[len(sorted)-1]
	r.Median = percentile(sorted, 50)
	r.P95 = percentile(sorted, 95)
	return r
}

// percentile returns the nearest-rank percentile of sorted.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
