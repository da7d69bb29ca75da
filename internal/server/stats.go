package server

import (
	"sync/atomic"
	"time"

	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

// Stats counts connections and outcomes. All counters are updated with
// atomics off the computation path; read them through Snapshot.
type Stats struct {
	started   time.Time
	accepted  atomic.Uint64
	active    atomic.Int64
	completed atomic.Uint64
	cells     atomic.Uint64
	busyNanos atomic.Int64
	failures  map[protocol.Code]*atomic.Uint64
}

var failureNames = map[protocol.Code]string{
	protocol.CodeTransport:           "transport",
	protocol.CodeProtocol:            "protocol",
	protocol.CodeUnsupportedStrategy: "unsupported_strategy",
	protocol.CodeComputeFailure:      "compute_failure",
	protocol.CodeSizeLimit:           "size_limit",
}

func newStats() *Stats {
	s := &Stats{
		started:  time.Now(),
		failures: make(map[protocol.Code]*atomic.Uint64, len(failureNames)),
	}
	for code := range failureNames {
		s.failures[code] = new(atomic.Uint64)
	}
	return s
}

func (s *Stats) onOpen() {
	s.accepted.Add(1)
	s.active.Add(1)
}

func (s *Stats) onClose() { s.active.Add(-1) }

func (s *Stats) onComplete(size int, took time.Duration) {
	s.completed.Add(1)
	s.cells.Add(uint64(size) * uint64(size))
	s.busyNanos.Add(int64(took))
}

func (s *Stats) onFailure(code protocol.Code) {
	if c, ok := s.failures[code]; ok {
		c.Add(1)
		return
	}
	s.failures[protocol.CodeComputeFailure].Add(1)
}

// Snapshot is a point-in-time copy of the server counters, shaped for the
// /stats endpoint.
type Snapshot struct {
	Failures  map[string]uint64 `json:"failures" yaml:"failures"`
	Uptime    string            `json:"uptime" yaml:"uptime"`
	AvgTime   string            `json:"avg_request_time" yaml:"avg_request_time"`
	Grid      partition.Grid    `json:"grid" yaml:"grid"`
	Accepted  uint64            `json:"accepted" yaml:"accepted"`
	Completed uint64            `json:"completed" yaml:"completed"`
	Cells     uint64            `json:"cells_computed" yaml:"cells_computed"`
	Active    int64             `json:"active" yaml:"active"`
	Workers   int               `json:"workers" yaml:"workers"`
}

func (s *Stats) snapshot(p *partition.Planner) Snapshot {
	snap := Snapshot{
		Accepted:  s.accepted.Load(),
		Active:    s.active.Load(),
		Completed: s.completed.Load(),
		Cells:     s.cells.Load(),
		Workers:   p.Workers(),
		Grid:      p.Grid(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Failures:  make(map[string]uint64, len(failureNames)),
	}
	for code, name := range failureNames {
		snap.Failures[name] = s.failures[code].Load()
	}
	var avg time.Duration
	if snap.Completed > 0 {
		avg = time.Duration(s.busyNanos.Load() / int64(snap.Completed))
	}
	snap.AvgTime = avg.String()
	return snap
}
