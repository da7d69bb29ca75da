// Package server implements the matrixd TCP service: the connection
// listener, the per-connection request handler, service statistics and the
// optional HTTP admin endpoint.
//
// Architecture:
//
//	┌──────────────────────────────────────────────┐
//	│                  Server                      │
//	├──────────────────────────────────────────────┤
//	│  accept loop        one goroutine            │
//	│   └─ handler        one goroutine per conn   │
//	│       └─ workers    one goroutine per        │
//	│                     assignment of the plan   │
//	├──────────────────────────────────────────────┤
//	│  shared, read-only: Planner (grid), Config   │
//	│  shared, synchronized: Generator, Stats      │
//	└──────────────────────────────────────────────┘
//
// Each connection carries exactly one exchange. The handler walks an
// explicit state machine:
//
//	Accepted → RequestRead → MatricesGenerated → WorkersDispatched
//	         → WorkersJoined → ResponseSent → Closed
//
// Any failure moves the handler to Errored, where it writes a best-effort
// error response (a negative code, never a matrix) before Closed. A failed
// response write is ResponseSent → Errored. The connection is closed on
// every path.
//
// Nothing is shared between requests except the Planner, whose Block grid
// is computed once in New, the Generator and the statistics counters. The
// output matrix of a request is shared only by that request's workers, each
// of which writes a disjoint set of cells, so no locking is needed on it.
//
// Failure isolation:
//   - A malformed request fails only its own connection.
//   - A panicking worker fails only its own request (compute failure code).
//     So does a panic in the handler itself, from a Generator or Observer.
//   - No request may exceed config.SizeCeiling, even with MaxSize 0.
//   - Accept errors other than a closed listener end Serve; handlers that
//     are already running finish normally.
//
// Example:
//
//	cfg, _ := config.Load()
//	srv, err := server.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	go srv.ListenAndServe()
//	...
//	srv.Shutdown(ctx)
package server
