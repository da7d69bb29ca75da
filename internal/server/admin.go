package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// AdminHandler returns the HTTP handler for the admin endpoint:
//
//	GET /health   200 while the server accepts connections, 503 after Shutdown
//	GET /stats    JSON Snapshot of the service counters
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if s.isClosed() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
			log.Printf("admin[%s] encode stats: %v", r.RemoteAddr, err)
		}
	})

	return mux
}

// NewAdminServer wraps AdminHandler in an http.Server bound to addr.
func (s *Server) NewAdminServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
