// Package main implements the flint driver process: the control plane that
// tracks worker registration, watches worker health, and relays broadcast
// messages to registered workers. It does not schedule or dispatch RDD
// partitions to workers.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                 Driver                   │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /register     - Worker registration  │
//	│    /workers      - List active workers  │
//	│    /broadcast    - Cluster-wide ops     │
//	│    /health       - Liveness probe       │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    env.Env        - Tracker/Cache/Mon   │
//	│    workers[]       - Registered workers │
//	└─────────────────────────────────────────┘
//
// The driver does not execute RDD compute graphs in this process. Its
// env.Env holds a map-output tracker, but no HTTP route exposes it to
// workers; the part of the Env this process actively uses is the health
// monitor that watches the registered workers.
//
// Configuration:
//   - FLINT_DRIVER_ADDR: Listen address (default: ":8080")
//   - FLINT_LOCAL_IP: This process's address, passed to env.ConfigFromEnvironment
//   - FLINT_HOSTS_FILE: Path to the hosts.json describing the cluster
//
// Example usage:
//
//	FLINT_LOCAL_IP=127.0.0.1 FLINT_DRIVER_ADDR=:8080 ./driver
//
//	curl -X POST localhost:8080/register \
//	  -d '{"worker":{"id":"worker-1","shuffle_uri":"http://localhost:5001"}}'
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/flint/internal/cluster"
	"github.com/dreamware/flint/internal/env"
)

// logFatal is a variable so tests can intercept fatal errors.
var logFatal = log.Fatalf

// server holds the driver's runtime state: its process environment bundle
// and the list of workers that have registered with it.
type server struct {
	e       *env.Env
	workers []cluster.WorkerInfo
	mu      sync.RWMutex
}

func newServer(e *env.Env) *server {
	return &server{e: e}
}

func main() {
	addr := getenv("FLINT_DRIVER_ADDR", ":8080")

	cfg, err := env.ConfigFromEnvironment()
	if err != nil {
		logFatal("config: %v", err)
	}
	e, err := env.New(env.RoleDriver, cfg)
	if err != nil {
		logFatal("env: %v", err)
	}

	srv := newServer(e)

	ctx, cancelMonitor := context.WithCancel(context.Background())
	e.Monitor.SetOnUnhealthy(func(workerURI string) {
		log.Printf("worker %s is unhealthy", workerURI)
		srv.markWorkerUnhealthy(workerURI)
	})
	go e.Monitor.Start(ctx, func() []string {
		srv.mu.RLock()
		defer srv.mu.RUnlock()
		uris := make([]string, len(srv.workers))
		for i, w := range srv.workers {
			uris[i] = w.ShuffleURI
		}
		return uris
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/register", srv.handleRegister)
	mux.HandleFunc("/workers", srv.handleListWorkers)
	mux.HandleFunc("/broadcast", srv.handleBroadcast)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("driver listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("stopping health monitor...")
	cancelMonitor()
	e.Monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	log.Println("driver stopped")
}

// handleRegister records a worker's identity and shuffle server address,
// so later map-output locations reported against that worker can be trusted.
//
// Endpoint: POST /register
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Worker.ID == "" || req.Worker.ShuffleURI == "" {
		http.Error(w, "missing id/shuffle_uri", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.workers, func(wk cluster.WorkerInfo) bool { return wk.ID == req.Worker.ID })
	if idx >= 0 {
		s.workers[idx] = req.Worker
	} else {
		s.workers = append(s.workers, req.Worker)
		log.Printf("worker %s registered (%s)", req.Worker.ID, req.Worker.ShuffleURI)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) markWorkerUnhealthy(workerURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, wk := range s.workers {
		if wk.ShuffleURI == workerURI {
			s.workers[i].Status = "unhealthy"
		}
	}
}

// handleListWorkers returns every registered worker along with the driver's
// latest health verdict for it.
//
// Endpoint: GET /workers
func (s *server) handleListWorkers(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.e.Monitor.Snapshot()
	workers := make([]cluster.WorkerInfo, len(s.workers))
	for i, wk := range s.workers {
		workers[i] = wk
		if wk.Status != "unhealthy" {
			if h, ok := snapshot[wk.ShuffleURI]; ok {
				workers[i].Status = h.Status
				workers[i].LastHealthCheck = h.LastCheck
			} else {
				workers[i].Status = "unknown"
			}
		}
	}

	if err := json.NewEncoder(w).Encode(struct {
		Workers []cluster.WorkerInfo `json:"workers"`
	}{Workers: workers}); err != nil {
		log.Printf("encode workers: %v", err)
	}
}

// handleBroadcast pushes a path-addressed payload to every registered worker,
// used for cluster control operations outside the shuffle-fetch protocol.
//
// Endpoint: POST /broadcast
func (s *server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req cluster.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Path == "" || req.Path[0] != '/' {
		http.Error(w, "path must start with '/'", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	targets := append([]cluster.WorkerInfo(nil), s.workers...)
	s.mu.RUnlock()

	type result struct {
		WorkerID string `json:"worker_id"`
		Err      string `json:"err,omitempty"`
	}
	out := make([]result, 0, len(targets))

	ctx, cancel := context.WithTimeout(r.Context(), 4*time.Second)
	defer cancel()

	for _, wk := range targets {
		url := wk.ShuffleURI + req.Path
		err := cluster.PostJSON(ctx, url, req.Payload, nil)
		res := result{WorkerID: wk.ID}
		if err != nil {
			res.Err = err.Error()
		}
		out = append(out, res)
	}

	if err := json.NewEncoder(w).Encode(struct {
		Results []result `json:"results"`
		SentTo  int      `json:"sent_to"`
	}{Results: out, SentTo: len(out)}); err != nil {
		log.Printf("encode broadcast results: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
