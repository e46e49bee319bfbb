// Package main implements the flint worker process: it hosts a shuffle block
// server, registers itself with the driver on startup, and then serves
// shuffle blocks until it is told to stop. It does not receive or run tasks
// from the driver.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                 Worker                   │
//	├─────────────────────────────────────────┤
//	│  HTTP API (served by shuffle.Manager):  │
//	│    /                - liveness probe    │
//	│    /shuffle/{s}/{m}/{r} - block fetch    │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    env.Env         - Tracker/Cache/Mgr  │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - FLINT_WORKER_ID: Unique worker identifier (required)
//   - FLINT_LOCAL_IP: This worker's address, used for the shuffle listener
//   - FLINT_DRIVER_ADDR: Driver URL to register with (required)
//   - FLINT_HOSTS_FILE: Path to the hosts.json describing the cluster
//   - FLINT_LOCAL_DIR_ROOT: Parent directory for this worker's local spill dir
//
// Example usage:
//
//	FLINT_WORKER_ID=worker-1 \
//	FLINT_LOCAL_IP=127.0.0.1 \
//	FLINT_DRIVER_ADDR=http://localhost:8080 \
//	./worker
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/flint/internal/cluster"
	"github.com/dreamware/flint/internal/env"
)

// logFatal is a variable so tests can intercept fatal errors.
var logFatal = log.Fatalf

func main() {
	workerID := mustGetenv("FLINT_WORKER_ID")
	driverAddr := mustGetenv("FLINT_DRIVER_ADDR")

	cfg, err := env.ConfigFromEnvironment()
	if err != nil {
		logFatal("config: %v", err)
	}

	e, err := env.New(env.RoleWorker, cfg)
	if err != nil {
		logFatal("env: %v", err)
	}
	// ConfigFromEnvironment + New(RoleWorker, ...) already bound and started
	// the shuffle manager's HTTP listener; there is nothing further to serve
	// here beyond registering and waiting for shutdown.
	log.Printf("worker[%s] shuffle server listening at %s", workerID, e.ShuffleManager.URI())

	register(context.Background(), driverAddr, workerID, e.ShuffleManager.URI())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.ShuffleManager.Shutdown(shutdownCtx); err != nil {
		log.Printf("shuffle manager shutdown error: %v", err)
	}
	log.Printf("worker[%s] stopped", workerID)
}

// register announces this worker's shuffle server address to the driver,
// retrying on failure to ride out driver startup delays or transient
// network trouble.
//
// Retry strategy: 10 attempts, 400ms apart (~4s total); the last error is
// fatal, since a worker that cannot register can never be assigned work.
func register(ctx context.Context, driverAddr, id, shuffleURI string) {
	body := cluster.RegisterRequest{Worker: cluster.WorkerInfo{ID: id, ShuffleURI: shuffleURI}}
	var lastErr error

	for i := 0; i < 10; i++ {
		lastErr = cluster.PostJSON(ctx, driverAddr+"/register", body, nil)
		if lastErr == nil {
			log.Printf("registered with driver @ %s", driverAddr)
			return
		}
		log.Printf("register retry %d: %v", i+1, lastErr)
		time.Sleep(400 * time.Millisecond)
	}

	logFatal("failed to register with driver: %v", lastErr)
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		logFatal("missing required environment variable %s", k)
	}
	return v
}
