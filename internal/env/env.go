package env

import (
	"fmt"
	"os"
	"time"

	"github.com/dreamware/flint/internal/shuffle"
)

// Role identifies whether this process is the driver ("master") or a
// worker ("slave"). ResolveRole maps a first command-line argument to a
// Role; cmd/driver and cmd/worker do not call it, and each passes its own
// fixed Role to New instead.
type Role int

const (
	// RoleDriver is the default: any process whose first argument is not
	// "slave" is the driver.
	RoleDriver Role = iota
	// RoleWorker is selected by passing "slave" as the first argument.
	RoleWorker
)

func (r Role) String() string {
	if r == RoleWorker {
		return "worker"
	}
	return "driver"
}

// ResolveRole inspects args (normally os.Args[1:]) and returns RoleWorker
// when the first element is exactly "slave", RoleDriver otherwise.
func ResolveRole(args []string) Role {
	if len(args) > 0 && args[0] == "slave" {
		return RoleWorker
	}
	return RoleDriver
}

// Env bundles the pieces of process state an RDD graph needs to actually
// move data: the map-output tracker, the shuffle block store and fetcher,
// the partition cache, and the worker liveness monitor. One Env is
// constructed per process and handed to every job that process runs.
type Env struct {
	Role           Role
	LocalIP        string
	Hosts          *Hosts
	Tracker        *MapOutputTracker
	Cache          *Cache
	ShuffleManager *shuffle.Manager
	ShuffleFetcher *shuffle.Fetcher
	Monitor        *WorkerMonitor
}

// Config holds everything New needs to build an Env.
type Config struct {
	LocalIP          string
	HostsFile        string
	LocalDirRoot     string
	FetchTimeout     time.Duration
	FetchConcurrency int
}

// ConfigFromEnvironment reads a Config from environment variables in the
// getenv/mustGetenv style the rest of this codebase uses: FLINT_LOCAL_IP is
// required (mirroring Spark's own SPARK_LOCAL_IP, which also panics if
// unset), everything else has a sane default.
func ConfigFromEnvironment() (Config, error) {
	localIP := os.Getenv("FLINT_LOCAL_IP")
	if localIP == "" {
		return Config{}, fmt.Errorf("FLINT_LOCAL_IP must be set")
	}

	hostsFile := os.Getenv("FLINT_HOSTS_FILE")
	if hostsFile == "" {
		hostsFile = "./hosts.json"
	}

	localDirRoot := os.Getenv("FLINT_LOCAL_DIR_ROOT")

	return Config{
		LocalIP:      localIP,
		HostsFile:    hostsFile,
		LocalDirRoot: localDirRoot,
		FetchTimeout: 30 * time.Second,
	}, nil
}

// New constructs an Env for the given role. A driver process only needs the
// map-output tracker, cache and worker monitor — it never serves shuffle
// blocks itself — while a worker also starts its own shuffle.Manager.
func New(role Role, cfg Config) (*Env, error) {
	hosts, err := LoadHosts(cfg.HostsFile)
	if err != nil {
		return nil, err
	}

	e := &Env{
		Role:    role,
		LocalIP: cfg.LocalIP,
		Hosts:   hosts,
		Tracker: NewMapOutputTracker(),
		Cache:   NewCache(),
		Monitor: NewWorkerMonitor(5 * time.Second),
	}
	e.ShuffleFetcher = shuffle.NewFetcher(cfg.FetchConcurrency, cfg.FetchTimeout)

	if role == RoleWorker {
		mgr, err := shuffle.NewManager(shuffle.ManagerConfig{
			LocalDirRoot: cfg.LocalDirRoot,
			LocalIP:      cfg.LocalIP,
		})
		if err != nil {
			return nil, fmt.Errorf("starting shuffle manager: %w", err)
		}
		e.ShuffleManager = mgr
	}

	return e, nil
}
