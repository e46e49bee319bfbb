package shuffle

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/flint/internal/flinterr"
)

// ManagerConfig configures a Manager's local working directory and bind
// address.
type ManagerConfig struct {
	// LocalDirRoot is the parent directory new per-process working
	// directories are created under. Defaults to os.TempDir().
	LocalDirRoot string

	// LocalIP is this process's externally reachable address, published
	// in block locations so other workers know where to fetch from.
	LocalIP string
}

// Manager owns one worker's shuffle block store and the HTTP server that
// serves it to the rest of the cluster. Its lifecycle is: claim a local
// identity, bind a listener, serve until told to stop.
type Manager struct {
	httpServer *http.Server
	store      *blockStore
	localDir   string
	shuffleDir string
	serverURI  string
	localAddr  string
}

// NewManager claims a unique local working directory under cfg.LocalDirRoot
// and binds an HTTP listener on cfg.LocalIP at a port drawn from
// [5000, 6000). It tries up to 10 distinct directory names before giving up
// with flinterr.ErrLocalDirUnavailable — the same retry budget the original
// shuffle manager used for the same reason: a uuid collision is vanishingly
// unlikely, but the loop bound keeps a pathological run-away bounded rather
// than retrying forever.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	root := cfg.LocalDirRoot
	if root == "" {
		root = os.TempDir()
	}

	var localDir string
	const maxAttempts = 10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := filepath.Join(root, "flint-local-"+uuid.NewString())
		if err := os.Mkdir(candidate, 0o755); err == nil {
			localDir = candidate
			break
		}
	}
	if localDir == "" {
		return nil, fmt.Errorf("%w: root %s, tried %d attempts", flinterr.ErrLocalDirUnavailable, root, maxAttempts)
	}

	shuffleDir := filepath.Join(localDir, "shuffle")
	if err := os.MkdirAll(shuffleDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shuffle dir: %w", err)
	}

	m := &Manager{
		store:      newBlockStore(),
		localDir:   localDir,
		shuffleDir: shuffleDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleRoot)
	mux.HandleFunc("/shuffle/", m.handleShuffleBlock)

	port := 5000 + rand.Intn(1000)
	addr := net.JoinHostPort(cfg.LocalIP, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding shuffle server to %s: %w", addr, err)
	}

	m.localAddr = listener.Addr().String()
	m.serverURI = fmt.Sprintf("http://%s", net.JoinHostPort(cfg.LocalIP, strconv.Itoa(port)))
	m.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("shuffle manager: server on %s stopped: %v", m.localAddr, err)
		}
	}()

	log.Printf("shuffle manager: serving %s from %s", m.serverURI, localDir)
	return m, nil
}

// URI implements rdd.ShuffleStore: the base address other workers fetch
// blocks from.
func (m *Manager) URI() string { return m.serverURI }

// Put implements rdd.ShuffleStore.
func (m *Manager) Put(shuffleID, mapIndex, reduceIndex int, data []byte) error {
	m.store.put(blockKey{ShuffleID: shuffleID, MapIndex: mapIndex, ReduceIndex: reduceIndex}, data)
	return nil
}

// GetOutputFile returns the on-disk path a block would spill to, creating
// its parent directories. Flint keeps blocks in memory by default (see
// blockStore); this is the escape hatch for callers that need to persist a
// block past the process's lifetime.
func (m *Manager) GetOutputFile(shuffleID, mapIndex, reduceIndex int) (string, error) {
	dir := filepath.Join(m.shuffleDir, strconv.Itoa(shuffleID), strconv.Itoa(mapIndex))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, strconv.Itoa(reduceIndex)), nil
}

// Stats reports how many blocks this manager currently holds in memory.
func (m *Manager) Stats() int { return m.store.count() }

// Shutdown stops the HTTP server, waiting up to the given context's
// deadline for in-flight requests to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.httpServer.Shutdown(ctx)
}

func (m *Manager) handleRoot(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintln(w, "flint shuffle server")
}

// handleShuffleBlock serves GET /shuffle/{shuffle}/{map}/{reduce}, parsing
// the path segments by hand rather than reaching for a router library.
func (m *Manager) handleShuffleBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/shuffle/"), "/")
	if len(parts) != 3 {
		http.Error(w, "expected /shuffle/{shuffle}/{map}/{reduce}", http.StatusBadRequest)
		return
	}

	shuffleID, err1 := strconv.Atoi(parts[0])
	mapIndex, err2 := strconv.Atoi(parts[1])
	reduceIndex, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "shuffle/map/reduce must be integers", http.StatusBadRequest)
		return
	}

	data, ok := m.store.get(blockKey{ShuffleID: shuffleID, MapIndex: mapIndex, ReduceIndex: reduceIndex})
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
