package shuffle

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{LocalDirRoot: t.TempDir(), LocalIP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m
}

func TestManager_PutAndServeBlock(t *testing.T) {
	m := newTestManager(t)

	if err := m.Put(1, 2, 3, []byte(`[{"key":"a","combiner":1}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	resp, err := http.Get(m.URI() + "/shuffle/1/2/3")
	if err != nil {
		t.Fatalf("GET block: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET block status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `[{"key":"a","combiner":1}]` {
		t.Fatalf("GET block body = %q", body)
	}
}

func TestManager_MissingBlockIs404(t *testing.T) {
	m := newTestManager(t)

	resp, err := http.Get(m.URI() + "/shuffle/9/9/9")
	if err != nil {
		t.Fatalf("GET missing block: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing block status = %d, want 404", resp.StatusCode)
	}
}

func TestManager_GetOutputFileCreatesParents(t *testing.T) {
	m := newTestManager(t)

	path, err := m.GetOutputFile(1, 2, 3)
	if err != nil {
		t.Fatalf("GetOutputFile: %v", err)
	}
	if path == "" {
		t.Fatalf("GetOutputFile returned empty path")
	}
}
