package env

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerMonitor(t *testing.T) {
	m := NewWorkerMonitor(5 * time.Second)

	assert.NotNil(t, m)
	assert.Equal(t, 5*time.Second, m.interval)
	assert.Equal(t, 3, m.maxFailures)
	assert.NotNil(t, m.workers)
	assert.NotNil(t, m.httpClient)
	assert.Len(t, m.Snapshot(), 0)
}

func TestWorkerMonitorStart(t *testing.T) {
	m := NewWorkerMonitor(100 * time.Millisecond)
	defer m.Stop()

	var checks int
	var mu sync.Mutex
	m.SetCheckFunction(func(uri string) error {
		mu.Lock()
		checks++
		mu.Unlock()
		return nil
	})

	provider := func() []string {
		return []string{"http://localhost:5001", "http://localhost:5002"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	time.Sleep(350 * time.Millisecond)

	mu.Lock()
	got := checks
	mu.Unlock()
	assert.GreaterOrEqual(t, got, 6, "expected at least 6 checks across 2 workers over 3 cycles")

	snap := m.Snapshot()
	assert.Len(t, snap, 2)
	assert.Contains(t, snap, "http://localhost:5001")
	assert.Contains(t, snap, "http://localhost:5002")
	assert.True(t, m.IsHealthy("http://localhost:5001"))
	assert.True(t, m.IsHealthy("http://localhost:5002"))
}

func TestWorkerMonitorFailureThreshold(t *testing.T) {
	m := NewWorkerMonitor(50 * time.Millisecond)
	defer m.Stop()

	var failing bool
	var mu sync.Mutex
	m.SetCheckFunction(func(uri string) error {
		mu.Lock()
		defer mu.Unlock()
		if uri == "http://localhost:5001" && failing {
			return fmt.Errorf("worker unreachable")
		}
		return nil
	})

	var unhealthyCalls []string
	m.SetOnUnhealthy(func(workerURI string) {
		mu.Lock()
		unhealthyCalls = append(unhealthyCalls, workerURI)
		mu.Unlock()
	})

	provider := func() []string {
		return []string{"http://localhost:5001", "http://localhost:5002"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, m.IsHealthy("http://localhost:5001"))
	assert.True(t, m.IsHealthy("http://localhost:5002"))

	mu.Lock()
	failing = true
	mu.Unlock()

	time.Sleep(250 * time.Millisecond)

	assert.False(t, m.IsHealthy("http://localhost:5001"))
	assert.True(t, m.IsHealthy("http://localhost:5002"))

	mu.Lock()
	assert.Contains(t, unhealthyCalls, "http://localhost:5001")
	mu.Unlock()

	snap := m.Snapshot()
	h, ok := snap["http://localhost:5001"]
	require.True(t, ok)
	assert.Equal(t, "unhealthy", h.Status)
	assert.GreaterOrEqual(t, h.ConsecutiveFails, 3)
}

func TestWorkerMonitorRecovery(t *testing.T) {
	m := NewWorkerMonitor(50 * time.Millisecond)
	defer m.Stop()

	healthy := true
	var mu sync.Mutex
	m.SetCheckFunction(func(uri string) error {
		mu.Lock()
		defer mu.Unlock()
		if !healthy {
			return fmt.Errorf("worker unreachable")
		}
		return nil
	})

	provider := func() []string { return []string{"http://localhost:5001"} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, m.IsHealthy("http://localhost:5001"))

	mu.Lock()
	healthy = false
	mu.Unlock()
	time.Sleep(250 * time.Millisecond)
	assert.False(t, m.IsHealthy("http://localhost:5001"))

	mu.Lock()
	healthy = true
	mu.Unlock()
	time.Sleep(100 * time.Millisecond)

	assert.True(t, m.IsHealthy("http://localhost:5001"))
	snap := m.Snapshot()
	h, ok := snap["http://localhost:5001"]
	require.True(t, ok)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 0, h.ConsecutiveFails)
}

func TestWorkerMonitorDropsRemovedWorkers(t *testing.T) {
	m := NewWorkerMonitor(50 * time.Millisecond)
	defer m.Stop()

	m.SetCheckFunction(func(uri string) error { return nil })

	var mu sync.Mutex
	workers := []string{"http://localhost:5001", "http://localhost:5002"}
	provider := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), workers...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, m.Snapshot(), 2)

	mu.Lock()
	workers = []string{"http://localhost:5001"}
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	snap := m.Snapshot()
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "http://localhost:5001")
	assert.NotContains(t, snap, "http://localhost:5002")
}

func TestWorkerMonitorStop(t *testing.T) {
	m := NewWorkerMonitor(50 * time.Millisecond)

	var checks int
	var mu sync.Mutex
	m.SetCheckFunction(func(uri string) error {
		mu.Lock()
		checks++
		mu.Unlock()
		return nil
	})

	provider := func() []string { return []string{"http://localhost:5001"} }
	go m.Start(context.Background(), provider)

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	before := checks
	mu.Unlock()

	m.Stop()
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	after := checks
	mu.Unlock()

	assert.Greater(t, before, 0)
	assert.Equal(t, before, after, "no checks should run after Stop returns")
}

func TestWorkerMonitorConcurrentSnapshot(t *testing.T) {
	m := NewWorkerMonitor(10 * time.Millisecond)
	defer m.Stop()

	m.SetCheckFunction(func(uri string) error { return nil })

	const numWorkers = 5
	provider := func() []string {
		workers := make([]string, numWorkers)
		for i := range workers {
			workers[i] = fmt.Sprintf("http://localhost:808%d", i)
		}
		return workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			uri := fmt.Sprintf("http://localhost:808%d", id%numWorkers)
			for j := 0; j < 100; j++ {
				m.IsHealthy(uri)
				m.Snapshot()
			}
		}(i)
	}
	wg.Wait()
}

func TestWorkerMonitorOnUnhealthyFiresOnce(t *testing.T) {
	m := NewWorkerMonitor(30 * time.Millisecond)
	defer m.Stop()

	m.SetCheckFunction(func(uri string) error { return fmt.Errorf("always down") })

	var calls int
	var mu sync.Mutex
	m.SetOnUnhealthy(func(workerURI string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	provider := func() []string { return []string{"http://localhost:5001"} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx, provider)

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	assert.Equal(t, 1, got, "onUnhealthy must fire exactly once on the healthy->unhealthy transition, not on every subsequent failed check")
}

func TestWorkerMonitorIsHealthyUnknownWorker(t *testing.T) {
	m := NewWorkerMonitor(time.Second)
	assert.False(t, m.IsHealthy("http://localhost:9999"))
}
