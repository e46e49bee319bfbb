package env

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCache_ComputesOnceAcrossConcurrentCallers(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32

	produce := func() (iter.Seq[any], error) {
		calls.Add(1)
		return func(yield func(any) bool) { yield(42) }, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := c.GetOrCompute(context.Background(), 7, 0, produce)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
				return
			}
			for v := range seq {
				if v != 42 {
					t.Errorf("GetOrCompute value = %v, want 42", v)
				}
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("produce called %d times, want 1", got)
	}
}

func TestCache_DistinctKeysComputeIndependently(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32

	produce := func() (iter.Seq[any], error) {
		calls.Add(1)
		return func(yield func(any) bool) {}, nil
	}

	c.GetOrCompute(context.Background(), 1, 0, produce)
	c.GetOrCompute(context.Background(), 1, 1, produce)
	c.GetOrCompute(context.Background(), 2, 0, produce)

	if got := calls.Load(); got != 3 {
		t.Fatalf("produce called %d times, want 3", got)
	}
}

func TestCache_Evict(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	produce := func() (iter.Seq[any], error) {
		calls.Add(1)
		return func(yield func(any) bool) {}, nil
	}

	c.GetOrCompute(context.Background(), 1, 0, produce)
	c.Evict(1)
	c.GetOrCompute(context.Background(), 1, 0, produce)

	if got := calls.Load(); got != 2 {
		t.Fatalf("produce called %d times after evict, want 2", got)
	}
}
