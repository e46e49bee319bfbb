package rdd

import (
	"context"
	"fmt"
	"sync"
)

// fakeShuffleBackend is an in-process stand-in for internal/shuffle's
// Manager/Tracker/Fetcher trio, good enough to exercise ShuffledRdd and
// CoGroupedRdd's compute logic without spinning up HTTP servers.
type fakeShuffleBackend struct {
	mu     sync.Mutex
	blocks map[[3]int][]byte
	locs   map[int]map[int]string
}

func newShuffleTestContext() *Context {
	backend := &fakeShuffleBackend{
		blocks: make(map[[3]int][]byte),
		locs:   make(map[int]map[int]string),
	}
	ctx := NewContext(nil)
	ctx.WithShuffle(backend, backend, backend)
	return ctx
}

func (f *fakeShuffleBackend) Put(shuffleID, mapIndex, reduceIndex int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[[3]int{shuffleID, mapIndex, reduceIndex}] = data
	return nil
}

func (f *fakeShuffleBackend) URI() string { return "fake://local" }

func (f *fakeShuffleBackend) Register(shuffleID, mapIndex int, uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locs[shuffleID] == nil {
		f.locs[shuffleID] = make(map[int]string)
	}
	f.locs[shuffleID][mapIndex] = uri
}

func (f *fakeShuffleBackend) Locations(shuffleID int) map[int]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]string, len(f.locs[shuffleID]))
	for k, v := range f.locs[shuffleID] {
		out[k] = v
	}
	return out
}

func (f *fakeShuffleBackend) HasOutput(shuffleID, mapIndex int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.locs[shuffleID][mapIndex]
	return ok
}

func (f *fakeShuffleBackend) Fetch(_ context.Context, shuffleID, reduceIndex int, locations map[int]string, consume func([]byte) error) error {
	for mapIndex := range locations {
		f.mu.Lock()
		data, ok := f.blocks[[3]int{shuffleID, mapIndex, reduceIndex}]
		f.mu.Unlock()
		if !ok {
			return fmt.Errorf("fake shuffle backend: no block for shuffle %d map %d reduce %d", shuffleID, mapIndex, reduceIndex)
		}
		if err := consume(data); err != nil {
			return err
		}
	}
	return nil
}
