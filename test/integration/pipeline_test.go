// Package integration exercises the RDD engine against the real shuffle
// substrate (live HTTP block servers, a real fetcher, a real map-output
// tracker) instead of the in-memory fakes internal/rdd's own tests use.
package integration

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/dreamware/flint/internal/env"
	"github.com/dreamware/flint/internal/partition"
	"github.com/dreamware/flint/internal/rdd"
	"github.com/dreamware/flint/internal/shuffle"
)

// newLiveContext wires an rdd.Context to a real shuffle.Manager (bound to a
// loopback port), a real env.MapOutputTracker, and a real shuffle.Fetcher —
// the same trio cmd/worker and cmd/driver assemble in production, just
// collapsed into a single test process.
func newLiveContext(t *testing.T) *rdd.Context {
	t.Helper()

	mgr, err := shuffle.NewManager(shuffle.ManagerConfig{
		LocalDirRoot: t.TempDir(),
		LocalIP:      "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })

	tracker := env.NewMapOutputTracker()
	fetcher := shuffle.NewFetcher(2, 0)

	return rdd.NewContext(nil).WithShuffle(mgr, tracker, fetcher)
}

func tokenize(lines []string) []rdd.Pair[string, int] {
	var out []rdd.Pair[string, int]
	for _, line := range lines {
		for _, w := range strings.Fields(line) {
			out = append(out, rdd.Pair[string, int]{Key: w, Value: 1})
		}
	}
	return out
}

func TestWordCountAcrossShuffleBoundary(t *testing.T) {
	ctx := newLiveContext(t)

	lines := []string{
		"the quick brown fox",
		"the lazy dog",
		"the fox jumps",
	}

	tokenPairs, err := rdd.Parallelize(ctx, tokenize(lines), 2)
	if err != nil {
		t.Fatalf("Parallelize: %v", err)
	}

	part, err := partition.NewHash(3)
	if err != nil {
		t.Fatalf("NewHash: %v", err)
	}

	counts := rdd.ReduceByKeyUsingPartitioner[string, int](ctx, tokenPairs, func(a, b int) int { return a + b }, part)

	got, err := rdd.Collect[rdd.Pair[string, int]](context.Background(), counts)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := map[string]int{
		"the":   3,
		"quick": 1,
		"brown": 1,
		"fox":   2,
		"lazy":  1,
		"dog":   1,
		"jumps": 1,
	}

	if len(got) != len(want) {
		t.Fatalf("got %d distinct words, want %d: %v", len(got), len(want), got)
	}
	for _, p := range got {
		if want[p.Key] != p.Value {
			t.Errorf("count[%q] = %d, want %d", p.Key, p.Value, want[p.Key])
		}
	}
}

func TestJoinAcrossShuffleBoundary(t *testing.T) {
	ctx := newLiveContext(t)

	left, err := rdd.Parallelize(ctx, []rdd.Pair[int, string]{
		{Key: 1, Value: "alice"},
		{Key: 2, Value: "bob"},
	}, 2)
	if err != nil {
		t.Fatalf("Parallelize left: %v", err)
	}
	right, err := rdd.Parallelize(ctx, []rdd.Pair[int, string]{
		{Key: 1, Value: "eng"},
		{Key: 2, Value: "sales"},
		{Key: 1, Value: "oncall"},
	}, 2)
	if err != nil {
		t.Fatalf("Parallelize right: %v", err)
	}

	joined, err := rdd.Join[int, string, string](ctx, left, right, 2)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	got, err := rdd.Collect[rdd.Pair[int, rdd.Pair[string, string]]](context.Background(), joined)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	sort.Slice(got, func(i, j int) bool {
		if got[i].Key != got[j].Key {
			return got[i].Key < got[j].Key
		}
		return got[i].Value.Value < got[j].Value.Value
	})

	if len(got) != 3 {
		t.Fatalf("got %d joined rows, want 3: %v", len(got), got)
	}
	if got[0].Key != 1 || got[0].Value.Key != "alice" || got[0].Value.Value != "eng" {
		t.Errorf("row0 = %+v, want (1, alice, eng)", got[0])
	}
	if got[1].Key != 1 || got[1].Value.Value != "oncall" {
		t.Errorf("row1 = %+v, want (1, alice, oncall)", got[1])
	}
	if got[2].Key != 2 || got[2].Value.Key != "bob" || got[2].Value.Value != "sales" {
		t.Errorf("row2 = %+v, want (2, bob, sales)", got[2])
	}
}
