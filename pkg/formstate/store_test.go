package formstate

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyBatchAtomicNotification(t *testing.T) {
	t.Parallel()

	store := New(nil)
	var mu sync.Mutex
	var batches []Change
	store.Subscribe(func(change Change) {
		mu.Lock()
		batches = append(batches, change)
		mu.Unlock()
	})

	store.ApplyBatch(Change{"a": 1, "b": 2})

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("one batch must produce one notification, got %d", len(batches))
	}
	if diff := cmp.Diff(Change{"a": 1, "b": 2}, batches[0]); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyBatchDropsRedundantWrites(t *testing.T) {
	t.Parallel()

	store := New(map[string]any{"a": 1})
	fired := 0
	store.Subscribe(func(Change) { fired++ })

	if applied := store.ApplyBatch(Change{"a": 1}); applied {
		t.Fatalf("redundant write must not apply")
	}
	if fired != 0 {
		t.Fatalf("redundant write must not notify, got %d", fired)
	}
	// Numeric equivalence across widths counts as redundant.
	if applied := store.ApplyBatch(Change{"a": float64(1)}); applied {
		t.Fatalf("numerically equal write must not apply")
	}
}

func TestCloseDiscardsWrites(t *testing.T) {
	t.Parallel()

	store := New(nil)
	store.Close()
	if applied := store.ApplyBatch(Change{"a": 1}); applied {
		t.Fatalf("write after Close must be discarded")
	}
	if _, ok := store.Get("a"); ok {
		t.Fatalf("closed store must not retain late writes")
	}
}

func TestUnset(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"  ", true},
		{[]any{}, true},
		{0, false},
		{false, false},
		{"x", false},
	}
	for _, tc := range cases {
		if got := Unset(tc.value); got != tc.want {
			t.Fatalf("Unset(%#v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	store := New(map[string]any{"a": 1})
	snap := store.Snapshot()
	snap["a"] = 99
	if v, _ := store.Get("a"); v != 1 {
		t.Fatalf("snapshot mutation leaked into store")
	}
}
