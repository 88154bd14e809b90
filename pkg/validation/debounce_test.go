package validation

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerCoalescesPerKey(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	fired := make(map[string]int)
	d := NewDebouncer(30*time.Millisecond, func(key string) {
		mu.Lock()
		fired[key]++
		mu.Unlock()
	})
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Trigger("amount")
		time.Sleep(5 * time.Millisecond)
	}
	d.Trigger("email")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired["amount"] != 1 {
		t.Fatalf("rapid triggers must coalesce to one fire, got %d", fired["amount"])
	}
	if fired["email"] != 1 {
		t.Fatalf("independent key must fire once, got %d", fired["email"])
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string
	d := NewDebouncer(40*time.Millisecond, func(key string) {
		mu.Lock()
		order = append(order, key)
		mu.Unlock()
	})
	defer d.Close()

	d.Trigger("a")
	time.Sleep(25 * time.Millisecond)
	// Restarting a must not delay b.
	d.Trigger("b")
	d.Trigger("a")

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("expected both keys to fire once, got %v", order)
	}
}

func TestDebouncerCloseCancelsPending(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	count := 0
	d := NewDebouncer(20*time.Millisecond, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Trigger("a")
	d.Close()
	d.Trigger("b")

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("closed debouncer must never fire, got %d", count)
	}
}

func TestDebouncerFlush(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	fired := make(map[string]int)
	d := NewDebouncer(time.Hour, func(key string) {
		mu.Lock()
		fired[key]++
		mu.Unlock()
	})
	defer d.Close()

	d.Trigger("a")
	d.Trigger("b")
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	if fired["a"] != 1 || fired["b"] != 1 {
		t.Fatalf("flush must fire all pending keys, got %v", fired)
	}
}
