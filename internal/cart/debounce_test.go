package cart

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesPerKey(t *testing.T) {
	t.Parallel()

	debounce := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	for i := 0; i < 10; i++ {
		debounce.Trigger("item-1", func() { fired.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
}

func TestDebouncerKeysIndependent(t *testing.T) {
	t.Parallel()

	debounce := NewDebouncer(20 * time.Millisecond)
	var mu sync.Mutex
	fired := map[string]int{}

	record := func(key string) func() {
		return func() {
			mu.Lock()
			fired[key]++
			mu.Unlock()
		}
	}

	debounce.Trigger("item-1", record("item-1"))
	debounce.Trigger("item-2", record("item-2"))

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired["item-1"] != 1 || fired["item-2"] != 1 {
		t.Fatalf("independent keys coalesced: %v", fired)
	}
}

func TestDebouncerCancel(t *testing.T) {
	t.Parallel()

	debounce := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	debounce.Trigger("item-1", func() { fired.Add(1) })
	debounce.Cancel("item-1")

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("cancelled trigger still fired %d times", got)
	}
	if debounce.Pending("item-1") {
		t.Fatal("key still pending after cancel")
	}
}

func TestDebouncerLastWriteWins(t *testing.T) {
	t.Parallel()

	debounce := NewDebouncer(20 * time.Millisecond)
	var got atomic.Int32

	for _, qty := range []int32{2, 3, 4, 7} {
		value := qty
		debounce.Trigger("item-1", func() { got.Store(value) })
	}

	time.Sleep(100 * time.Millisecond)
	if got.Load() != 7 {
		t.Fatalf("fired with stale value %d, want 7", got.Load())
	}
}
