package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lc2gh/internal/model"
)

func TestMemoryDedupCache_MarkSeen(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryDedupCache(10, time.Hour)

	first, err := cache.MarkSeen(ctx, "fp-1")
	if err != nil || !first {
		t.Fatalf("expected first insert, got %v %v", first, err)
	}
	again, err := cache.MarkSeen(ctx, "fp-1")
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v %v", again, err)
	}
	if ok, _ := cache.Contains(ctx, "fp-1"); !ok {
		t.Fatal("expected Contains true")
	}
}

func TestMemoryDedupCache_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryDedupCache(2, 0)

	for _, fp := range []model.Fingerprint{"a", "b", "c"} {
		_, _ = cache.MarkSeen(ctx, fp)
	}
	if ok, _ := cache.Contains(ctx, "a"); ok {
		t.Fatal("expected oldest entry evicted")
	}
	if ok, _ := cache.Contains(ctx, "c"); !ok {
		t.Fatal("expected newest entry kept")
	}
}

func TestMemoryDedupCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	cache := newMemoryDedupCache(0, time.Minute, func() time.Time { return now })

	_, _ = cache.MarkSeen(ctx, "fp")
	now = now.Add(2 * time.Minute)

	if ok, _ := cache.Contains(ctx, "fp"); ok {
		t.Fatal("expected entry expired")
	}
	inserted, _ := cache.MarkSeen(ctx, "fp")
	if !inserted {
		t.Fatal("expected expired fingerprint to be inserted again")
	}
}

func TestMemoryDedupCache_ConcurrentMarkSeenSingleWinner(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryDedupCache(100, time.Hour)

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := cache.MarkSeen(ctx, "same"); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
