package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

func getRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNext_IncrementsPerDay(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	for want := int64(1); want <= 3; want++ {
		got, err := adapter.Next(ctx, "250601")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	got, err := adapter.Next(ctx, "250602")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected new day to start at 1, got %d", got)
	}

	if ttl := mr.TTL("orderseq:250601"); ttl != sequenceKeyTTL {
		t.Errorf("expected ttl %v, got %v", sequenceKeyTTL, ttl)
	}
}

func TestResync_RaisesLostCounter(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	if err := adapter.Resync(ctx, "250601", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := adapter.Next(ctx, "250601"); got != 5 {
		t.Errorf("expected sequence 5 after resync, got %d", got)
	}
	if ttl := mr.TTL("orderseq:250601"); ttl != sequenceKeyTTL {
		t.Errorf("expected ttl %v, got %v", sequenceKeyTTL, ttl)
	}

	if err := adapter.Resync(ctx, "250601", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := adapter.Next(ctx, "250601"); got != 6 {
		t.Errorf("expected resync to never lower the counter, got %d", got)
	}
}

func TestNext_Concurrent(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	const callers = 50
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := adapter.Next(ctx, "250601")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != callers {
		t.Errorf("expected %d distinct sequence numbers, got %d", callers, len(seen))
	}
}

func TestSetIdempotency_Success(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// First call should succeed
	ok, err := adapter.SetIdempotency(ctx, "order:user-1:req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first call to succeed")
	}

	// Second call should fail (key exists)
	ok, err = adapter.SetIdempotency(ctx, "order:user-1:req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second call to fail")
	}

	if ttl := mr.TTL("idem:order:user-1:req-1"); ttl != idempotencyKeyTTL {
		t.Errorf("expected ttl %v, got %v", idempotencyKeyTTL, ttl)
	}

	mr.FastForward(idempotencyKeyTTL + time.Second)
	ok, err = adapter.SetIdempotency(ctx, "order:user-1:req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected key to be claimable after expiry")
	}
}

func TestSetIdempotency_Concurrent(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.SetIdempotency(ctx, "concurrent-idem-key")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}

func TestRedisCartStore_SaveAndGet(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	store := NewRedisCartStore(client)
	store.now = func() time.Time { return now }

	cart, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart != nil {
		t.Fatal("expected no cart")
	}

	cart = domain.NewCart("user-1", now)
	cart.AddItem("p1", "M", 2, decimal.RequireFromString("19.99"), now)
	if err := store.Save(ctx, cart); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if ttl := mr.TTL("cart:user-1"); ttl != domain.DefaultCartRetention {
		t.Errorf("expected ttl %v, got %v", domain.DefaultCartRetention, ttl)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got.Items) != 1 {
		t.Fatalf("expected cart with 1 item, got %+v", got)
	}
	if got.Items[0].PriceSnapshot.StringFixed(2) != "19.99" {
		t.Errorf("expected price 19.99, got %s", got.Items[0].PriceSnapshot)
	}
	if got.LastItemID != 1 {
		t.Errorf("expected last item id 1, got %d", got.LastItemID)
	}

	mr.FastForward(domain.DefaultCartRetention + time.Second)
	got, err = store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected cart to expire")
	}
}

func TestRedisCartStore_SaveExpiredDeletes(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	store := NewRedisCartStore(client)
	store.now = func() time.Time { return now }

	cart := domain.NewCart("user-1", now)
	if err := store.Save(ctx, cart); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cart.ExpiresAt = now.Add(-time.Minute)
	if err := store.Save(ctx, cart); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if mr.Exists("cart:user-1") {
		t.Error("expected expired cart to be removed")
	}
}
