package redisrepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	keys "github.com/sarjanshah14/ParkingSpotFinder/internal/redis"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

type premiseView struct {
	ID        int64 `json:"id"`
	Available int   `json:"available"`
}

func TestGetOrSetJSONLoadsOnce(t *testing.T) {
	_, rdb := newClient(t)
	c := NewCache(rdb)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (premiseView, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return premiseView{ID: 1, Available: 3}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrSetJSON(ctx, c, keys.KeyPremise(1), time.Minute, loader)
			if err != nil || v.Available != 3 {
				t.Errorf("GetOrSetJSON = %+v, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}

	v, err := GetOrSetJSON(ctx, c, keys.KeyPremise(1), time.Minute, loader)
	if err != nil || v.ID != 1 {
		t.Fatalf("cached GetOrSetJSON = %+v, %v", v, err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times after warm read, want 1", n)
	}
}

func TestGetOrSetJSONDoesNotCacheErrors(t *testing.T) {
	mr, rdb := newClient(t)
	c := NewCache(rdb)
	boom := errors.New("boom")

	_, err := GetOrSetJSON(context.Background(), c, keys.KeyPremise(2), time.Minute,
		func(context.Context) (premiseView, error) { return premiseView{}, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if mr.Exists(keys.KeyPremise(2)) {
		t.Fatal("failed load must not be cached")
	}
}

func TestInvalidatePremise(t *testing.T) {
	mr, rdb := newClient(t)
	c := NewCache(rdb)
	ctx := context.Background()

	if err := SetJSON(ctx, c, keys.KeyPremise(5), premiseView{ID: 5}, time.Minute); err != nil {
		t.Fatal(err)
	}

	gen, err := c.PremiseListGen(ctx)
	if err != nil || gen != 0 {
		t.Fatalf("PremiseListGen = %d, %v; want 0", gen, err)
	}

	if err := c.InvalidatePremise(ctx, 5); err != nil {
		t.Fatalf("InvalidatePremise: %v", err)
	}

	if mr.Exists(keys.KeyPremise(5)) {
		t.Fatal("premise key should be gone")
	}
	if gen, _ := c.PremiseListGen(ctx); gen != 1 {
		t.Fatalf("list generation = %d, want 1", gen)
	}
}

func TestIdempotencyStore(t *testing.T) {
	_, rdb := newClient(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()
	key := keys.KeyIdemBooking(7, "abc")

	ok, err := s.AcquireLock(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first AcquireLock = %v, %v", ok, err)
	}
	if ok, _ := s.AcquireLock(ctx, key, time.Minute); ok {
		t.Fatal("second AcquireLock must fail")
	}
	if locked, _ := s.IsLocked(ctx, key); !locked {
		t.Fatal("key should be locked")
	}
	if _, ok, _ := s.GetResult(ctx, key); ok {
		t.Fatal("locked key has no result")
	}

	body := []byte(`{"id":1,"note":"a:b"}`)
	if err := s.SaveResult(ctx, key, 201, body); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, ok, err := s.GetResult(ctx, key)
	if err != nil || !ok {
		t.Fatalf("GetResult = %v, %v", ok, err)
	}
	if got.Status != 201 || string(got.Body) != string(body) {
		t.Fatalf("GetResult = %d %s", got.Status, got.Body)
	}

	if err := s.Release(ctx, key); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.AcquireLock(ctx, key, time.Minute); !ok {
		t.Fatal("released key should be acquirable")
	}
}
