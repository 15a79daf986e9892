package premises

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
)

type fakeReader struct {
	premises  map[int64]domain.Premise
	getCalls  int
	listCalls int
	lastLimit int
}

func (f *fakeReader) GetPremise(_ context.Context, id int64) (*domain.Premise, error) {
	f.getCalls++
	p, ok := f.premises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeReader) ListPremises(_ context.Context, limit, offset int) ([]domain.Premise, error) {
	f.listCalls++
	f.lastLimit = limit

	out := []domain.Premise{}
	for id := int64(1); id <= int64(len(f.premises)); id++ {
		out = append(out, f.premises[id])
	}
	return out, nil
}

func newCache(t *testing.T) *redisrepo.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return redisrepo.NewCache(rdb)
}

func seeded() *fakeReader {
	return &fakeReader{premises: map[int64]domain.Premise{
		1: {ID: 1, Name: "Central", Price: "50/hr", Available: 3, Total: 3, Features: []string{"covered"}},
		2: {ID: 2, Name: "Harbour", Price: "30/hr", Available: 1, Total: 2, Features: []string{}},
	}}
}

func TestGetIsCached(t *testing.T) {
	r := seeded()
	svc := New(r, newCache(t), Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := svc.Get(ctx, 1)
		if err != nil || p.Name != "Central" || len(p.Features) != 1 {
			t.Fatalf("Get = %+v, %v", p, err)
		}
	}
	if r.getCalls != 1 {
		t.Fatalf("reader calls = %d, want 1", r.getCalls)
	}
}

func TestGetNotFound(t *testing.T) {
	for name, cache := range map[string]*redisrepo.Cache{"cached": newCache(t), "uncached": nil} {
		t.Run(name, func(t *testing.T) {
			svc := New(seeded(), cache, Config{})
			if _, err := svc.Get(context.Background(), 99); !errors.Is(err, ErrPremiseNotFound) {
				t.Fatalf("err = %v, want ErrPremiseNotFound", err)
			}
		})
	}
}

func TestListInvalidation(t *testing.T) {
	r := seeded()
	cache := newCache(t)
	svc := New(r, cache, Config{MaxLimit: 10})
	ctx := context.Background()

	if _, err := svc.List(ctx, 500, 0); err != nil {
		t.Fatal(err)
	}
	if r.lastLimit != 10 {
		t.Fatalf("limit = %d, want clamped 10", r.lastLimit)
	}
	if _, err := svc.List(ctx, 500, 0); err != nil {
		t.Fatal(err)
	}
	if r.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1", r.listCalls)
	}

	if err := cache.InvalidatePremise(ctx, 1); err != nil {
		t.Fatal(err)
	}

	got, err := svc.List(ctx, 500, 0)
	if err != nil || len(got) != 2 {
		t.Fatalf("List = %v, %v", got, err)
	}
	if r.listCalls != 2 {
		t.Fatalf("list calls = %d, want reload after invalidation", r.listCalls)
	}
}
