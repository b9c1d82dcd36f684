package evidence

import (
	"context"
	"testing"
)

type countingSearcher struct {
	calls int
}

func (c *countingSearcher) Search(_ context.Context, query string) (string, error) {
	c.calls++
	return "result for " + query, nil
}

func TestCache_HitsAvoidUnderlyingCall(t *testing.T) {
	inner := &countingSearcher{}
	cache, err := OpenCache(":memory:", inner)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()

	r1, err := cache.Search(ctx, "thierry henry birth year")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	r2, err := cache.Search(ctx, "thierry henry birth year")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if r1 != r2 {
		t.Errorf("expected cached result to match: %q != %q", r1, r2)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}
	if cache.HitCount() != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.HitCount())
	}
}

func TestCache_DistinctQueriesMiss(t *testing.T) {
	inner := &countingSearcher{}
	cache, err := OpenCache(":memory:", inner)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	cache.Search(ctx, "query one")
	cache.Search(ctx, "query two")

	if inner.calls != 2 {
		t.Errorf("expected 2 underlying calls, got %d", inner.calls)
	}
}
