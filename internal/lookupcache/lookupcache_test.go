package lookupcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetCachesValue(t *testing.T) {
	calls := 0
	c := New(time.Minute, func(ctx context.Context, key string) (string, error) {
		calls++
		return "value-" + key, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatal(err)
		}
		if got != "value-k" {
			t.Errorf("got %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	calls := 0
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected error on first load")
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	calls := 0
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls++
		return calls, nil
	})

	ctx := context.Background()
	if v, _ := c.Get(ctx, "k"); v != 1 {
		t.Fatalf("first get = %d", v)
	}
	if v, _ := c.Refresh(ctx, "k"); v != 2 {
		t.Fatalf("refresh = %d", v)
	}
	// The refreshed value replaces the cached one.
	if v, _ := c.Get(ctx, "k"); v != 2 {
		t.Fatalf("get after refresh = %d", v)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	calls := 0
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls++
		return calls, nil
	})

	ctx := context.Background()
	c.Get(ctx, "k")
	c.Invalidate("k")
	c.Get(ctx, "k")
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
}
