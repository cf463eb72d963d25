package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterRefills(t *testing.T) {
	ctx := context.Background()
	l := New(time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "k", 3) {
			t.Fatalf("request %d rejected", i)
		}
	}
	if l.Allow(ctx, "k", 3) {
		t.Fatal("fourth request allowed")
	}
	if !l.Allow(ctx, "other", 3) {
		t.Fatal("keys should be independent")
	}

	clock = clock.Add(20 * time.Second)
	if !l.Allow(ctx, "k", 3) {
		t.Fatal("token should have refilled")
	}
	l.Reset("k")
	if !l.Allow(ctx, "k", 3) {
		t.Fatal("reset key rejected")
	}
}
