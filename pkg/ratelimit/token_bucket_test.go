package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustsAndRefills(t *testing.T) {
	tb := NewTokenBucket(3, 100)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d denied with tokens available", i)
		}
	}

	if tb.Allow() {
		t.Error("request allowed with empty bucket")
	}

	// 100 tokens/second refills well within 50ms
	time.Sleep(50 * time.Millisecond)

	if !tb.Allow() {
		t.Error("request denied after refill")
	}
}

func TestTokenBucketCapsAtMax(t *testing.T) {
	tb := NewTokenBucket(2, 1000)

	time.Sleep(20 * time.Millisecond)

	if got := tb.Available(); got > 2 {
		t.Errorf("available = %f, want at most max", got)
	}
}

func TestTokenBucketAllowN(t *testing.T) {
	tb := NewTokenBucket(5, 0.001)

	if !tb.AllowN(5) {
		t.Fatal("full burst denied")
	}

	if tb.AllowN(1) {
		t.Error("request allowed beyond burst")
	}

	tb.Reset()

	if !tb.AllowN(5) {
		t.Error("full burst denied after reset")
	}
}
