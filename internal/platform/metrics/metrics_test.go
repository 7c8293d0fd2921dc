package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 2*time.Millisecond)

	snap := c.Snapshot()
	if snap.Requests != 3 {
		t.Fatalf("expected 3 requests, got %d", snap.Requests)
	}
	if snap.ServerErrors != 1 {
		t.Fatalf("expected 1 server error, got %d", snap.ServerErrors)
	}
	if snap.RateLimited != 1 {
		t.Fatalf("expected 1 rate limited, got %d", snap.RateLimited)
	}
	if snap.AvgDurationMs != 14 {
		t.Fatalf("expected avg 14ms, got %v", snap.AvgDurationMs)
	}
}

func TestCollectorEmpty(t *testing.T) {
	snap := New().Snapshot()
	if snap.Requests != 0 || snap.AvgDurationMs != 0 {
		t.Fatalf("unexpected empty snapshot: %+v", snap)
	}
}
