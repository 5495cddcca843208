package refresh

import (
	"testing"
	"time"
)

func TestHashTokenStable(t *testing.T) {
	a := HashToken("value")
	if a != HashToken("value") {
		t.Fatal("hash must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(a))
	}
	if a == HashToken("value2") {
		t.Fatal("distinct values must hash differently")
	}
}

func TestNewRecordIDMonotonic(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	prev := NewRecordID(now)
	for i := 0; i < 100; i++ {
		id := NewRecordID(now)
		if id <= prev {
			t.Fatalf("ids not increasing: %s <= %s", id, prev)
		}
		prev = id
	}
}

func TestNormalizeRetention(t *testing.T) {
	if got := normalizeRetention(0); got != DefaultRetention {
		t.Fatalf("expected default retention, got %s", got)
	}
	if got := normalizeRetention(time.Minute); got != time.Minute {
		t.Fatalf("expected 1m, got %s", got)
	}
}
