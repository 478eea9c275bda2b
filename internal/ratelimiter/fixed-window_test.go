package ratelimiter

import (
	"testing"
	"time"
)

func TestFixedWindowLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(2, 5*time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	now = now.Add(2 * time.Second)
	ok, retry := rl.Allow("10.0.0.1")
	if ok {
		t.Fatal("third request allowed, want denied")
	}
	if retry != 3*time.Second {
		t.Errorf("retry after = %v, want 3s", retry)
	}

	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Error("other client denied, want allowed")
	}

	now = now.Add(3 * time.Second)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Error("request after window denied, want allowed")
	}
}

func TestFixedWindowLimiterSweepsOncePerWindow(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	rl := NewFixedWindowLimiter(1, 5*time.Second)
	rl.now = func() time.Time { return now }

	at := func(d time.Duration, key string) bool {
		now = t0.Add(d)
		ok, _ := rl.Allow(key)
		return ok
	}

	at(0, "a")
	at(3*time.Second, "b")

	// a has expired and the last sweep is a full window old
	at(5*time.Second, "c")
	if _, ok := rl.clients["a"]; ok {
		t.Error("expired client a kept after sweep")
	}
	if len(rl.clients) != 2 {
		t.Errorf("len(clients) = %d, want 2", len(rl.clients))
	}

	// b has expired but the next sweep is not due yet
	at(8*time.Second, "d")
	if len(rl.clients) != 3 {
		t.Errorf("len(clients) = %d, want 3 (no sweep before the window passes)", len(rl.clients))
	}

	if !at(8*time.Second, "b") {
		t.Error("client b denied after its window expired, want a fresh window")
	}
	if at(9*time.Second, "b") {
		t.Error("second request in b's fresh window allowed, want denied")
	}

	// c (started at 5s) expires at 10s; b and d are still live
	at(10*time.Second, "e")
	if _, ok := rl.clients["c"]; ok {
		t.Error("expired client c kept after sweep")
	}
	if len(rl.clients) != 3 {
		t.Errorf("len(clients) = %d, want 3", len(rl.clients))
	}
}
