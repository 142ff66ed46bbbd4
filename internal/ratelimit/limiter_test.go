package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestAdmit_AllowsUpToThreshold(t *testing.T) {
	lim := New(10*time.Second, 5)
	now := time.Now()

	for i := 0; i < 5; i++ {
		dec := lim.Admit("s1", now.Add(time.Duration(i)*time.Millisecond))
		if !dec.Allowed {
			t.Fatalf("event %d: expected allowed", i+1)
		}
		if want := 5 - (i + 1); dec.Remaining != want {
			t.Fatalf("event %d: remaining = %d, want %d", i+1, dec.Remaining, want)
		}
	}

	dec := lim.Admit("s1", now.Add(5*time.Millisecond))
	if dec.Allowed {
		t.Fatal("6th event inside the window must be denied")
	}
	if dec.RetryAfter <= 0 || dec.RetryAfter > 10*time.Second {
		t.Fatalf("retry-after out of range: %s", dec.RetryAfter)
	}
}

func TestAdmit_RetryAfterTracksOldestEvent(t *testing.T) {
	lim := New(10*time.Second, 2)
	base := time.Now()

	lim.Admit("s1", base)
	lim.Admit("s1", base.Add(4*time.Second))

	dec := lim.Admit("s1", base.Add(6*time.Second))
	if dec.Allowed {
		t.Fatal("expected denial")
	}
	// Oldest event at t=0 ages out at t=10; checked at t=6.
	if dec.RetryAfter != 4*time.Second {
		t.Fatalf("retry-after = %s, want 4s", dec.RetryAfter)
	}
}

func TestAdmit_RecoversAfterWindow(t *testing.T) {
	lim := New(10*time.Second, 5)
	base := time.Now()

	for i := 0; i < 5; i++ {
		lim.Admit("s1", base)
	}
	if dec := lim.Admit("s1", base.Add(time.Second)); dec.Allowed {
		t.Fatal("expected denial inside the window")
	}
	if dec := lim.Admit("s1", base.Add(11*time.Second)); !dec.Allowed {
		t.Fatal("expected admission once the window elapsed")
	}
}

func TestAdmit_EventAtExactWindowAgeStillCounts(t *testing.T) {
	lim := New(10*time.Second, 1)
	base := time.Now()

	lim.Admit("s1", base)
	if dec := lim.Admit("s1", base.Add(10*time.Second)); dec.Allowed {
		t.Fatal("event aged exactly the window must still be counted")
	}
	if dec := lim.Admit("s1", base.Add(10*time.Second+time.Nanosecond)); !dec.Allowed {
		t.Fatal("event strictly older than the window must be dropped")
	}
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	lim := New(10*time.Second, 1)
	now := time.Now()

	if dec := lim.Admit("a", now); !dec.Allowed {
		t.Fatal("first event on a must pass")
	}
	if dec := lim.Admit("a", now); dec.Allowed {
		t.Fatal("second event on a must be denied")
	}
	if dec := lim.Admit("b", now); !dec.Allowed {
		t.Fatal("b must be unaffected by a's saturation")
	}
}

func TestAdmit_StoredEventsBounded(t *testing.T) {
	lim := New(10*time.Second, 3)
	base := time.Now()

	// Spread events so older ones keep aging out; the retained slice must
	// never exceed the threshold.
	for i := 0; i < 100; i++ {
		lim.Admit("s1", base.Add(time.Duration(i)*4*time.Second))
	}

	e := lim.entry("s1")
	e.mu.Lock()
	n := len(e.events)
	e.mu.Unlock()
	if n > 3 {
		t.Fatalf("stored events = %d, want <= threshold 3", n)
	}
}

func TestAdmit_ConcurrentCallersNeverOvershoot(t *testing.T) {
	lim := New(10*time.Second, 5)
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dec := lim.Admit("s1", now); dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Fatalf("allowed = %d, want exactly 5", allowed)
	}
}

func TestCheck_DoesNotConsumeSlot(t *testing.T) {
	lim := New(10*time.Second, 1)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if dec := lim.Check("s1", now); !dec.Allowed {
			t.Fatalf("check %d: expected allowed", i+1)
		}
	}

	lim.Record("s1", now)
	if dec := lim.Check("s1", now); dec.Allowed {
		t.Fatal("expected denial once the recorded event fills the window")
	}
}

func TestForget(t *testing.T) {
	lim := New(10*time.Second, 1)
	now := time.Now()

	lim.Admit("s1", now)
	lim.Forget("s1")
	if lim.Len() != 0 {
		t.Fatalf("tracked keys = %d, want 0", lim.Len())
	}
	if dec := lim.Admit("s1", now); !dec.Allowed {
		t.Fatal("forgotten key must start fresh")
	}
}
