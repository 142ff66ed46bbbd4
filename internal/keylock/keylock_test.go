package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLock_SerializesSameKey(t *testing.T) {
	m := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("k")
			counter++
			m.Unlock("k")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestLock_DifferentKeysDoNotBlock(t *testing.T) {
	m := New()
	m.Lock("a")
	defer m.Unlock("a")

	done := make(chan struct{})
	go func() {
		m.Lock("b")
		m.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind lock on a")
	}
}

func TestUnlock_ReclaimsEntries(t *testing.T) {
	m := New()
	m.Lock("a")
	m.Lock("b")
	m.Unlock("a")
	m.Unlock("b")

	if m.Len() != 0 {
		t.Fatalf("lock map size = %d, want 0", m.Len())
	}
}
