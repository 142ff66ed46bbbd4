// Package ratelimit implements the per-session velocity limiter: a sliding
// window over recent spend events that bounds how fast a single session can
// issue debits.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow    = 10 * time.Second
	DefaultThreshold = 5
)

// Decision is the outcome of an admission check. RetryAfter is meaningful
// only when Allowed is false and reports how long until the oldest in-window
// event ages out.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	mu     sync.Mutex
	events []time.Time
}

// Limiter tracks recent event timestamps per key. Admission and the
// recording of the new event happen under the key's lock, so two concurrent
// callers cannot both observe the same headroom and jointly exceed the
// threshold. Keys are independent: admission on one never blocks another.
type Limiter struct {
	window    time.Duration
	threshold int

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a limiter. Non-positive arguments fall back to the defaults.
func New(window time.Duration, threshold int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Limiter{
		window:    window,
		threshold: threshold,
		entries:   make(map[string]*entry),
	}
}

// Admit checks whether an event for key may proceed at the given instant and,
// if so, records it atomically.
func (l *Limiter) Admit(key string, now time.Time) Decision {
	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	dec := e.decide(now, l.window, l.threshold)
	if dec.Allowed {
		e.events = append(e.events, now)
		dec.Remaining--
	}
	return dec
}

// Check decides without recording. Callers that serialize per key
// externally (the ledger holds the session lock across its whole
// check-then-commit sequence) pair it with Record so that an admission
// whose later checks fail does not burn a window slot.
func (l *Limiter) Check(key string, now time.Time) Decision {
	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decide(now, l.window, l.threshold)
}

// Record appends an event for key.
func (l *Limiter) Record(key string, now time.Time) {
	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(now.Add(-l.window))
	e.events = append(e.events, now)
}

func (e *entry) decide(now time.Time, window time.Duration, threshold int) Decision {
	cutoff := now.Add(-window)
	e.prune(cutoff)

	if len(e.events) >= threshold {
		oldest := e.events[0]
		return Decision{
			Allowed:    false,
			RetryAfter: oldest.Sub(cutoff),
		}
	}
	return Decision{
		Allowed:   true,
		Remaining: threshold - len(e.events),
	}
}

// prune drops events that aged out of the window. An event whose age equals
// the window exactly still counts; it drops on the next instant. The retained
// slice is bounded by the threshold: at most threshold events are ever stored
// per key.
func (e *entry) prune(cutoff time.Time) {
	kept := e.events[:0]
	for _, ts := range e.events {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.events = kept
}

// Forget releases the tracking state for a key, typically after its session
// closed.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Len reports how many keys are currently tracked.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Limiter) entry(key string) *entry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[key]; ok {
		return e
	}
	e = &entry{}
	l.entries[key] = e
	return e
}
