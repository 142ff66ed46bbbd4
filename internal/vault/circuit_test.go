package vault

import (
	"testing"
	"time"
)

func TestCircuit_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 3, OpenDuration: time.Minute})

	for i := 0; i < 3; i++ {
		if !cb.Allow() {
			t.Fatalf("call %d: breaker open before threshold", i+1)
		}
		cb.OnFailure()
	}

	if cb.Allow() {
		t.Fatal("breaker should be open after threshold failures")
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %d, want open", cb.State())
	}
}

func TestCircuit_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 2, OpenDuration: time.Minute})

	cb.OnFailure()
	cb.OnSuccess()
	cb.OnFailure()

	if !cb.Allow() {
		t.Fatal("breaker tripped despite interleaved success")
	}
}

func TestCircuit_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond})

	cb.OnFailure()
	if cb.Allow() {
		t.Fatal("expected open breaker")
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected half-open probe after open duration")
	}
	if cb.Allow() {
		t.Fatal("only a single probe may pass while half-open")
	}

	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatal("breaker should close after a successful probe")
	}
}

func TestCircuit_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitOptions{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond})

	cb.OnFailure()
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected probe")
	}
	cb.OnFailure()

	if cb.Allow() {
		t.Fatal("breaker must reopen after a failed probe")
	}
}
