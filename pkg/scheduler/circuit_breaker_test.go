package scheduler

import (
	"testing"
	"time"
)

func TestCircuitBreakerTripsOnBacklog(t *testing.T) {
	cb := NewCircuitBreaker(10)
	if !cb.ShouldAdmit(5, 0.1) {
		t.Fatal("expected admission under threshold")
	}
	if cb.ShouldAdmit(11, 0.1) {
		t.Fatal("expected rejection once backlog exceeds threshold")
	}
	if cb.GetState() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.GetState())
	}
}

func TestCircuitBreakerTripsOnSaturation(t *testing.T) {
	cb := NewCircuitBreaker(1000)
	if cb.ShouldAdmit(0, 0.99) {
		t.Fatal("expected rejection at high saturation")
	}
	if cb.GetState() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(10)
	cb.cooldown = 10 * time.Millisecond

	cb.ShouldAdmit(20, 0.1) // trip open
	if cb.GetState() != CircuitOpen {
		t.Fatal("expected open after trip")
	}

	time.Sleep(20 * time.Millisecond)
	if !cb.ShouldAdmit(1, 0.1) {
		t.Fatal("expected half-open probe to admit")
	}
	if cb.GetState() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.GetState())
	}

	for i := 0; i < cb.testLimit; i++ {
		cb.ShouldAdmit(1, 0.1)
	}
	cb.RecordSuccess()
	if cb.GetState() != CircuitClosed {
		t.Fatalf("expected closed after successful probes, got %s", cb.GetState())
	}
}
