package common

import (
	"errors"
	"testing"
)

func TestIntervalGate(t *testing.T) {
	gate := IntervalGate{MinSeconds: 30}

	// First run always passes.
	next, err := gate.Check(0, 100)
	if err != nil || next != 100 {
		t.Fatalf("first check = (%d, %v), want (100, nil)", next, err)
	}
	// Too soon keeps the previous stamp.
	next, err = gate.Check(100, 110)
	if !errors.Is(err, ErrIntervalNotElapsed) {
		t.Fatalf("early check error = %v, want ErrIntervalNotElapsed", err)
	}
	if next != 100 {
		t.Fatalf("early check stamp = %d, want 100", next)
	}
	// Exactly at the boundary passes.
	next, err = gate.Check(100, 130)
	if err != nil || next != 130 {
		t.Fatalf("boundary check = (%d, %v), want (130, nil)", next, err)
	}
}

func TestIntervalGateDisabled(t *testing.T) {
	gate := IntervalGate{}
	if _, err := gate.Check(100, 101); err != nil {
		t.Fatalf("disabled gate rejected: %v", err)
	}
}
