package common

import (
	"errors"
	"testing"
)

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	pauses := pauseMap{"curve": true}

	if err := Guard(pauses, "curve"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("paused module error = %v, want ErrModulePaused", err)
	}
	if err := Guard(pauses, "launch"); err != nil {
		t.Fatalf("unpaused module rejected: %v", err)
	}
	if err := Guard(nil, "curve"); err != nil {
		t.Fatalf("nil view rejected: %v", err)
	}
}
