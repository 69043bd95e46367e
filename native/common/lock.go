package common

import (
	"errors"
	"sync"
)

var ErrReentrantCall = errors.New("reentrant call")

// CallLock is a per-key single-flight guard. Acquire fails when the key is
// already held, which maps the contract-style reentrancy guard onto an
// explicit lock acquired at function entry and released on every exit path.
type CallLock struct {
	mu     sync.Mutex
	active map[[20]byte]bool
}

// NewCallLock constructs an empty call lock.
func NewCallLock() *CallLock {
	return &CallLock{active: make(map[[20]byte]bool)}
}

// Acquire marks the key as in-flight. It returns ErrReentrantCall when the
// key is already held.
func (l *CallLock) Acquire(key [20]byte) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[key] {
		return ErrReentrantCall
	}
	l.active[key] = true
	return nil
}

// Release clears the in-flight marker. Releasing an unheld key is a no-op so
// deferred releases stay safe on error paths.
func (l *CallLock) Release(key [20]byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, key)
}
