package common

import "errors"

var ErrIntervalNotElapsed = errors.New("minimum interval not elapsed")

// IntervalGate rate-limits redundant maintenance calls. Zero MinSeconds
// disables the gate entirely.
type IntervalGate struct {
	MinSeconds int64
}

// Check verifies that at least MinSeconds have elapsed since lastRun. It
// returns the timestamp to persist when the call is allowed to proceed.
func (g IntervalGate) Check(lastRun, now int64) (int64, error) {
	if g.MinSeconds <= 0 {
		return now, nil
	}
	if lastRun > 0 && now-lastRun < g.MinSeconds {
		return lastRun, ErrIntervalNotElapsed
	}
	return now, nil
}
