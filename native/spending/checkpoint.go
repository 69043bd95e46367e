package spending

import (
	"math/big"
	"sort"
)

// Series identifiers for the two checkpoint trails kept per account.
const (
	SeriesBuys  = "buys"
	SeriesSells = "sells"
)

// Checkpoint records the cumulative volume for an account at a timestamp.
// Values within a series never decrease.
type Checkpoint struct {
	Timestamp int64    `json:"timestamp"`
	Value     *big.Int `json:"value"`
}

// Clone returns a deep copy of the checkpoint.
func (c Checkpoint) Clone() Checkpoint {
	clone := c
	if c.Value != nil {
		clone.Value = new(big.Int).Set(c.Value)
	}
	return clone
}

// valueAt returns the cumulative value of the latest checkpoint with a
// timestamp at or before ts. Checkpoints are ordered by timestamp, so a
// lower-bound binary search resolves the lookup.
func valueAt(checkpoints []Checkpoint, ts int64) *big.Int {
	idx := sort.Search(len(checkpoints), func(i int) bool {
		return checkpoints[i].Timestamp > ts
	})
	if idx == 0 {
		return big.NewInt(0)
	}
	value := checkpoints[idx-1].Value
	if value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(value)
}

// appendCheckpoint extends the trail with amount at ts. A checkpoint sharing
// the latest timestamp is collapsed in place rather than duplicated.
func appendCheckpoint(checkpoints []Checkpoint, ts int64, amount *big.Int) []Checkpoint {
	last := big.NewInt(0)
	if n := len(checkpoints); n > 0 && checkpoints[n-1].Value != nil {
		last = checkpoints[n-1].Value
	}
	next := new(big.Int).Add(last, amount)
	if n := len(checkpoints); n > 0 && checkpoints[n-1].Timestamp == ts {
		checkpoints[n-1].Value = next
		return checkpoints
	}
	return append(checkpoints, Checkpoint{Timestamp: ts, Value: next})
}
