package state

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/native/spending"
)

type storedCheckpoint struct {
	Timestamp uint64
	Value     *big.Int
}

// SpendingCheckpointsGet loads the checkpoint trail for an account series.
func (m *Manager) SpendingCheckpointsGet(account [20]byte, series string) ([]spending.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stored []storedCheckpoint
	if _, err := m.kvGet(prefixedKey(spendingSeriesPrefix, account[:], []byte(series)), &stored); err != nil {
		return nil, err
	}
	checkpoints := make([]spending.Checkpoint, len(stored))
	for i, cp := range stored {
		checkpoints[i] = spending.Checkpoint{Timestamp: int64(cp.Timestamp), Value: cp.Value}
	}
	return checkpoints, nil
}

// SpendingCheckpointsPut replaces the checkpoint trail for an account series.
func (m *Manager) SpendingCheckpointsPut(account [20]byte, series string, checkpoints []spending.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]storedCheckpoint, len(checkpoints))
	for i, cp := range checkpoints {
		entry := storedCheckpoint{Value: nonNil(cp.Value)}
		if cp.Timestamp > 0 {
			entry.Timestamp = uint64(cp.Timestamp)
		}
		stored[i] = entry
	}
	return m.kvPut(prefixedKey(spendingSeriesPrefix, account[:], []byte(series)), stored)
}

// SpendingTokenRegistered reports whether a token may record spending.
func (m *Manager) SpendingTokenRegistered(token [20]byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kvHas(prefixedKey(spendingTokenPrefix, token[:]))
}

// SpendingTokenRegister grants a token the spending capability.
func (m *Manager) SpendingTokenRegister(token [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(prefixedKey(spendingTokenPrefix, token[:]), []byte{1})
}
