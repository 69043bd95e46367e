package state

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/native/amm"
)

type storedPair struct {
	Address      [20]byte
	Token        [20]byte
	ReserveToken *big.Int
	ReserveETH   *big.Int
	CreatedAt    uint64
}

// PairGet loads the pool recorded at addr.
func (m *Manager) PairGet(addr [20]byte) (*amm.Pair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stored storedPair
	ok, err := m.kvGet(prefixedKey(pairPrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &amm.Pair{
		Address:      stored.Address,
		Token:        stored.Token,
		ReserveToken: stored.ReserveToken,
		ReserveETH:   stored.ReserveETH,
		CreatedAt:    int64(stored.CreatedAt),
	}, true, nil
}

// PairPut persists the pool record.
func (m *Manager) PairPut(pair *amm.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pair == nil {
		return nil
	}
	stored := storedPair{
		Address:      pair.Address,
		Token:        pair.Token,
		ReserveToken: nonNil(pair.ReserveToken),
		ReserveETH:   nonNil(pair.ReserveETH),
	}
	if pair.CreatedAt > 0 {
		stored.CreatedAt = uint64(pair.CreatedAt)
	}
	return m.kvPut(prefixedKey(pairPrefix, pair.Address[:]), &stored)
}
