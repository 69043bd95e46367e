package state

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/native/launch"
)

type storedTokenInfo struct {
	Address   [20]byte
	Creator   [20]byte
	Name      string
	Symbol    string
	URI       string
	Salt      [32]byte
	Supply    *big.Int
	CreatedAt uint64
}

// TokenInfoGet loads the metadata recorded for a deployed token.
func (m *Manager) TokenInfoGet(addr [20]byte) (*launch.TokenInfo, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stored storedTokenInfo
	ok, err := m.kvGet(prefixedKey(tokenInfoPrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &launch.TokenInfo{
		Address:   stored.Address,
		Creator:   stored.Creator,
		Name:      stored.Name,
		Symbol:    stored.Symbol,
		URI:       stored.URI,
		Salt:      stored.Salt,
		Supply:    stored.Supply,
		CreatedAt: int64(stored.CreatedAt),
	}, true, nil
}

// TokenInfoPut persists the metadata for a deployed token.
func (m *Manager) TokenInfoPut(info *launch.TokenInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info == nil {
		return nil
	}
	stored := storedTokenInfo{
		Address: info.Address,
		Creator: info.Creator,
		Name:    info.Name,
		Symbol:  info.Symbol,
		URI:     info.URI,
		Salt:    info.Salt,
		Supply:  nonNil(info.Supply),
	}
	if info.CreatedAt > 0 {
		stored.CreatedAt = uint64(info.CreatedAt)
	}
	return m.kvPut(prefixedKey(tokenInfoPrefix, info.Address[:]), &stored)
}

// TokenListAppend extends the creation-ordered token index.
func (m *Manager) TokenListAppend(addr [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list [][20]byte
	if _, err := m.kvGet(tokenListKey, &list); err != nil {
		return err
	}
	list = append(list, addr)
	return m.kvPut(tokenListKey, list)
}

// TokenList returns every deployed token address in creation order.
func (m *Manager) TokenList() ([][20]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list [][20]byte
	if _, err := m.kvGet(tokenListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaltQueueGet returns the ordered queue of unconsumed salts.
func (m *Manager) SaltQueueGet() ([][32]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var queue [][32]byte
	if _, err := m.kvGet(saltQueueKey, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// SaltQueuePut replaces the salt queue.
func (m *Manager) SaltQueuePut(salts [][32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if salts == nil {
		salts = [][32]byte{}
	}
	return m.kvPut(saltQueueKey, salts)
}
