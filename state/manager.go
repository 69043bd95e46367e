package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vcazador/dejungl-meme/core/types"
	"github.com/vcazador/dejungl-meme/storage"
)

var errNilDatabase = errors.New("state: database not configured")

// Manager persists every launchpad record as an RLP-encoded value in the
// underlying key-value store. It implements the narrow state interfaces the
// native engines are wired against.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager constructs a state manager bound to the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) kvGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) kvPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) kvHas(key []byte) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	_, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type storedAccount struct {
	Nonce    uint64
	Balance  *big.Int
	CodeHash []byte
}

// GetAccount loads the account stored for addr, or nil when none exists.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stored storedAccount
	ok, err := m.kvGet(prefixedKey(accountPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &types.Account{
		Nonce:    stored.Nonce,
		Balance:  stored.Balance,
		CodeHash: stored.CodeHash,
	}, nil
}

// PutAccount persists the account under addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account == nil {
		return errors.New("state: account must not be nil")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	return m.kvPut(prefixedKey(accountPrefix, addr), &storedAccount{
		Nonce:    account.Nonce,
		Balance:  balance,
		CodeHash: account.CodeHash,
	})
}

// IsPaused reports whether the named module has been halted by the operator.
// It implements common.PauseView; lookup failures read as not paused.
func (m *Manager) IsPaused(module string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ok, err := m.kvHas(prefixedKey(pausePrefix, []byte(module)))
	return err == nil && ok
}

// SetPaused toggles the pause switch for a module.
func (m *Manager) SetPaused(module string, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prefixedKey(pausePrefix, []byte(module))
	if paused {
		return m.db.Put(key, []byte{1})
	}
	return m.db.Delete(key)
}
