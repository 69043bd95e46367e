package state

import (
	"errors"
	"math/big"
)

var (
	ErrInsufficientTokenBalance = errors.New("state: insufficient token balance")
	ErrInvalidTokenAmount       = errors.New("state: token amount must be positive")
)

// The token ledger below is deliberately minimal bookkeeping: balances and
// total supply per token, no allowances. The engines treat it as an external
// collaborator behind their TokenLedger interfaces.

// BalanceOf returns the token balance held by an account.
func (m *Manager) BalanceOf(token [20]byte, account [20]byte) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenBalance(token, account)
}

func (m *Manager) tokenBalance(token [20]byte, account [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.kvGet(prefixedKey(tokenBalancePrefix, token[:], account[:]), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (m *Manager) setTokenBalance(token [20]byte, account [20]byte, balance *big.Int) error {
	return m.kvPut(prefixedKey(tokenBalancePrefix, token[:], account[:]), balance)
}

// Transfer moves tokens between accounts. A transfer to self is a no-op that
// still validates the balance.
func (m *Manager) Transfer(token [20]byte, from [20]byte, to [20]byte, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidTokenAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := m.tokenBalance(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientTokenBalance
	}
	if from == to {
		return nil
	}
	toBalance, err := m.tokenBalance(token, to)
	if err != nil {
		return err
	}
	if err := m.setTokenBalance(token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.setTokenBalance(token, to, new(big.Int).Add(toBalance, amount))
}

// Mint creates amount new tokens credited to an account.
func (m *Manager) Mint(token [20]byte, to [20]byte, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTokenAmount
	}
	balance, err := m.tokenBalance(token, to)
	if err != nil {
		return err
	}
	if err := m.setTokenBalance(token, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	supply := new(big.Int)
	if _, err := m.kvGet(prefixedKey(tokenSupplyPrefix, token[:]), supply); err != nil {
		return err
	}
	return m.kvPut(prefixedKey(tokenSupplyPrefix, token[:]), supply.Add(supply, amount))
}

// TotalSupply returns the amount minted for a token.
func (m *Manager) TotalSupply(token [20]byte) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	supply := new(big.Int)
	if _, err := m.kvGet(prefixedKey(tokenSupplyPrefix, token[:]), supply); err != nil {
		return nil, err
	}
	return supply, nil
}
