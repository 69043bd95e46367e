package types

import "math/big"

// Account holds the native-coin balance and bookkeeping for a single address.
// Token balances live in the launch token ledger, not here.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Balance  *big.Int `json:"balance"`
	CodeHash []byte   `json:"codeHash,omitempty"`
}

// HasCode reports whether a contract has been deployed at the account address.
func (a *Account) HasCode() bool {
	return a != nil && len(a.CodeHash) > 0
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.CodeHash != nil {
		clone.CodeHash = append([]byte{}, a.CodeHash...)
	}
	return &clone
}
