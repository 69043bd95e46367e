package launch

import "math/big"

// TokenInfo carries the immutable metadata recorded for every deployed
// launchpad token.
type TokenInfo struct {
	Address   [20]byte `json:"address"`
	Creator   [20]byte `json:"creator"`
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	URI       string   `json:"uri"`
	Salt      [32]byte `json:"salt"`
	Supply    *big.Int `json:"supply"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a deep copy of the token info.
func (t *TokenInfo) Clone() *TokenInfo {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Supply != nil {
		clone.Supply = new(big.Int).Set(t.Supply)
	}
	return &clone
}
