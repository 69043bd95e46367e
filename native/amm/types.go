package amm

import "math/big"

// Pair is a minimal constant-product pool seeded once during migration.
type Pair struct {
	Address      [20]byte `json:"address"`
	Token        [20]byte `json:"token"`
	ReserveToken *big.Int `json:"reserveToken"`
	ReserveETH   *big.Int `json:"reserveETH"`
	CreatedAt    int64    `json:"createdAt"`
}

// Clone returns a deep copy of the pair.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	clone := *p
	if p.ReserveToken != nil {
		clone.ReserveToken = new(big.Int).Set(p.ReserveToken)
	}
	if p.ReserveETH != nil {
		clone.ReserveETH = new(big.Int).Set(p.ReserveETH)
	}
	return &clone
}
