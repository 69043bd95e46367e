package curve

import "math/big"

// CurveState carries the full per-token trading state: the reserve counters,
// the supply partition fixed at initialization, and the one-shot migration
// flag. InvariantK is pinned when the token is initialized and never changes;
// every trade must preserve reserveToken*(reserveETH+virtualReserveETH) ~= K
// within integer-rounding tolerance.
type CurveState struct {
	Token               [20]byte `json:"token"`
	Creator             [20]byte `json:"creator"`
	ReserveToken        *big.Int `json:"reserveToken"`
	ReserveETH          *big.Int `json:"reserveETH"`
	VirtualReserveETH   *big.Int `json:"virtualReserveETH"`
	InvariantK          *big.Int `json:"invariantK"`
	MaxSupply           *big.Int `json:"maxSupply"`
	PoolSupplyThreshold *big.Int `json:"poolSupplyThreshold"`
	EscrowAllocation    *big.Int `json:"escrowAllocation"`
	LiquidityAdded      bool     `json:"liquidityAdded"`
	Pair                [20]byte `json:"pair"`
	CreatedAt           int64    `json:"createdAt"`
	LastPoke            int64    `json:"lastPoke"`
}

// RemainingCurveSupply returns the amount of tokens the curve may still sell
// before the migration trigger fires: reserveToken minus the pool-supply
// threshold, floored at zero.
func (c *CurveState) RemainingCurveSupply() *big.Int {
	if c == nil || c.ReserveToken == nil || c.PoolSupplyThreshold == nil {
		return big.NewInt(0)
	}
	remaining := new(big.Int).Sub(c.ReserveToken, c.PoolSupplyThreshold)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// Clone returns a deep copy of the curve state.
func (c *CurveState) Clone() *CurveState {
	if c == nil {
		return nil
	}
	clone := *c
	clone.ReserveToken = newBigInt(c.ReserveToken)
	clone.ReserveETH = newBigInt(c.ReserveETH)
	clone.VirtualReserveETH = newBigInt(c.VirtualReserveETH)
	clone.InvariantK = newBigInt(c.InvariantK)
	clone.MaxSupply = newBigInt(c.MaxSupply)
	clone.PoolSupplyThreshold = newBigInt(c.PoolSupplyThreshold)
	clone.EscrowAllocation = newBigInt(c.EscrowAllocation)
	return &clone
}

// SwapResult summarises an executed trade for callers and the RPC layer.
type SwapResult struct {
	Token     [20]byte `json:"token"`
	Trader    [20]byte `json:"trader"`
	Direction string   `json:"direction"`
	AmountIn  *big.Int `json:"amountIn"`
	AmountOut *big.Int `json:"amountOut"`
	Fee       *big.Int `json:"fee"`
	Migrated  bool     `json:"migrated"`
}

func newBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
