package state

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/native/curve"
)

type storedCurveState struct {
	Token               [20]byte
	Creator             [20]byte
	ReserveToken        *big.Int
	ReserveETH          *big.Int
	VirtualReserveETH   *big.Int
	InvariantK          *big.Int
	MaxSupply           *big.Int
	PoolSupplyThreshold *big.Int
	EscrowAllocation    *big.Int
	LiquidityAdded      bool
	Pair                [20]byte
	CreatedAt           uint64
	LastPoke            uint64
}

// CurveStateGet loads the per-token curve state.
func (m *Manager) CurveStateGet(token [20]byte) (*curve.CurveState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stored storedCurveState
	ok, err := m.kvGet(prefixedKey(curveStatePrefix, token[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &curve.CurveState{
		Token:               stored.Token,
		Creator:             stored.Creator,
		ReserveToken:        stored.ReserveToken,
		ReserveETH:          stored.ReserveETH,
		VirtualReserveETH:   stored.VirtualReserveETH,
		InvariantK:          stored.InvariantK,
		MaxSupply:           stored.MaxSupply,
		PoolSupplyThreshold: stored.PoolSupplyThreshold,
		EscrowAllocation:    stored.EscrowAllocation,
		LiquidityAdded:      stored.LiquidityAdded,
		Pair:                stored.Pair,
		CreatedAt:           int64(stored.CreatedAt),
		LastPoke:            int64(stored.LastPoke),
	}, true, nil
}

// CurveStatePut persists the per-token curve state.
func (m *Manager) CurveStatePut(cs *curve.CurveState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs == nil {
		return nil
	}
	stored := storedCurveState{
		Token:               cs.Token,
		Creator:             cs.Creator,
		ReserveToken:        nonNil(cs.ReserveToken),
		ReserveETH:          nonNil(cs.ReserveETH),
		VirtualReserveETH:   nonNil(cs.VirtualReserveETH),
		InvariantK:          nonNil(cs.InvariantK),
		MaxSupply:           nonNil(cs.MaxSupply),
		PoolSupplyThreshold: nonNil(cs.PoolSupplyThreshold),
		EscrowAllocation:    nonNil(cs.EscrowAllocation),
		LiquidityAdded:      cs.LiquidityAdded,
		Pair:                cs.Pair,
	}
	if cs.CreatedAt > 0 {
		stored.CreatedAt = uint64(cs.CreatedAt)
	}
	if cs.LastPoke > 0 {
		stored.LastPoke = uint64(cs.LastPoke)
	}
	return m.kvPut(prefixedKey(curveStatePrefix, cs.Token[:]), &stored)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
