package events

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/core/types"
)

const (
	TypeSwapExecuted      = "curve.swap.executed"
	TypeReservesSynced    = "curve.reserves.synced"
	TypeLiquidityMigrated = "curve.liquidity.migrated"
	TypeMigrationDeferred = "curve.migration.deferred"
)

// Swap directions recorded on executed trades.
const (
	SwapDirectionBuy  = "buy"
	SwapDirectionSell = "sell"
)

// SwapExecuted captures a completed curve trade in either direction.
type SwapExecuted struct {
	Token     [20]byte
	Trader    [20]byte
	Direction string
	AmountIn  *big.Int
	AmountOut *big.Int
	Fee       *big.Int
	Timestamp int64
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }

func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"token":     hexAddr(e.Token),
			"trader":    hexAddr(e.Trader),
			"direction": e.Direction,
			"amountIn":  formatAmount(e.AmountIn),
			"amountOut": formatAmount(e.AmountOut),
			"fee":       formatAmount(e.Fee),
			"timestamp": intToString(e.Timestamp),
		},
	}
}

// ReservesSynced records the reserve counters after a resync against actual
// held balances.
type ReservesSynced struct {
	Token        [20]byte
	ReserveToken *big.Int
	ReserveETH   *big.Int
}

func (ReservesSynced) EventType() string { return TypeReservesSynced }

func (e ReservesSynced) Event() *types.Event {
	return &types.Event{
		Type: TypeReservesSynced,
		Attributes: map[string]string{
			"token":        hexAddr(e.Token),
			"reserveToken": formatAmount(e.ReserveToken),
			"reserveETH":   formatAmount(e.ReserveETH),
		},
	}
}

// LiquidityMigrated records the one-time handoff of curve reserves to the
// external pool.
type LiquidityMigrated struct {
	Token       [20]byte
	Pair        [20]byte
	TokenAmount *big.Int
	ETHAmount   *big.Int
	Escrowed    *big.Int
	Timestamp   int64
}

func (LiquidityMigrated) EventType() string { return TypeLiquidityMigrated }

func (e LiquidityMigrated) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityMigrated,
		Attributes: map[string]string{
			"token":       hexAddr(e.Token),
			"pair":        hexAddr(e.Pair),
			"tokenAmount": formatAmount(e.TokenAmount),
			"ethAmount":   formatAmount(e.ETHAmount),
			"escrowed":    formatAmount(e.Escrowed),
			"timestamp":   intToString(e.Timestamp),
		},
	}
}

// MigrationDeferred records a swallowed external-call failure during
// migration. The triggering trade still succeeded; the pool handoff never
// blocks user trading.
type MigrationDeferred struct {
	Token  [20]byte
	Reason string
}

func (MigrationDeferred) EventType() string { return TypeMigrationDeferred }

func (e MigrationDeferred) Event() *types.Event {
	return &types.Event{
		Type: TypeMigrationDeferred,
		Attributes: map[string]string{
			"token":  hexAddr(e.Token),
			"reason": e.Reason,
		},
	}
}
