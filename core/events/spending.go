package events

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/core/types"
)

const TypeSpendingTracked = "spending.tracked"

// SpendingTracked records a spending-ledger checkpoint update for an account.
type SpendingTracked struct {
	Token      [20]byte
	Account    [20]byte
	Direction  string
	Amount     *big.Int
	Cumulative *big.Int
	Timestamp  int64
}

func (SpendingTracked) EventType() string { return TypeSpendingTracked }

func (e SpendingTracked) Event() *types.Event {
	return &types.Event{
		Type: TypeSpendingTracked,
		Attributes: map[string]string{
			"token":      hexAddr(e.Token),
			"account":    hexAddr(e.Account),
			"direction":  e.Direction,
			"amount":     formatAmount(e.Amount),
			"cumulative": formatAmount(e.Cumulative),
			"timestamp":  intToString(e.Timestamp),
		},
	}
}
