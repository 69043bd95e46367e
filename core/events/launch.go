package events

import (
	"math/big"

	"github.com/vcazador/dejungl-meme/core/types"
)

const (
	TypeTokenDeployed = "launch.token.deployed"
	TypeSaltsAdded    = "launch.salts.added"
)

// TokenDeployed announces a freshly created launchpad token.
type TokenDeployed struct {
	Token     [20]byte
	Creator   [20]byte
	Name      string
	Symbol    string
	URI       string
	Salt      [32]byte
	Supply    *big.Int
	Timestamp int64
}

func (TokenDeployed) EventType() string { return TypeTokenDeployed }

func (e TokenDeployed) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenDeployed,
		Attributes: map[string]string{
			"token":     hexAddr(e.Token),
			"creator":   hexAddr(e.Creator),
			"name":      e.Name,
			"symbol":    e.Symbol,
			"uri":       e.URI,
			"salt":      hexSalt(e.Salt),
			"supply":    formatAmount(e.Supply),
			"timestamp": intToString(e.Timestamp),
		},
	}
}

// SaltsAdded records a batch of pre-validated salts appended to the queue.
type SaltsAdded struct {
	Operator [20]byte
	Accepted uint64
	Rejected uint64
	Strict   bool
}

func (SaltsAdded) EventType() string { return TypeSaltsAdded }

func (e SaltsAdded) Event() *types.Event {
	strict := "false"
	if e.Strict {
		strict = "true"
	}
	return &types.Event{
		Type: TypeSaltsAdded,
		Attributes: map[string]string{
			"operator": hexAddr(e.Operator),
			"accepted": uintToString(e.Accepted),
			"rejected": uintToString(e.Rejected),
			"strict":   strict,
		},
	}
}
