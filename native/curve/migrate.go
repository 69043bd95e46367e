package curve

import (
	"errors"
	"math/big"
	"time"

	"github.com/vcazador/dejungl-meme/core/events"
)

var errNilCoordinatorState = errors.New("migration coordinator: state not configured")

// PairRouter is the external pair-creation collaborator. It is invoked only
// during migration and pulls both legs of the liquidity from the funding
// address.
type PairRouter interface {
	CreatePairWithLiquidity(token [20]byte, funding [20]byte, tokenAmount *big.Int, ethAmount *big.Int) ([20]byte, error)
}

// GaugeRegistry is the external voter collaborator notified about the new
// pool. Failures follow the same swallow policy as the router call.
type GaugeRegistry interface {
	CreateGauge(pair [20]byte) error
}

// Coordinator performs the one-time handoff from curve-priced trading to the
// external liquidity pool. The external calls it makes are isolated: their
// failure is recorded but never propagated, so a downstream outage cannot
// block the trade that exhausted the curve.
type Coordinator struct {
	state       engineState
	tokens      TokenLedger
	emitter     events.Emitter
	router      PairRouter
	gauges      GaugeRegistry
	escrowVault [20]byte
	nowFn       func() int64
}

// NewCoordinator constructs a migration coordinator with default dependencies.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend shared with the curve engine.
func (c *Coordinator) SetState(state engineState) { c.state = state }

// SetTokenLedger configures the fungible-token collaborator.
func (c *Coordinator) SetTokenLedger(ledger TokenLedger) { c.tokens = ledger }

// SetEmitter configures the event emitter.
func (c *Coordinator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// SetRouter configures the external pair-creation collaborator.
func (c *Coordinator) SetRouter(router PairRouter) { c.router = router }

// SetGaugeRegistry configures the external voter collaborator.
func (c *Coordinator) SetGaugeRegistry(gauges GaugeRegistry) { c.gauges = gauges }

// SetEscrowVault configures the recipient of the escrow allocation.
func (c *Coordinator) SetEscrowVault(addr [20]byte) { c.escrowVault = addr }

// SetNowFunc overrides the time source used for deterministic testing.
func (c *Coordinator) SetNowFunc(now func() int64) {
	if now == nil {
		c.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	c.nowFn = now
}

func (c *Coordinator) emit(evt events.Event) {
	if c == nil || evt == nil || c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}

func (c *Coordinator) now() int64 {
	if c == nil || c.nowFn == nil {
		return time.Now().Unix()
	}
	return c.nowFn()
}

// CheckAndMigrate fires the migration when the curve-sellable supply is
// exhausted and the token has not migrated yet. LiquidityAdded flips true
// regardless of the external call outcome, permanently disabling sells; the
// flag guards the whole sequence so migration runs at most once per token.
func (c *Coordinator) CheckAndMigrate(state *CurveState) (bool, error) {
	if c == nil || c.state == nil || c.tokens == nil {
		return false, errNilCoordinatorState
	}
	if state == nil || state.LiquidityAdded {
		return false, nil
	}
	if state.RemainingCurveSupply().Sign() != 0 {
		return false, nil
	}

	state.LiquidityAdded = true
	if err := c.state.CurveStatePut(state); err != nil {
		return false, err
	}

	escrowed := big.NewInt(0)
	held, err := c.tokens.BalanceOf(state.Token, state.Token)
	if err != nil {
		return true, err
	}
	if state.EscrowAllocation != nil && state.EscrowAllocation.Sign() > 0 && !isZeroAddress(c.escrowVault) {
		escrowed = newBigInt(state.EscrowAllocation)
		if escrowed.Cmp(held) > 0 {
			escrowed = newBigInt(held)
		}
		if escrowed.Sign() > 0 {
			if err := c.tokens.Transfer(state.Token, state.Token, c.escrowVault, escrowed); err != nil {
				return true, err
			}
		}
	}

	poolTokens, err := c.tokens.BalanceOf(state.Token, state.Token)
	if err != nil {
		return true, err
	}
	vault, err := c.state.GetAccount(state.Token[:])
	if err != nil {
		return true, err
	}
	vault = ensureAccount(vault)
	poolEth := newBigInt(vault.Balance)

	if c.router == nil {
		c.emit(events.MigrationDeferred{Token: state.Token, Reason: "pair router not configured"})
		return true, c.resync(state)
	}
	pair, routerErr := c.router.CreatePairWithLiquidity(state.Token, state.Token, poolTokens, poolEth)
	if routerErr != nil {
		// Deliberately swallowed: the triggering trade must still succeed.
		c.emit(events.MigrationDeferred{Token: state.Token, Reason: routerErr.Error()})
		return true, c.resync(state)
	}
	state.Pair = pair

	if c.gauges != nil {
		if gaugeErr := c.gauges.CreateGauge(pair); gaugeErr != nil {
			c.emit(events.MigrationDeferred{Token: state.Token, Reason: gaugeErr.Error()})
		}
	}

	if err := c.resync(state); err != nil {
		return true, err
	}
	c.emit(events.LiquidityMigrated{
		Token:       state.Token,
		Pair:        pair,
		TokenAmount: poolTokens,
		ETHAmount:   poolEth,
		Escrowed:    escrowed,
		Timestamp:   c.now(),
	})
	return true, nil
}

func (c *Coordinator) resync(state *CurveState) error {
	held, err := c.tokens.BalanceOf(state.Token, state.Token)
	if err != nil {
		return err
	}
	vault, err := c.state.GetAccount(state.Token[:])
	if err != nil {
		return err
	}
	vault = ensureAccount(vault)
	state.ReserveToken = newBigInt(held)
	state.ReserveETH = newBigInt(vault.Balance)
	return c.state.CurveStatePut(state)
}
