package curve

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vcazador/dejungl-meme/core/events"
	"github.com/vcazador/dejungl-meme/core/types"
	"github.com/vcazador/dejungl-meme/native/common"
)

var (
	ErrInvalidAmount         = errors.New("curve engine: amount must be positive")
	ErrInsufficientFunds     = errors.New("curve engine: insufficient balance")
	ErrTokenNotFound         = errors.New("curve engine: token not initialised")
	ErrTokenExists           = errors.New("curve engine: token already initialised")
	ErrAlreadyMigrated       = errors.New("curve engine: liquidity already migrated")
	ErrSlippage              = errors.New("curve engine: output below minimum")
	ErrInsufficientSupply    = errors.New("curve engine: no curve supply remaining")
	errInsufficientLiquidity = errors.New("curve engine: insufficient liquidity")
	errAmountOverflow        = errors.New("curve engine: amount exceeds 256 bits")
	errNilState              = errors.New("curve engine: state not configured")
	errNilTokenLedger        = errors.New("curve engine: token ledger not configured")
	errFeeRecipientNotSet    = errors.New("curve engine: fee recipient not configured")
	errInvalidPartition      = errors.New("curve engine: invalid supply partition")
)

const pauseModule = "curve"

type engineState interface {
	CurveStateGet(token [20]byte) (*CurveState, bool, error)
	CurveStatePut(state *CurveState) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// TokenLedger is the external fungible-token collaborator. The engine only
// moves balances; supply bookkeeping lives behind this interface.
type TokenLedger interface {
	BalanceOf(token [20]byte, account [20]byte) (*big.Int, error)
	Transfer(token [20]byte, from [20]byte, to [20]byte, amount *big.Int) error
}

// SpendingRecorder receives the signed trade volume for the reward ledger.
// Positive amounts are buys, negative amounts are sells.
type SpendingRecorder interface {
	RecordSpend(token [20]byte, account [20]byte, amount *big.Int) error
}

// Params fixes the launch economics shared by every token on the curve.
type Params struct {
	MaxSupply           *big.Int
	PoolSupplyThreshold *big.Int
	EscrowAllocation    *big.Int
	VirtualReserveETH   *big.Int
	FeeRate             uint64
}

// Validate checks the partition arithmetic: threshold plus escrow must fit
// inside the max supply and the virtual reserve must be positive.
func (p Params) Validate() error {
	if p.MaxSupply == nil || p.MaxSupply.Sign() <= 0 {
		return errInvalidPartition
	}
	if p.PoolSupplyThreshold == nil || p.PoolSupplyThreshold.Sign() < 0 {
		return errInvalidPartition
	}
	if p.EscrowAllocation == nil || p.EscrowAllocation.Sign() < 0 {
		return errInvalidPartition
	}
	sum := new(big.Int).Add(p.PoolSupplyThreshold, p.EscrowAllocation)
	if sum.Cmp(p.MaxSupply) > 0 {
		return errInvalidPartition
	}
	if p.VirtualReserveETH == nil || p.VirtualReserveETH.Sign() <= 0 {
		return errInvalidPartition
	}
	if p.FeeRate >= FeePrecision {
		return errInvalidPartition
	}
	return nil
}

// Engine prices buys and sells against the constant-product curve and owns
// the per-token reserve accounting.
type Engine struct {
	state        engineState
	tokens       TokenLedger
	spending     SpendingRecorder
	emitter      events.Emitter
	migrator     *Coordinator
	pauses       common.PauseView
	locks        *common.CallLock
	pokeGate     common.IntervalGate
	params       Params
	feeRecipient [20]byte
	nowFn        func() int64
}

// NewEngine constructs a curve engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		locks:   common.NewCallLock(),
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the fungible-token collaborator.
func (e *Engine) SetTokenLedger(ledger TokenLedger) { e.tokens = ledger }

// SetSpending configures the spending-ledger collaborator. A nil recorder
// disables volume tracking.
func (e *Engine) SetSpending(recorder SpendingRecorder) { e.spending = recorder }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetCoordinator wires the migration coordinator evaluated after every buy.
func (e *Engine) SetCoordinator(coordinator *Coordinator) { e.migrator = coordinator }

// SetPauses configures the operator pause switches.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetPokeGate configures the minimum interval between poke calls per token.
func (e *Engine) SetPokeGate(gate common.IntervalGate) { e.pokeGate = gate }

// SetParams fixes the launch economics. Must be called before Initialize.
func (e *Engine) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params
	return nil
}

// SetFeeRecipient configures the account credited with trade fees.
func (e *Engine) SetFeeRecipient(addr [20]byte) { e.feeRecipient = addr }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilTokenLedger
	}
	return nil
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Initialize creates the reserve state for a freshly deployed token. The
// invariant K is pinned here as maxSupply*virtualReserveETH and never
// recomputed afterwards.
func (e *Engine) Initialize(token [20]byte, creator [20]byte) (*CurveState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.CurveStateGet(token); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrTokenExists
	}
	state := &CurveState{
		Token:               token,
		Creator:             creator,
		ReserveToken:        newBigInt(e.params.MaxSupply),
		ReserveETH:          big.NewInt(0),
		VirtualReserveETH:   newBigInt(e.params.VirtualReserveETH),
		InvariantK:          new(big.Int).Mul(e.params.MaxSupply, e.params.VirtualReserveETH),
		MaxSupply:           newBigInt(e.params.MaxSupply),
		PoolSupplyThreshold: newBigInt(e.params.PoolSupplyThreshold),
		EscrowAllocation:    newBigInt(e.params.EscrowAllocation),
		CreatedAt:           e.now(),
	}
	if err := e.state.CurveStatePut(state); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Buy swaps ethIn for curve tokens. The fee is forwarded to the recipient
// immediately, the output is clamped to the remaining curve-sellable supply,
// reserves are resynced from actual held balances, and the migration trigger
// is evaluated last. Any precondition failure leaves state untouched.
func (e *Engine) Buy(token [20]byte, buyer [20]byte, ethIn *big.Int, minTokensOut *big.Int) (*SwapResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, pauseModule); err != nil {
		return nil, err
	}
	if ethIn == nil || ethIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if isZeroAddress(e.feeRecipient) {
		return nil, errFeeRecipientNotSet
	}
	if err := e.locks.Acquire(token); err != nil {
		return nil, err
	}
	defer e.locks.Release(token)

	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if state.LiquidityAdded {
		return nil, ErrAlreadyMigrated
	}
	buyerAcc, err := e.state.GetAccount(buyer[:])
	if err != nil {
		return nil, err
	}
	buyerAcc = ensureAccount(buyerAcc)
	if buyerAcc.Balance.Cmp(ethIn) < 0 {
		return nil, ErrInsufficientFunds
	}

	fee, err := tradeFee(ethIn, e.params.FeeRate)
	if err != nil {
		return nil, err
	}
	netEth := new(big.Int).Sub(ethIn, fee)
	amountOut, err := buyAmountOut(state.ReserveToken, state.ReserveETH, state.VirtualReserveETH, netEth, state.InvariantK)
	if err != nil {
		return nil, err
	}
	// Clamping to the remaining sellable supply is policy, not an error: the
	// final buyer in a sequence may receive less than the raw formula implies.
	remaining := state.RemainingCurveSupply()
	if amountOut.Cmp(remaining) > 0 {
		amountOut = remaining
	}
	if amountOut.Sign() == 0 {
		return nil, ErrInsufficientSupply
	}
	if minTokensOut != nil && amountOut.Cmp(minTokensOut) < 0 {
		return nil, ErrSlippage
	}

	// All guards passed; apply effects.
	buyerAcc.Balance = new(big.Int).Sub(buyerAcc.Balance, ethIn)
	if err := e.state.PutAccount(buyer[:], buyerAcc); err != nil {
		return nil, err
	}
	if err := e.creditAccount(e.feeRecipient, fee); err != nil {
		return nil, err
	}
	if err := e.creditAccount(token, netEth); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(token, token, buyer, amountOut); err != nil {
		return nil, err
	}
	if err := e.resyncReserves(state); err != nil {
		return nil, err
	}
	if err := e.recordSpend(token, buyer, ethIn); err != nil {
		return nil, err
	}

	now := e.now()
	e.emit(events.SwapExecuted{
		Token:     token,
		Trader:    buyer,
		Direction: events.SwapDirectionBuy,
		AmountIn:  newBigInt(ethIn),
		AmountOut: newBigInt(amountOut),
		Fee:       fee,
		Timestamp: now,
	})

	result := &SwapResult{
		Token:     token,
		Trader:    buyer,
		Direction: events.SwapDirectionBuy,
		AmountIn:  newBigInt(ethIn),
		AmountOut: newBigInt(amountOut),
		Fee:       fee,
	}
	if e.migrator != nil {
		migrated, err := e.migrator.CheckAndMigrate(state)
		if err != nil {
			return nil, err
		}
		result.Migrated = migrated
	}
	return result, nil
}

// Sell swaps curve tokens back into ETH. Tokens move into the vault before
// any payout, the fee comes out of the ETH proceeds, and reserves resync
// from actual balances afterwards, matching the buy path.
func (e *Engine) Sell(token [20]byte, seller [20]byte, tokenIn *big.Int, minEthOut *big.Int) (*SwapResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, pauseModule); err != nil {
		return nil, err
	}
	if tokenIn == nil || tokenIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if isZeroAddress(e.feeRecipient) {
		return nil, errFeeRecipientNotSet
	}
	if err := e.locks.Acquire(token); err != nil {
		return nil, err
	}
	defer e.locks.Release(token)

	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if state.LiquidityAdded {
		return nil, ErrAlreadyMigrated
	}
	balance, err := e.tokens.BalanceOf(token, seller)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(tokenIn) < 0 {
		return nil, ErrInsufficientFunds
	}

	ethOut, err := sellEthOut(state.ReserveToken, state.ReserveETH, state.VirtualReserveETH, tokenIn, state.InvariantK)
	if err != nil {
		return nil, err
	}
	if ethOut.Sign() == 0 {
		return nil, errInsufficientLiquidity
	}
	fee, err := tradeFee(ethOut, e.params.FeeRate)
	if err != nil {
		return nil, err
	}
	netEth := new(big.Int).Sub(ethOut, fee)
	if minEthOut != nil && netEth.Cmp(minEthOut) < 0 {
		return nil, ErrSlippage
	}

	// Tokens first, payout second.
	if err := e.tokens.Transfer(token, seller, token, tokenIn); err != nil {
		return nil, err
	}
	if err := e.debitAccount(token, ethOut); err != nil {
		return nil, err
	}
	if err := e.creditAccount(seller, netEth); err != nil {
		return nil, err
	}
	if err := e.creditAccount(e.feeRecipient, fee); err != nil {
		return nil, err
	}
	if err := e.resyncReserves(state); err != nil {
		return nil, err
	}
	if err := e.recordSpend(token, seller, new(big.Int).Neg(ethOut)); err != nil {
		return nil, err
	}

	e.emit(events.SwapExecuted{
		Token:     token,
		Trader:    seller,
		Direction: events.SwapDirectionSell,
		AmountIn:  newBigInt(tokenIn),
		AmountOut: netEth,
		Fee:       fee,
		Timestamp: e.now(),
	})
	return &SwapResult{
		Token:     token,
		Trader:    seller,
		Direction: events.SwapDirectionSell,
		AmountIn:  newBigInt(tokenIn),
		AmountOut: netEth,
		Fee:       fee,
	}, nil
}

// SyncReserves realigns the reserve counters with the actual held balances.
// It absorbs rounding drift and out-of-band deposits and is safe to call
// redundantly.
func (e *Engine) SyncReserves(token [20]byte) (*CurveState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.locks.Acquire(token); err != nil {
		return nil, err
	}
	defer e.locks.Release(token)
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if err := e.resyncReserves(state); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Poke re-evaluates the migration trigger without trading. Anyone may call
// it; redundant calls are throttled by the interval gate.
func (e *Engine) Poke(token [20]byte) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	if err := e.locks.Acquire(token); err != nil {
		return false, err
	}
	defer e.locks.Release(token)
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrTokenNotFound
	}
	last, err := e.pokeGate.Check(state.LastPoke, e.now())
	if err != nil {
		return false, err
	}
	state.LastPoke = last
	if err := e.resyncReserves(state); err != nil {
		return false, err
	}
	if e.migrator == nil {
		return false, nil
	}
	return e.migrator.CheckAndMigrate(state)
}

// Reserves returns a copy of the per-token curve state.
func (e *Engine) Reserves(token [20]byte) (*CurveState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return state.Clone(), nil
}

// QuoteBuy previews the token output for ethIn without touching state.
func (e *Engine) QuoteBuy(token [20]byte, ethIn *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if ethIn == nil || ethIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if state.LiquidityAdded {
		return nil, ErrAlreadyMigrated
	}
	fee, err := tradeFee(ethIn, e.params.FeeRate)
	if err != nil {
		return nil, err
	}
	netEth := new(big.Int).Sub(ethIn, fee)
	amountOut, err := buyAmountOut(state.ReserveToken, state.ReserveETH, state.VirtualReserveETH, netEth, state.InvariantK)
	if err != nil {
		return nil, err
	}
	remaining := state.RemainingCurveSupply()
	if amountOut.Cmp(remaining) > 0 {
		amountOut = remaining
	}
	return amountOut, nil
}

// QuoteSell previews the net ETH proceeds for tokenIn without touching state.
func (e *Engine) QuoteSell(token [20]byte, tokenIn *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if tokenIn == nil || tokenIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if state.LiquidityAdded {
		return nil, ErrAlreadyMigrated
	}
	ethOut, err := sellEthOut(state.ReserveToken, state.ReserveETH, state.VirtualReserveETH, tokenIn, state.InvariantK)
	if err != nil {
		return nil, err
	}
	fee, err := tradeFee(ethOut, e.params.FeeRate)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(ethOut, fee), nil
}

// SpotPrice quotes the marginal price of one token unit in wei.
func (e *Engine) SpotPrice(token [20]byte, unit *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	state, ok, err := e.state.CurveStateGet(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return spotPriceWei(state.ReserveToken, state.ReserveETH, state.VirtualReserveETH, unit)
}

func (e *Engine) creditAccount(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return e.state.PutAccount(addr[:], acc)
}

func (e *Engine) debitAccount(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	if acc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("curve engine: vault underfunded: %w", ErrInsufficientFunds)
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return e.state.PutAccount(addr[:], acc)
}

// resyncReserves reloads the reserve counters from the balances actually
// held by the token vault and persists the state. Both trade directions use
// this single policy.
func (e *Engine) resyncReserves(state *CurveState) error {
	held, err := e.tokens.BalanceOf(state.Token, state.Token)
	if err != nil {
		return err
	}
	vault, err := e.state.GetAccount(state.Token[:])
	if err != nil {
		return err
	}
	vault = ensureAccount(vault)
	state.ReserveToken = newBigInt(held)
	state.ReserveETH = newBigInt(vault.Balance)
	if err := e.state.CurveStatePut(state); err != nil {
		return err
	}
	e.emit(events.ReservesSynced{
		Token:        state.Token,
		ReserveToken: newBigInt(state.ReserveToken),
		ReserveETH:   newBigInt(state.ReserveETH),
	})
	return nil
}

func (e *Engine) recordSpend(token [20]byte, account [20]byte, amount *big.Int) error {
	if e.spending == nil {
		return nil
	}
	return e.spending.RecordSpend(token, account, amount)
}
