package spending

import (
	"errors"
	"math/big"
	"time"

	"github.com/vcazador/dejungl-meme/core/events"
)

var (
	ErrUnauthorizedCaller = errors.New("spending ledger: caller is not a registered token")
	ErrInvalidAmount      = errors.New("spending ledger: amount must be non-zero")
	ErrInvalidWindow      = errors.New("spending ledger: window start after end")
	errNilState           = errors.New("spending ledger: state not configured")
)

type ledgerState interface {
	SpendingCheckpointsGet(account [20]byte, series string) ([]Checkpoint, error)
	SpendingCheckpointsPut(account [20]byte, series string, checkpoints []Checkpoint) error
	SpendingTokenRegistered(token [20]byte) (bool, error)
	SpendingTokenRegister(token [20]byte) error
}

// Ledger is the shared spending service mutated by every launched token. It
// behaves like an authorization-gated RPC boundary: only registered token
// instances may record volume, and the trails it keeps are append-only.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
	nowFn   func() int64
}

// NewLedger constructs a spending ledger with default dependencies.
func NewLedger() *Ledger {
	return &Ledger{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() int64 {
	if l == nil || l.nowFn == nil {
		return time.Now().Unix()
	}
	return l.nowFn()
}

// RegisterToken grants a token instance the capability to record spending.
// The factory calls this once per deployment.
func (l *Ledger) RegisterToken(token [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.SpendingTokenRegister(token)
}

// RecordSpend appends signed trade volume for an account. Positive amounts
// accumulate into the buys series, negative amounts into the sells series.
// Only registered token instances may call it.
func (l *Ledger) RecordSpend(token [20]byte, account [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrInvalidAmount
	}
	registered, err := l.state.SpendingTokenRegistered(token)
	if err != nil {
		return err
	}
	if !registered {
		return ErrUnauthorizedCaller
	}
	series := SeriesBuys
	direction := events.SwapDirectionBuy
	magnitude := new(big.Int).Set(amount)
	if amount.Sign() < 0 {
		series = SeriesSells
		direction = events.SwapDirectionSell
		magnitude.Neg(magnitude)
	}
	checkpoints, err := l.state.SpendingCheckpointsGet(account, series)
	if err != nil {
		return err
	}
	now := l.now()
	checkpoints = appendCheckpoint(checkpoints, now, magnitude)
	if err := l.state.SpendingCheckpointsPut(account, series, checkpoints); err != nil {
		return err
	}
	if l.emitter != nil {
		l.emitter.Emit(events.SpendingTracked{
			Token:      token,
			Account:    account,
			Direction:  direction,
			Amount:     magnitude,
			Cumulative: checkpoints[len(checkpoints)-1].Clone().Value,
			Timestamp:  now,
		})
	}
	return nil
}

// GetAccountSpending returns the buy and sell volume recorded for an account
// inside the inclusive [from, to] window, each as the difference of two
// point lookups. A window that predates any trade yields zero deltas.
func (l *Ledger) GetAccountSpending(account [20]byte, from, to int64) (*big.Int, *big.Int, error) {
	if l == nil || l.state == nil {
		return nil, nil, errNilState
	}
	if from > to {
		return nil, nil, ErrInvalidWindow
	}
	buys, err := l.seriesDelta(account, SeriesBuys, from, to)
	if err != nil {
		return nil, nil, err
	}
	sells, err := l.seriesDelta(account, SeriesSells, from, to)
	if err != nil {
		return nil, nil, err
	}
	return buys, sells, nil
}

// GetAccountSpendingWindow is a convenience wrapper resolving a trailing
// window of the given length against the current time.
func (l *Ledger) GetAccountSpendingWindow(account [20]byte, window int64) (*big.Int, *big.Int, error) {
	now := l.now()
	from := now - window
	if window <= 0 || from < 0 {
		from = 0
	}
	return l.GetAccountSpending(account, from, now)
}

func (l *Ledger) seriesDelta(account [20]byte, series string, from, to int64) (*big.Int, error) {
	checkpoints, err := l.state.SpendingCheckpointsGet(account, series)
	if err != nil {
		return nil, err
	}
	upper := valueAt(checkpoints, to)
	lower := valueAt(checkpoints, from-1)
	return upper.Sub(upper, lower), nil
}
