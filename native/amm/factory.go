package amm

import (
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vcazador/dejungl-meme/core/types"
)

var (
	ErrPairExists        = errors.New("amm factory: pair already exists")
	ErrPairNotFound      = errors.New("amm factory: pair not found")
	ErrInvalidLiquidity  = errors.New("amm factory: liquidity must be positive")
	ErrInsufficientFunds = errors.New("amm factory: funding account underfunded")
	errNilState          = errors.New("amm factory: state not configured")
	errNilTokenLedger    = errors.New("amm factory: token ledger not configured")
)

type factoryState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	PairGet(addr [20]byte) (*Pair, bool, error)
	PairPut(pair *Pair) error
}

// TokenLedger is the slice of the fungible-token collaborator the pool needs.
type TokenLedger interface {
	BalanceOf(token [20]byte, account [20]byte) (*big.Int, error)
	Transfer(token [20]byte, from [20]byte, to [20]byte, amount *big.Int) error
}

// Factory creates single-token liquidity pools. It is the in-process stand-in
// for the external router the migration coordinator hands reserves to.
type Factory struct {
	state  factoryState
	tokens TokenLedger
	nowFn  func() int64
}

// NewFactory constructs a pair factory with default dependencies.
func NewFactory() *Factory {
	return &Factory{
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the factory.
func (f *Factory) SetState(state factoryState) { f.state = state }

// SetTokenLedger configures the fungible-token collaborator.
func (f *Factory) SetTokenLedger(ledger TokenLedger) { f.tokens = ledger }

// SetNowFunc overrides the time source used for deterministic testing.
func (f *Factory) SetNowFunc(now func() int64) {
	if now == nil {
		f.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	f.nowFn = now
}

// PairAddress derives the deterministic pool address for a token.
func PairAddress(token [20]byte) [20]byte {
	digest := ethcrypto.Keccak256([]byte("dejungl/pair/v1"), token[:])
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// CreatePairWithLiquidity creates the pool for a token and pulls both legs
// from the funding address. It satisfies the curve.PairRouter contract.
func (f *Factory) CreatePairWithLiquidity(token [20]byte, funding [20]byte, tokenAmount *big.Int, ethAmount *big.Int) ([20]byte, error) {
	if f == nil || f.state == nil {
		return [20]byte{}, errNilState
	}
	if f.tokens == nil {
		return [20]byte{}, errNilTokenLedger
	}
	if tokenAmount == nil || tokenAmount.Sign() <= 0 || ethAmount == nil || ethAmount.Sign() <= 0 {
		return [20]byte{}, ErrInvalidLiquidity
	}
	addr := PairAddress(token)
	if _, ok, err := f.state.PairGet(addr); err != nil {
		return [20]byte{}, err
	} else if ok {
		return [20]byte{}, ErrPairExists
	}
	if err := f.tokens.Transfer(token, funding, addr, tokenAmount); err != nil {
		return [20]byte{}, err
	}
	fundingAcc, err := f.state.GetAccount(funding[:])
	if err != nil {
		return [20]byte{}, err
	}
	if fundingAcc == nil || fundingAcc.Balance == nil || fundingAcc.Balance.Cmp(ethAmount) < 0 {
		return [20]byte{}, ErrInsufficientFunds
	}
	fundingAcc.Balance = new(big.Int).Sub(fundingAcc.Balance, ethAmount)
	if err := f.state.PutAccount(funding[:], fundingAcc); err != nil {
		return [20]byte{}, err
	}
	pairAcc, err := f.state.GetAccount(addr[:])
	if err != nil {
		return [20]byte{}, err
	}
	if pairAcc == nil {
		pairAcc = &types.Account{Balance: big.NewInt(0)}
	}
	if pairAcc.Balance == nil {
		pairAcc.Balance = big.NewInt(0)
	}
	pairAcc.Balance = new(big.Int).Add(pairAcc.Balance, ethAmount)
	if err := f.state.PutAccount(addr[:], pairAcc); err != nil {
		return [20]byte{}, err
	}
	pair := &Pair{
		Address:      addr,
		Token:        token,
		ReserveToken: new(big.Int).Set(tokenAmount),
		ReserveETH:   new(big.Int).Set(ethAmount),
		CreatedAt:    f.nowFn(),
	}
	if err := f.state.PairPut(pair); err != nil {
		return [20]byte{}, err
	}
	return addr, nil
}

// Pair returns the pool recorded for a token.
func (f *Factory) Pair(token [20]byte) (*Pair, error) {
	if f == nil || f.state == nil {
		return nil, errNilState
	}
	pair, ok, err := f.state.PairGet(PairAddress(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPairNotFound
	}
	return pair.Clone(), nil
}

// QuoteTokenOut previews the token output for an ETH input against the pool
// reserves, constant-product with truncating division.
func (f *Factory) QuoteTokenOut(token [20]byte, ethIn *big.Int) (*big.Int, error) {
	pair, err := f.Pair(token)
	if err != nil {
		return nil, err
	}
	if ethIn == nil || ethIn.Sign() <= 0 {
		return nil, ErrInvalidLiquidity
	}
	newEth := new(big.Int).Add(pair.ReserveETH, ethIn)
	k := new(big.Int).Mul(pair.ReserveToken, pair.ReserveETH)
	kept := new(big.Int).Div(k, newEth)
	return new(big.Int).Sub(pair.ReserveToken, kept), nil
}
