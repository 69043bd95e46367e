package launch

import (
	"errors"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vcazador/dejungl-meme/core/events"
	"github.com/vcazador/dejungl-meme/core/types"
	"github.com/vcazador/dejungl-meme/native/common"
	"github.com/vcazador/dejungl-meme/native/curve"
)

var (
	ErrUnauthorizedCaller = errors.New("launch engine: unauthorized caller")
	ErrInvalidSalt        = errors.New("launch engine: invalid salt")
	ErrNoSaltAvailable    = errors.New("launch engine: no salt available")
	ErrInvalidMetadata    = errors.New("launch engine: invalid token metadata")
	ErrInsufficientValue  = errors.New("launch engine: value below creation fee")
	ErrInsufficientFunds  = errors.New("launch engine: insufficient balance")
	ErrTokenNotFound      = errors.New("launch engine: token not found")
	errNilState           = errors.New("launch engine: state not configured")
	errNilCurve           = errors.New("launch engine: curve engine not configured")
	errNilMinter          = errors.New("launch engine: token minter not configured")
)

const (
	pauseModule     = "launch"
	maxNameLength   = 64
	maxSymbolLength = 16
	maxURILength    = 256
)

type engineState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TokenInfoGet(addr [20]byte) (*TokenInfo, bool, error)
	TokenInfoPut(info *TokenInfo) error
	TokenListAppend(addr [20]byte) error
	TokenList() ([][20]byte, error)
	SaltQueueGet() ([][32]byte, error)
	SaltQueuePut(salts [][32]byte) error
}

// TokenMinter is the supply-side slice of the fungible-token collaborator
// used exactly once per deployment.
type TokenMinter interface {
	Mint(token [20]byte, to [20]byte, amount *big.Int) error
}

// SpendingRegistrar grants freshly deployed tokens the capability to record
// volume with the spending ledger.
type SpendingRegistrar interface {
	RegisterToken(token [20]byte) error
}

type curveEngine interface {
	Initialize(token [20]byte, creator [20]byte) (*curve.CurveState, error)
	Buy(token [20]byte, buyer [20]byte, ethIn *big.Int, minTokensOut *big.Int) (*curve.SwapResult, error)
}

// Engine deploys launchpad tokens at deterministic vanity addresses and owns
// the salt consumption queue.
type Engine struct {
	state        engineState
	curve        curveEngine
	minter       TokenMinter
	spending     SpendingRegistrar
	emitter      events.Emitter
	pauses       common.PauseView
	operator     [20]byte
	feeRecipient [20]byte
	factoryAddr  [20]byte
	initCodeHash [32]byte
	creationFee  *big.Int
	nowFn        func() int64
}

// NewEngine constructs a launch engine with default dependencies. The init
// code hash defaults to the fixed v1 token preimage.
func NewEngine() *Engine {
	return &Engine{
		emitter:      events.NoopEmitter{},
		initCodeHash: ethcrypto.Keccak256Hash([]byte("dejungl/meme-token/v1")),
		creationFee:  big.NewInt(0),
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCurveEngine wires the bonding-curve engine that prices the new token.
func (e *Engine) SetCurveEngine(engine curveEngine) { e.curve = engine }

// SetTokenMinter configures the supply-side token collaborator.
func (e *Engine) SetTokenMinter(minter TokenMinter) { e.minter = minter }

// SetSpendingRegistrar configures the spending-ledger collaborator.
func (e *Engine) SetSpendingRegistrar(registrar SpendingRegistrar) { e.spending = registrar }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the operator pause switches.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetOperator configures the address allowed to append salts.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// SetFeeRecipient configures the account credited with creation fees.
func (e *Engine) SetFeeRecipient(addr [20]byte) { e.feeRecipient = addr }

// SetFactoryAddress configures the deployer address folded into the
// deterministic address derivation.
func (e *Engine) SetFactoryAddress(addr [20]byte) { e.factoryAddr = addr }

// SetInitCodeHash overrides the init-code hash folded into the address
// derivation.
func (e *Engine) SetInitCodeHash(hash [32]byte) { e.initCodeHash = hash }

// SetCreationFee configures the flat fee charged per deployment.
func (e *Engine) SetCreationFee(fee *big.Int) {
	if fee == nil {
		e.creationFee = big.NewInt(0)
		return
	}
	e.creationFee = new(big.Int).Set(fee)
}

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

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func sanitizeMetadata(name, symbol, uri string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	uri = strings.TrimSpace(uri)
	if name == "" || len(name) > maxNameLength {
		return "", "", "", ErrInvalidMetadata
	}
	if symbol == "" || len(symbol) > maxSymbolLength {
		return "", "", "", ErrInvalidMetadata
	}
	if len(uri) > maxURILength {
		return "", "", "", ErrInvalidMetadata
	}
	return name, symbol, uri, nil
}

// CreateToken deploys a new token at a deterministic vanity address, seeds
// its bonding curve with the full supply, and registers it with the spending
// ledger. An explicit salt re-validates at call time; a factory-selected
// salt is popped from the pre-validated queue. Value beyond the creation fee
// is routed through the curve as the creator's initial buy.
func (e *Engine) CreateToken(caller [20]byte, name, symbol, uri string, value *big.Int, salt *[32]byte) (*TokenInfo, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.curve == nil {
		return nil, errNilCurve
	}
	if e.minter == nil {
		return nil, errNilMinter
	}
	if err := common.Guard(e.pauses, pauseModule); err != nil {
		return nil, err
	}
	name, symbol, uri, err := sanitizeMetadata(name, symbol, uri)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Cmp(e.creationFee) < 0 {
		return nil, ErrInsufficientValue
	}
	callerAcc, err := e.state.GetAccount(caller[:])
	if err != nil {
		return nil, err
	}
	if callerAcc == nil || callerAcc.Balance == nil || callerAcc.Balance.Cmp(value) < 0 {
		return nil, ErrInsufficientFunds
	}

	var chosen [32]byte
	if salt != nil {
		// Explicit salts must re-validate at call time: the target address
		// may have been consumed between off-process mining and submission.
		ok, err := e.ValidateSalt(*salt)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidSalt
		}
		chosen = *salt
	} else {
		chosen, err = e.consumeSalt()
		if err != nil {
			return nil, err
		}
	}
	token := e.deriveAddress(chosen)

	if e.creationFee.Sign() > 0 {
		callerAcc.Balance = new(big.Int).Sub(callerAcc.Balance, e.creationFee)
		if err := e.state.PutAccount(caller[:], callerAcc); err != nil {
			return nil, err
		}
		if !isZeroAddress(e.feeRecipient) {
			feeAcc, err := e.state.GetAccount(e.feeRecipient[:])
			if err != nil {
				return nil, err
			}
			if feeAcc == nil {
				feeAcc = &types.Account{Balance: big.NewInt(0)}
			}
			if feeAcc.Balance == nil {
				feeAcc.Balance = big.NewInt(0)
			}
			feeAcc.Balance = new(big.Int).Add(feeAcc.Balance, e.creationFee)
			if err := e.state.PutAccount(e.feeRecipient[:], feeAcc); err != nil {
				return nil, err
			}
		}
	}

	// Mark the address occupied before anything can race on it.
	tokenAcc, err := e.state.GetAccount(token[:])
	if err != nil {
		return nil, err
	}
	if tokenAcc == nil {
		tokenAcc = &types.Account{Balance: big.NewInt(0)}
	}
	if tokenAcc.Balance == nil {
		tokenAcc.Balance = big.NewInt(0)
	}
	tokenAcc.CodeHash = e.initCodeHash[:]
	if err := e.state.PutAccount(token[:], tokenAcc); err != nil {
		return nil, err
	}

	curveState, err := e.curve.Initialize(token, caller)
	if err != nil {
		return nil, err
	}
	if err := e.minter.Mint(token, token, curveState.MaxSupply); err != nil {
		return nil, err
	}
	if e.spending != nil {
		if err := e.spending.RegisterToken(token); err != nil {
			return nil, err
		}
	}

	info := &TokenInfo{
		Address:   token,
		Creator:   caller,
		Name:      name,
		Symbol:    symbol,
		URI:       uri,
		Salt:      chosen,
		Supply:    curveState.MaxSupply,
		CreatedAt: e.now(),
	}
	if err := e.state.TokenInfoPut(info); err != nil {
		return nil, err
	}
	if err := e.state.TokenListAppend(token); err != nil {
		return nil, err
	}
	e.emit(events.TokenDeployed{
		Token:     token,
		Creator:   caller,
		Name:      name,
		Symbol:    symbol,
		URI:       uri,
		Salt:      chosen,
		Supply:    info.Supply,
		Timestamp: info.CreatedAt,
	})

	if remainder := new(big.Int).Sub(value, e.creationFee); remainder.Sign() > 0 {
		if _, err := e.curve.Buy(token, caller, remainder, nil); err != nil {
			return nil, err
		}
	}
	return info.Clone(), nil
}

// Token returns the metadata recorded for a deployed token.
func (e *Engine) Token(addr [20]byte) (*TokenInfo, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, ok, err := e.state.TokenInfoGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return info.Clone(), nil
}

// TokenCount returns the number of deployed tokens.
func (e *Engine) TokenCount() (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	list, err := e.state.TokenList()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Tokens returns a page of deployed token addresses in creation order.
func (e *Engine) Tokens(offset, limit int) ([][20]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	list, err := e.state.TokenList()
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= len(list) {
		return nil, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([][20]byte, end-offset)
	copy(page, list[offset:end])
	return page, nil
}
