package launch

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vcazador/dejungl-meme/native/curve"
)

type mockMinter struct {
	minted map[[20]byte]*big.Int
}

func (m *mockMinter) Mint(token, to [20]byte, amount *big.Int) error {
	if m.minted == nil {
		m.minted = make(map[[20]byte]*big.Int)
	}
	m.minted[token] = new(big.Int).Set(amount)
	return nil
}

type mockRegistrar struct {
	registered [][20]byte
}

func (m *mockRegistrar) RegisterToken(token [20]byte) error {
	m.registered = append(m.registered, token)
	return nil
}

type mockCurveEngine struct {
	maxSupply   *big.Int
	initialized [][20]byte
	buys        []*big.Int
	buyErr      error
}

func (m *mockCurveEngine) Initialize(token, creator [20]byte) (*curve.CurveState, error) {
	m.initialized = append(m.initialized, token)
	return &curve.CurveState{
		Token:     token,
		Creator:   creator,
		MaxSupply: new(big.Int).Set(m.maxSupply),
	}, nil
}

func (m *mockCurveEngine) Buy(token, buyer [20]byte, ethIn, minTokensOut *big.Int) (*curve.SwapResult, error) {
	if m.buyErr != nil {
		return nil, m.buyErr
	}
	m.buys = append(m.buys, new(big.Int).Set(ethIn))
	return &curve.SwapResult{Token: token, Trader: buyer, AmountIn: new(big.Int).Set(ethIn)}, nil
}

type factoryEnv struct {
	engine    *Engine
	state     *mockLaunchState
	minter    *mockMinter
	registrar *mockRegistrar
	curve     *mockCurveEngine
}

func newFactoryEnv(t *testing.T) *factoryEnv {
	t.Helper()
	env := &factoryEnv{
		state:     newMockLaunchState(),
		minter:    &mockMinter{},
		registrar: &mockRegistrar{},
		curve:     &mockCurveEngine{maxSupply: big.NewInt(1_000_000)},
	}
	env.engine = NewEngine()
	env.engine.SetState(env.state)
	env.engine.SetCurveEngine(env.curve)
	env.engine.SetTokenMinter(env.minter)
	env.engine.SetSpendingRegistrar(env.registrar)
	env.engine.SetOperator(launchOperator)
	env.engine.SetFeeRecipient(launchFeeAddr)
	env.engine.SetFactoryAddress(launchFactory)
	env.engine.SetCreationFee(big.NewInt(100))
	return env
}

func (env *factoryEnv) queueSalt(t *testing.T) [32]byte {
	t.Helper()
	salt := mineSalt(t, env.engine, 0)
	if _, err := env.engine.AddSalts(launchOperator, [][32]byte{salt}, true); err != nil {
		t.Fatalf("add salt: %v", err)
	}
	return salt
}

func TestCreateTokenDeploysAndSeeds(t *testing.T) {
	env := newFactoryEnv(t)
	salt := env.queueSalt(t)
	env.state.setBalance(launchCreator, 10_000)

	info, err := env.engine.CreateToken(launchCreator, "Jungle Cat", "JCAT", "ipfs://meta", big.NewInt(100), nil)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if info.Salt != salt {
		t.Fatal("deployment did not consume the queued salt")
	}
	if info.Address != env.engine.deriveAddress(salt) {
		t.Fatal("token address does not match the salt derivation")
	}
	if info.Supply.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("supply = %s, want 1000000", info.Supply)
	}

	// Creation fee moved to the recipient, token account marked occupied.
	feeAcc, _ := env.state.GetAccount(launchFeeAddr[:])
	if feeAcc == nil || feeAcc.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("fee recipient balance = %v, want 100", feeAcc)
	}
	tokenAcc, _ := env.state.GetAccount(info.Address[:])
	if tokenAcc == nil || !tokenAcc.HasCode() {
		t.Fatal("token account not marked as deployed")
	}

	if len(env.curve.initialized) != 1 || env.curve.initialized[0] != info.Address {
		t.Fatal("curve not initialized for the new token")
	}
	if minted := env.minter.minted[info.Address]; minted == nil || minted.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("minted = %v, want full supply", minted)
	}
	if len(env.registrar.registered) != 1 || env.registrar.registered[0] != info.Address {
		t.Fatal("token not registered with the spending ledger")
	}

	// Fee-only deployment: no initial buy.
	if len(env.curve.buys) != 0 {
		t.Fatalf("initial buys = %v, want none", env.curve.buys)
	}

	stored, err := env.engine.Token(info.Address)
	if err != nil {
		t.Fatalf("token lookup: %v", err)
	}
	if stored.Name != "Jungle Cat" || stored.Symbol != "JCAT" {
		t.Fatalf("stored metadata = %q/%q", stored.Name, stored.Symbol)
	}
	count, err := env.engine.TokenCount()
	if err != nil || count != 1 {
		t.Fatalf("token count = %d (%v), want 1", count, err)
	}
	remaining, _ := env.engine.SaltCount()
	if remaining != 0 {
		t.Fatalf("salt queue = %d after deployment, want 0", remaining)
	}
}

func TestCreateTokenRoutesExcessValueThroughCurve(t *testing.T) {
	env := newFactoryEnv(t)
	env.queueSalt(t)
	env.state.setBalance(launchCreator, 10_000)

	if _, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(600), nil); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if len(env.curve.buys) != 1 || env.curve.buys[0].Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("initial buy = %v, want [500]", env.curve.buys)
	}
}

func TestCreateTokenValueBelowFee(t *testing.T) {
	env := newFactoryEnv(t)
	env.queueSalt(t)
	env.state.setBalance(launchCreator, 10_000)

	if _, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(99), nil); !errors.Is(err, ErrInsufficientValue) {
		t.Fatalf("below-fee error = %v, want ErrInsufficientValue", err)
	}
}

func TestCreateTokenUnderfundedCaller(t *testing.T) {
	env := newFactoryEnv(t)
	env.queueSalt(t)
	env.state.setBalance(launchCreator, 50)

	if _, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(600), nil); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("underfunded error = %v, want ErrInsufficientFunds", err)
	}
}

func TestCreateTokenMetadataValidation(t *testing.T) {
	env := newFactoryEnv(t)
	env.queueSalt(t)
	env.state.setBalance(launchCreator, 10_000)

	cases := []struct {
		name, symbol string
	}{
		{"", "CAT"},
		{"Cat", ""},
		{string(make([]byte, maxNameLength+1)), "CAT"},
		{"Cat", string(make([]byte, maxSymbolLength+1))},
	}
	for _, tc := range cases {
		if _, err := env.engine.CreateToken(launchCreator, tc.name, tc.symbol, "", big.NewInt(100), nil); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("metadata %q/%q error = %v, want ErrInvalidMetadata", tc.name, tc.symbol, err)
		}
	}
}

func TestCreateTokenWithoutSalt(t *testing.T) {
	env := newFactoryEnv(t)
	env.state.setBalance(launchCreator, 10_000)

	if _, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(100), nil); !errors.Is(err, ErrNoSaltAvailable) {
		t.Fatalf("empty queue error = %v, want ErrNoSaltAvailable", err)
	}
}

func TestCreateTokenExplicitSaltRevalidates(t *testing.T) {
	env := newFactoryEnv(t)
	env.state.setBalance(launchCreator, 10_000)
	salt := mineSalt(t, env.engine, 0)

	// Works straight from mining, no queue involved.
	info, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(100), &salt)
	if err != nil {
		t.Fatalf("create with explicit salt: %v", err)
	}

	// The same salt now derives an occupied address and must be rejected.
	if _, err := env.engine.CreateToken(launchCreator, "Copy", "COPY", "", big.NewInt(100), &salt); !errors.Is(err, ErrInvalidSalt) {
		t.Fatalf("reused salt error = %v, want ErrInvalidSalt", err)
	}
	if _, err := env.engine.Token(info.Address); err != nil {
		t.Fatalf("original token lookup: %v", err)
	}
}

func TestTokensPaging(t *testing.T) {
	env := newFactoryEnv(t)
	env.state.setBalance(launchCreator, 100_000)

	var addrs [][20]byte
	start := uint64(0)
	for i := 0; i < 3; i++ {
		salt := mineSalt(t, env.engine, start)
		start = nonceOf(salt) + 1
		if _, err := env.engine.AddSalts(launchOperator, [][32]byte{salt}, true); err != nil {
			t.Fatalf("add salt: %v", err)
		}
		info, err := env.engine.CreateToken(launchCreator, "Cat", "CAT", "", big.NewInt(100), nil)
		if err != nil {
			t.Fatalf("create token %d: %v", i, err)
		}
		addrs = append(addrs, info.Address)
	}

	page, err := env.engine.Tokens(1, 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 || page[0] != addrs[1] {
		t.Fatal("paging did not preserve creation order")
	}
	all, err := env.engine.Tokens(0, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("full page = %d (%v), want 3", len(all), err)
	}
	if empty, err := env.engine.Tokens(10, 5); err != nil || empty != nil {
		t.Fatalf("out-of-range page = %v (%v), want empty", empty, err)
	}
}
