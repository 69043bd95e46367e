package amm

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vcazador/dejungl-meme/core/types"
)

type mockAmmState struct {
	accounts map[[20]byte]*types.Account
	pairs    map[[20]byte]*Pair
}

func newMockAmmState() *mockAmmState {
	return &mockAmmState{
		accounts: make(map[[20]byte]*types.Account),
		pairs:    make(map[[20]byte]*Pair),
	}
}

func (m *mockAmmState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acc, ok := m.accounts[key]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *mockAmmState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockAmmState) PairGet(addr [20]byte) (*Pair, bool, error) {
	pair, ok := m.pairs[addr]
	if !ok {
		return nil, false, nil
	}
	return pair.Clone(), true, nil
}

func (m *mockAmmState) PairPut(pair *Pair) error {
	m.pairs[pair.Address] = pair.Clone()
	return nil
}

type mockPairLedger struct {
	balances map[[20]byte]map[[20]byte]*big.Int
}

func newMockPairLedger() *mockPairLedger {
	return &mockPairLedger{balances: make(map[[20]byte]map[[20]byte]*big.Int)}
}

func (m *mockPairLedger) set(token, account [20]byte, amount *big.Int) {
	if m.balances[token] == nil {
		m.balances[token] = make(map[[20]byte]*big.Int)
	}
	m.balances[token][account] = new(big.Int).Set(amount)
}

func (m *mockPairLedger) BalanceOf(token, account [20]byte) (*big.Int, error) {
	held := m.balances[token][account]
	if held == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(held), nil
}

func (m *mockPairLedger) Transfer(token, from, to [20]byte, amount *big.Int) error {
	held, _ := m.BalanceOf(token, from)
	if held.Cmp(amount) < 0 {
		return errors.New("mock ledger: insufficient balance")
	}
	m.set(token, from, new(big.Int).Sub(held, amount))
	toHeld, _ := m.BalanceOf(token, to)
	m.set(token, to, new(big.Int).Add(toHeld, amount))
	return nil
}

var (
	poolToken   = [20]byte{0x31}
	poolFunding = [20]byte{0x32}
)

func newPoolEnv(t *testing.T) (*Factory, *mockAmmState, *mockPairLedger) {
	t.Helper()
	state := newMockAmmState()
	ledger := newMockPairLedger()
	factory := NewFactory()
	factory.SetState(state)
	factory.SetTokenLedger(ledger)
	factory.SetNowFunc(func() int64 { return 1_700_000_000 })
	return factory, state, ledger
}

func TestCreatePairPullsBothLegs(t *testing.T) {
	factory, state, ledger := newPoolEnv(t)
	ledger.set(poolToken, poolFunding, big.NewInt(700_000))
	state.accounts[poolFunding] = &types.Account{Balance: big.NewInt(4_000_000)}

	addr, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(700_000), big.NewInt(4_000_000))
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if addr != PairAddress(poolToken) {
		t.Fatal("pair address does not match the deterministic derivation")
	}
	held, _ := ledger.BalanceOf(poolToken, addr)
	if held.Cmp(big.NewInt(700_000)) != 0 {
		t.Fatalf("pair tokens = %s, want 700000", held)
	}
	pairAcc, _ := state.GetAccount(addr[:])
	if pairAcc == nil || pairAcc.Balance.Cmp(big.NewInt(4_000_000)) != 0 {
		t.Fatalf("pair ETH = %v, want 4000000", pairAcc)
	}
	fundingAcc, _ := state.GetAccount(poolFunding[:])
	if fundingAcc.Balance.Sign() != 0 {
		t.Fatalf("funding ETH = %s, want drained", fundingAcc.Balance)
	}

	pair, err := factory.Pair(poolToken)
	if err != nil {
		t.Fatalf("pair lookup: %v", err)
	}
	if pair.ReserveToken.Cmp(big.NewInt(700_000)) != 0 || pair.ReserveETH.Cmp(big.NewInt(4_000_000)) != 0 {
		t.Fatalf("pair reserves = %s/%s", pair.ReserveToken, pair.ReserveETH)
	}
}

func TestCreatePairRejections(t *testing.T) {
	factory, state, ledger := newPoolEnv(t)
	ledger.set(poolToken, poolFunding, big.NewInt(1_000))
	state.accounts[poolFunding] = &types.Account{Balance: big.NewInt(1_000)}

	if _, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(0), big.NewInt(10)); !errors.Is(err, ErrInvalidLiquidity) {
		t.Fatalf("zero token leg error = %v, want ErrInvalidLiquidity", err)
	}
	if _, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(10), big.NewInt(5_000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("underfunded ETH leg error = %v, want ErrInsufficientFunds", err)
	}
	if _, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(10), big.NewInt(10)); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(10), big.NewInt(10)); !errors.Is(err, ErrPairExists) {
		t.Fatalf("duplicate pair error = %v, want ErrPairExists", err)
	}
}

func TestQuoteTokenOut(t *testing.T) {
	factory, state, ledger := newPoolEnv(t)
	ledger.set(poolToken, poolFunding, big.NewInt(700_000))
	state.accounts[poolFunding] = &types.Account{Balance: big.NewInt(700_000)}
	if _, err := factory.CreatePairWithLiquidity(poolToken, poolFunding, big.NewInt(700_000), big.NewInt(700_000)); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	// Equal reserves: 700000 in doubles the ETH side, halving the token side.
	out, err := factory.QuoteTokenOut(poolToken, big.NewInt(700_000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(big.NewInt(350_000)) != 0 {
		t.Fatalf("quote = %s, want 350000", out)
	}
	if _, err := factory.QuoteTokenOut([20]byte{0x77}, big.NewInt(1)); !errors.Is(err, ErrPairNotFound) {
		t.Fatalf("unknown pair error = %v, want ErrPairNotFound", err)
	}
}
