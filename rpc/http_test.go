package rpc

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/vcazador/dejungl-meme/core/types"
	"github.com/vcazador/dejungl-meme/native/common"
	"github.com/vcazador/dejungl-meme/native/curve"
	"github.com/vcazador/dejungl-meme/native/launch"
	"github.com/vcazador/dejungl-meme/native/spending"
	"github.com/vcazador/dejungl-meme/state"
	"github.com/vcazador/dejungl-meme/storage"
)

var (
	rpcOperator = [20]byte{0xb1}
	rpcTrader   = [20]byte{0xb2}
	rpcFeeAddr  = [20]byte{0xb3}
	rpcFactory  = [20]byte{0xb4}
)

func newTestServer(t *testing.T) (*Server, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())

	spendingLedger := spending.NewLedger()
	spendingLedger.SetState(manager)

	curveEngine := curve.NewEngine()
	curveEngine.SetState(manager)
	curveEngine.SetTokenLedger(manager)
	curveEngine.SetSpending(spendingLedger)
	curveEngine.SetPauses(manager)
	curveEngine.SetFeeRecipient(rpcFeeAddr)
	require.NoError(t, curveEngine.SetParams(curve.Params{
		MaxSupply:           big.NewInt(1_000_000),
		PoolSupplyThreshold: big.NewInt(700_000),
		EscrowAllocation:    big.NewInt(50_000),
		VirtualReserveETH:   big.NewInt(1_000_000),
		FeeRate:             100,
	}))

	launchEngine := launch.NewEngine()
	launchEngine.SetState(manager)
	launchEngine.SetCurveEngine(curveEngine)
	launchEngine.SetTokenMinter(manager)
	launchEngine.SetSpendingRegistrar(spendingLedger)
	launchEngine.SetOperator(rpcOperator)
	launchEngine.SetFeeRecipient(rpcFeeAddr)
	launchEngine.SetFactoryAddress(rpcFactory)
	launchEngine.SetCreationFee(big.NewInt(100))

	server := NewServer(Options{
		Curve:    curveEngine,
		Launcher: launchEngine,
		Spending: spendingLedger,
		Pauses:   manager,
		Operator: rpcOperator,
	})
	return server, manager
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

// mineVanitySalt walks nonces until the derived address carries the trailing
// vanity marker for the test factory address.
func mineVanitySalt(t *testing.T) string {
	t.Helper()
	initCodeHash := ethcrypto.Keccak256Hash([]byte("dejungl/meme-token/v1"))
	var salt [32]byte
	for nonce := uint64(0); nonce < 1_000_000; nonce++ {
		binary.BigEndian.PutUint64(salt[24:], nonce)
		addr := ethcrypto.CreateAddress2(gethcommon.Address(rpcFactory), salt, initCodeHash[:])
		if binary.BigEndian.Uint16(addr[18:]) == launch.VanityMarker {
			return "0x" + hex.EncodeToString(salt[:])
		}
	}
	t.Fatal("no vanity salt found")
	return ""
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestReservesUnknownToken(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/v1/curve/0x00000000000000000000000000000000000000aa", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReservesBadAddress(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/v1/curve/nonsense", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddSaltsUnauthorized(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/salts", addSaltsParams{
		Caller: hexAddress(rpcTrader),
		Salts:  []string{"0x" + string(bytes.Repeat([]byte("0"), 64))},
		Strict: true,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSpendingDefaultsToZero(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server, http.MethodGet, "/v1/spending/"+hexAddress(rpcTrader), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result spendingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "0", result.Buys)
	require.Equal(t, "0", result.Sells)
}

func TestDeployAndTradeFlow(t *testing.T) {
	server, manager := newTestServer(t)
	require.NoError(t, manager.PutAccount(rpcTrader[:], &types.Account{Balance: big.NewInt(1_000_000)}))

	salt := mineVanitySalt(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/salts", addSaltsParams{
		Caller: hexAddress(rpcOperator),
		Salts:  []string{salt},
		Strict: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/tokens", createTokenParams{
		Caller: hexAddress(rpcTrader),
		Name:   "Jungle Cat",
		Symbol: "JCAT",
		Value:  "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var info tokenInfoJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, salt, info.Salt)
	require.Equal(t, "1000000", info.Supply)

	rec = doJSON(t, server, http.MethodPost, "/v1/curve/"+info.Address+"/buy", swapParams{
		Trader:   hexAddress(rpcTrader),
		AmountIn: "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var swap swapResultJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swap))
	require.Equal(t, "buy", swap.Direction)
	require.Equal(t, "999", swap.AmountOut)

	rec = doJSON(t, server, http.MethodGet, "/v1/curve/"+info.Address, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reserves curveStateJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reserves))
	require.Equal(t, "999", reserves.ReserveETH)
	require.False(t, reserves.LiquidityAdded)

	rec = doJSON(t, server, http.MethodGet, "/v1/curve/"+info.Address+"/quote?side=spot&amount=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spot quoteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spot))
	require.Equal(t, "1", spot.AmountOut)

	rec = doJSON(t, server, http.MethodGet, "/v1/spending/"+hexAddress(rpcTrader), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spent spendingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spent))
	require.Equal(t, "1000", spent.Buys)
}

func TestPauseSwitch(t *testing.T) {
	server, manager := newTestServer(t)
	require.NoError(t, manager.PutAccount(rpcTrader[:], &types.Account{Balance: big.NewInt(1_000)}))

	rec := doJSON(t, server, http.MethodPost, "/v1/admin/pause", pauseParams{
		Caller: hexAddress(rpcTrader),
		Module: "curve",
		Paused: true,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/admin/pause", pauseParams{
		Caller: hexAddress(rpcOperator),
		Module: "curve",
		Paused: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, manager.IsPaused("curve"))
}

func TestPausedModuleReadsAsServiceUnavailable(t *testing.T) {
	server, manager := newTestServer(t)
	require.NoError(t, manager.SetPaused("curve", true))

	rec := doJSON(t, server, http.MethodPost, "/v1/curve/"+hexAddress([20]byte{0xcc})+"/buy", swapParams{
		Trader:   hexAddress(rpcTrader),
		AmountIn: "1000",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestThrottledPokeReadsAsTooManyRequests(t *testing.T) {
	server, _ := newTestServer(t)
	server.curve.SetPokeGate(common.IntervalGate{MinSeconds: 30})
	token := [20]byte{0xcd}
	_, err := server.curve.Initialize(token, rpcTrader)
	require.NoError(t, err)

	rec := doJSON(t, server, http.MethodPost, "/v1/curve/"+hexAddress(token)+"/poke", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/curve/"+hexAddress(token)+"/poke", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// Concurrent buys exercise the single-writer ordering of state-changing
// routes: the fee recipient balance only adds up when no read-modify-write
// sequence was lost to interleaving.
func TestConcurrentBuysSerialized(t *testing.T) {
	server, manager := newTestServer(t)
	require.NoError(t, manager.PutAccount(rpcTrader[:], &types.Account{Balance: big.NewInt(1_000_000)}))

	salt := mineVanitySalt(t)
	rec := doJSON(t, server, http.MethodPost, "/v1/salts", addSaltsParams{
		Caller: hexAddress(rpcOperator),
		Salts:  []string{salt},
		Strict: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, server, http.MethodPost, "/v1/tokens", createTokenParams{
		Caller: hexAddress(rpcTrader),
		Name:   "Jungle Cat",
		Symbol: "JCAT",
		Value:  "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var info tokenInfoJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))

	const buyers = 8
	body, err := json.Marshal(swapParams{Trader: hexAddress(rpcTrader), AmountIn: "1000"})
	require.NoError(t, err)

	codes := make(chan int, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/v1/curve/"+info.Address+"/buy", bytes.NewReader(body))
			res := httptest.NewRecorder()
			server.Router().ServeHTTP(res, req)
			codes <- res.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusOK, code)
	}

	// Creation fee plus one wei of trade fee per buy.
	acc, err := manager.GetAccount(rpcFeeAddr[:])
	require.NoError(t, err)
	require.Equal(t, int64(100+buyers), acc.Balance.Int64())

	rec = doJSON(t, server, http.MethodGet, "/v1/spending/"+hexAddress(rpcTrader), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spent spendingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spent))
	require.Equal(t, "8000", spent.Buys)
}

func TestRateLimit(t *testing.T) {
	server, _ := newTestServer(t)
	server.limiter = newClientLimiter(60, 2)

	var last int
	for i := 0; i < 3; i++ {
		rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
