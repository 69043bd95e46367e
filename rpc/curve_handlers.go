package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vcazador/dejungl-meme/native/curve"
)

type swapParams struct {
	Trader   string `json:"trader"`
	AmountIn string `json:"amountIn"`
	MinOut   string `json:"minOut,omitempty"`
}

type swapResultJSON struct {
	Token     string `json:"token"`
	Trader    string `json:"trader"`
	Direction string `json:"direction"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Fee       string `json:"fee"`
	Migrated  bool   `json:"migrated"`
}

func swapResultView(res *curve.SwapResult) swapResultJSON {
	return swapResultJSON{
		Token:     hexAddress(res.Token),
		Trader:    hexAddress(res.Trader),
		Direction: res.Direction,
		AmountIn:  amountString(res.AmountIn),
		AmountOut: amountString(res.AmountOut),
		Fee:       amountString(res.Fee),
		Migrated:  res.Migrated,
	}
}

type curveStateJSON struct {
	Token             string `json:"token"`
	Creator           string `json:"creator"`
	ReserveToken      string `json:"reserveToken"`
	ReserveETH        string `json:"reserveEth"`
	VirtualReserveETH string `json:"virtualReserveEth"`
	RemainingSupply   string `json:"remainingSupply"`
	LiquidityAdded    bool   `json:"liquidityAdded"`
	Pair              string `json:"pair,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
}

func curveStateView(state *curve.CurveState) curveStateJSON {
	view := curveStateJSON{
		Token:             hexAddress(state.Token),
		Creator:           hexAddress(state.Creator),
		ReserveToken:      amountString(state.ReserveToken),
		ReserveETH:        amountString(state.ReserveETH),
		VirtualReserveETH: amountString(state.VirtualReserveETH),
		RemainingSupply:   amountString(state.RemainingCurveSupply()),
		LiquidityAdded:    state.LiquidityAdded,
		CreatedAt:         state.CreatedAt,
	}
	var zero [20]byte
	if state.Pair != zero {
		view.Pair = hexAddress(state.Pair)
	}
	return view
}

func (s *Server) tokenParam(w http.ResponseWriter, r *http.Request, name string) ([20]byte, bool) {
	addr, err := parseAddressParam(chi.URLParam(r, name))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	var params swapParams
	if !s.decode(w, r, &params) {
		return
	}
	trader, err := parseAddressParam(params.Trader)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	amountIn, err := parseAmountParam(params.AmountIn)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	minOut, err := parseOptionalAmount(params.MinOut)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.curve.Buy(token, trader, amountIn, minOut)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, swapResultView(res))
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	var params swapParams
	if !s.decode(w, r, &params) {
		return
	}
	trader, err := parseAddressParam(params.Trader)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	amountIn, err := parseAmountParam(params.AmountIn)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	minOut, err := parseOptionalAmount(params.MinOut)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.curve.Sell(token, trader, amountIn, minOut)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, swapResultView(res))
}

func (s *Server) handleReserves(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	state, err := s.curve.Reserves(token)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, curveStateView(state))
}

type quoteResult struct {
	Token     string `json:"token"`
	Direction string `json:"direction"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

// handleQuote previews a trade. Query: side=buy|sell|spot, amount=<base
// units>. For spot quotes the amount is the token unit to price in wei.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	amount, err := parseAmountParam(r.URL.Query().Get("amount"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	side := r.URL.Query().Get("side")
	var out *curveQuote
	switch side {
	case "", "buy":
		tokensOut, err := s.curve.QuoteBuy(token, amount)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		out = &curveQuote{direction: "buy", amountOut: amountString(tokensOut)}
	case "sell":
		ethOut, err := s.curve.QuoteSell(token, amount)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		out = &curveQuote{direction: "sell", amountOut: amountString(ethOut)}
	case "spot":
		price, err := s.curve.SpotPrice(token, amount)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		out = &curveQuote{direction: "spot", amountOut: amountString(price)}
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResult{Error: "side must be buy, sell or spot"})
		return
	}
	s.writeJSON(w, http.StatusOK, quoteResult{
		Token:     hexAddress(token),
		Direction: out.direction,
		AmountIn:  amount.String(),
		AmountOut: out.amountOut,
	})
}

type curveQuote struct {
	direction string
	amountOut string
}

type pokeResult struct {
	Token    string `json:"token"`
	Migrated bool   `json:"migrated"`
}

func (s *Server) handlePoke(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	migrated, err := s.curve.Poke(token)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pokeResult{Token: hexAddress(token), Migrated: migrated})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	token, ok := s.tokenParam(w, r, "token")
	if !ok {
		return
	}
	state, err := s.curve.SyncReserves(token)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, curveStateView(state))
}
