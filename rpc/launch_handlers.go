package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vcazador/dejungl-meme/native/launch"
	"github.com/vcazador/dejungl-meme/observability/metrics"
)

type createTokenParams struct {
	Caller string `json:"caller"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri,omitempty"`
	Value  string `json:"value,omitempty"`
	Salt   string `json:"salt,omitempty"`
}

type tokenInfoJSON struct {
	Address   string `json:"address"`
	Creator   string `json:"creator"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	URI       string `json:"uri,omitempty"`
	Salt      string `json:"salt"`
	Supply    string `json:"supply"`
	CreatedAt int64  `json:"createdAt"`
}

func tokenInfoView(info *launch.TokenInfo) tokenInfoJSON {
	return tokenInfoJSON{
		Address:   hexAddress(info.Address),
		Creator:   hexAddress(info.Creator),
		Name:      info.Name,
		Symbol:    info.Symbol,
		URI:       info.URI,
		Salt:      hexSalt(info.Salt),
		Supply:    amountString(info.Supply),
		CreatedAt: info.CreatedAt,
	}
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var params createTokenParams
	if !s.decode(w, r, &params) {
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	value, err := parseOptionalAmount(params.Value)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var salt *[32]byte
	if params.Salt != "" {
		parsed, err := parseSaltParam(params.Salt)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		salt = &parsed
	}
	info, err := s.launcher.CreateToken(caller, params.Name, params.Symbol, params.URI, value, salt)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if depth, err := s.launcher.SaltCount(); err == nil {
		metrics.Launchpad().SetSaltQueueDepth(depth)
	}
	s.writeJSON(w, http.StatusCreated, tokenInfoView(info))
}

type tokenListResult struct {
	Total  int      `json:"total"`
	Tokens []string `json:"tokens"`
}

// handleListTokens pages token addresses in creation order. Query: offset,
// limit (default 100).
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	offset, err := parseIntQuery(r.URL.Query().Get("offset"), 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseIntQuery(r.URL.Query().Get("limit"), 100)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	total, err := s.launcher.TokenCount()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	page, err := s.launcher.Tokens(int(offset), int(limit))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	addrs := make([]string, 0, len(page))
	for _, addr := range page {
		addrs = append(addrs, hexAddress(addr))
	}
	s.writeJSON(w, http.StatusOK, tokenListResult{Total: total, Tokens: addrs})
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddressParam(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := s.launcher.Token(addr)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenInfoView(info))
}

type addSaltsParams struct {
	Caller string   `json:"caller"`
	Salts  []string `json:"salts"`
	Strict bool     `json:"strict"`
}

type addSaltsResult struct {
	Accepted int `json:"accepted"`
	Queued   int `json:"queued"`
}

func (s *Server) handleAddSalts(w http.ResponseWriter, r *http.Request) {
	var params addSaltsParams
	if !s.decode(w, r, &params) {
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	salts := make([][32]byte, 0, len(params.Salts))
	for _, raw := range params.Salts {
		salt, err := parseSaltParam(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		salts = append(salts, salt)
	}
	accepted, err := s.launcher.AddSalts(caller, salts, params.Strict)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	queued, err := s.launcher.SaltCount()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.Launchpad().SetSaltQueueDepth(queued)
	s.writeJSON(w, http.StatusOK, addSaltsResult{Accepted: accepted, Queued: queued})
}

type validateSaltResult struct {
	Salt  string `json:"salt"`
	Valid bool   `json:"valid"`
}

func (s *Server) handleValidateSalt(w http.ResponseWriter, r *http.Request) {
	salt, err := parseSaltParam(chi.URLParam(r, "salt"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	valid, err := s.launcher.ValidateSalt(salt)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, validateSaltResult{Salt: hexSalt(salt), Valid: valid})
}
