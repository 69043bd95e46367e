package rpc

import (
	"net/http"
	"time"
)

type spendingResult struct {
	Account string `json:"account"`
	From    int64  `json:"from"`
	To      int64  `json:"to"`
	Buys    string `json:"buys"`
	Sells   string `json:"sells"`
}

// handleSpending resolves an account's buy and sell volume inside an
// inclusive window. Query: from, to (unix seconds; to defaults to now, from
// to the epoch).
func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	account, ok := s.tokenParam(w, r, "account")
	if !ok {
		return
	}
	from, err := parseIntQuery(r.URL.Query().Get("from"), 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseIntQuery(r.URL.Query().Get("to"), time.Now().Unix())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	buys, sells, err := s.spending.GetAccountSpending(account, from, to)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spendingResult{
		Account: hexAddress(account),
		From:    from,
		To:      to,
		Buys:    buys.String(),
		Sells:   sells.String(),
	})
}
