package rpc

import (
	"errors"
	"net/http"
)

var errNotOperator = errors.New("rpc: caller is not the operator")

// PauseSetter toggles the per-module pause switches.
type PauseSetter interface {
	SetPaused(module string, paused bool) error
}

type pauseParams struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type pauseResult struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	if s.pauses == nil {
		s.writeError(w, http.StatusNotImplemented, errors.New("rpc: pause control not configured"))
		return
	}
	var params pauseParams
	if !s.decode(w, r, &params) {
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if caller != s.operator {
		s.writeError(w, http.StatusForbidden, errNotOperator)
		return
	}
	switch params.Module {
	case "curve", "launch":
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("rpc: unknown module"))
		return
	}
	if err := s.pauses.SetPaused(params.Module, params.Paused); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.logger.Info("pause switch toggled", "module", params.Module, "paused", params.Paused)
	s.writeJSON(w, http.StatusOK, pauseResult{Module: params.Module, Paused: params.Paused})
}
