package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/vcazador/dejungl-meme/native/common"
	"github.com/vcazador/dejungl-meme/native/curve"
	"github.com/vcazador/dejungl-meme/native/launch"
	"github.com/vcazador/dejungl-meme/native/spending"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Server exposes the launchpad engines over HTTP.
type Server struct {
	curve    *curve.Engine
	launcher *launch.Engine
	spending *spending.Ledger
	pauses   PauseSetter
	operator [20]byte
	logger   *slog.Logger
	limiter  *clientLimiter
	router   chi.Router
	writeMu  sync.Mutex
}

// Options wires the collaborating engines into the server.
type Options struct {
	Curve         *curve.Engine
	Launcher      *launch.Engine
	Spending      *spending.Ledger
	Pauses        PauseSetter
	Operator      [20]byte
	Logger        *slog.Logger
	RatePerMinute float64
	RateBurst     int
}

// NewServer builds the HTTP surface for the supplied engines.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		curve:    opts.Curve,
		launcher: opts.Launcher,
		spending: opts.Spending,
		pauses:   opts.Pauses,
		operator: opts.Operator,
		logger:   logger,
		limiter:  newClientLimiter(opts.RatePerMinute, opts.RateBurst),
	}
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.rateLimit)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.serializeWrites)
		r.Post("/tokens", s.handleCreateToken)
		r.Get("/tokens", s.handleListTokens)
		r.Get("/tokens/{address}", s.handleTokenInfo)
		r.Post("/salts", s.handleAddSalts)
		r.Get("/salts/validate/{salt}", s.handleValidateSalt)
		r.Get("/curve/{token}", s.handleReserves)
		r.Get("/curve/{token}/quote", s.handleQuote)
		r.Post("/curve/{token}/buy", s.handleBuy)
		r.Post("/curve/{token}/sell", s.handleSell)
		r.Post("/curve/{token}/poke", s.handlePoke)
		r.Post("/curve/{token}/sync", s.handleSync)
		r.Get("/spending/{account}", s.handleSpending)
		r.Post("/admin/pause", s.handleSetPause)
	})
	s.router = r
	return s
}

// Router returns the configured HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// serializeWrites funnels every state-changing request through a single
// writer. Engine operations compose several state reads and writes that are
// only correct when no other mutation interleaves, so the host provides that
// ordering here rather than inside each engine.
func (s *Server) serializeWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeMu.Lock()
			defer s.writeMu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type clientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiter(perMinute float64, burst int) *clientLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		visitors: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

func (c *clientLimiter) allow(client string) bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.visitors[client] = limiter
	}
	return limiter.Allow()
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.allow(host) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("rpc: encode response", "err", err)
	}
}

type errorResult struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResult{Error: err.Error()})
}

// writeEngineError maps engine sentinels onto HTTP statuses: bad arguments
// and economic guards read as 400, authorization as 403, missing records as
// 404, one-time-action violations as 409, throttles as 429 and operator
// pauses as 503. Only genuinely unexpected errors fall through to 500.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, curve.ErrTokenNotFound),
		errors.Is(err, launch.ErrTokenNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, curve.ErrAlreadyMigrated),
		errors.Is(err, curve.ErrTokenExists),
		errors.Is(err, launch.ErrNoSaltAvailable),
		errors.Is(err, common.ErrReentrantCall):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, common.ErrIntervalNotElapsed):
		s.writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, common.ErrModulePaused):
		s.writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, launch.ErrUnauthorizedCaller),
		errors.Is(err, spending.ErrUnauthorizedCaller):
		s.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, curve.ErrInvalidAmount),
		errors.Is(err, curve.ErrSlippage),
		errors.Is(err, curve.ErrInsufficientSupply),
		errors.Is(err, curve.ErrInsufficientFunds),
		errors.Is(err, launch.ErrInvalidSalt),
		errors.Is(err, launch.ErrInvalidMetadata),
		errors.Is(err, launch.ErrInsufficientValue),
		errors.Is(err, launch.ErrInsufficientFunds),
		errors.Is(err, spending.ErrInvalidWindow),
		errors.Is(err, spending.ErrInvalidAmount):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("rpc: internal error", "err", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
