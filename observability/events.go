package observability

import (
	"log/slog"
	"math/big"

	"github.com/vcazador/dejungl-meme/core/events"
	"github.com/vcazador/dejungl-meme/core/types"
	"github.com/vcazador/dejungl-meme/observability/metrics"
)

// Emitter bridges engine events into structured logs and Prometheus
// counters. It satisfies events.Emitter.
type Emitter struct {
	logger  *slog.Logger
	metrics *metrics.LaunchpadMetrics
}

// NewEmitter constructs an emitter writing to the supplied logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger, metrics: metrics.Launchpad()}
}

func weiToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// Emit implements events.Emitter.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	switch payload := evt.(type) {
	case events.SwapExecuted:
		volume := weiToFloat(payload.AmountIn)
		if payload.Direction == events.SwapDirectionSell {
			volume = weiToFloat(payload.AmountOut)
		}
		e.metrics.ObserveSwap(payload.Direction, volume)
	case events.LiquidityMigrated:
		e.metrics.ObserveMigration()
	case events.MigrationDeferred:
		e.metrics.ObserveMigrationDeferred()
	case events.TokenDeployed:
		e.metrics.ObserveTokenDeployed()
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		if structured := payload.Event(); structured != nil {
			for key, value := range structured.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	e.logger.Info("event", attrs...)
}
