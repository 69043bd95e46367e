package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LaunchpadMetrics aggregates the Prometheus collectors for the trading and
// deployment paths.
type LaunchpadMetrics struct {
	swapsExecuted     *prometheus.CounterVec
	swapVolumeWei     *prometheus.CounterVec
	tokensDeployed    prometheus.Counter
	migrations        prometheus.Counter
	migrationDeferred prometheus.Counter
	saltQueueDepth    prometheus.Gauge
}

var (
	launchpadOnce     sync.Once
	launchpadRegistry *LaunchpadMetrics
)

// Launchpad returns the process-wide launchpad metrics, registering the
// collectors on first use.
func Launchpad() *LaunchpadMetrics {
	launchpadOnce.Do(func() {
		launchpadRegistry = &LaunchpadMetrics{
			swapsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_swaps_total",
				Help: "Count of executed curve trades by direction.",
			}, []string{"direction"}),
			swapVolumeWei: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "launchpad_swap_volume_wei_total",
				Help: "Cumulative ETH-side trade volume in wei by direction.",
			}, []string{"direction"}),
			tokensDeployed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "launchpad_tokens_deployed_total",
				Help: "Count of tokens deployed through the factory.",
			}),
			migrations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "launchpad_migrations_total",
				Help: "Count of completed liquidity migrations.",
			}),
			migrationDeferred: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "launchpad_migrations_deferred_total",
				Help: "Count of swallowed external-call failures during migration.",
			}),
			saltQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "launchpad_salt_queue_depth",
				Help: "Number of unconsumed pre-validated salts.",
			}),
		}
		prometheus.MustRegister(
			launchpadRegistry.swapsExecuted,
			launchpadRegistry.swapVolumeWei,
			launchpadRegistry.tokensDeployed,
			launchpadRegistry.migrations,
			launchpadRegistry.migrationDeferred,
			launchpadRegistry.saltQueueDepth,
		)
	})
	return launchpadRegistry
}

// ObserveSwap records an executed trade and its wei volume.
func (m *LaunchpadMetrics) ObserveSwap(direction string, volumeWei float64) {
	if m == nil {
		return
	}
	m.swapsExecuted.WithLabelValues(direction).Inc()
	m.swapVolumeWei.WithLabelValues(direction).Add(volumeWei)
}

// ObserveTokenDeployed records a factory deployment.
func (m *LaunchpadMetrics) ObserveTokenDeployed() {
	if m == nil {
		return
	}
	m.tokensDeployed.Inc()
}

// ObserveMigration records a completed migration.
func (m *LaunchpadMetrics) ObserveMigration() {
	if m == nil {
		return
	}
	m.migrations.Inc()
}

// ObserveMigrationDeferred records a swallowed migration failure.
func (m *LaunchpadMetrics) ObserveMigrationDeferred() {
	if m == nil {
		return
	}
	m.migrationDeferred.Inc()
}

// SetSaltQueueDepth updates the salt-pool gauge.
func (m *LaunchpadMetrics) SetSaltQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.saltQueueDepth.Set(float64(depth))
}
