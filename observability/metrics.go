package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Resolve outcomes.
const (
	OutcomeReplaced      = "replaced"
	OutcomeAuthoritative = "authoritative"
)

// Metrics groups the node's collectors on a private registry so that
// several nodes can live in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	ChainLength           prometheus.Gauge
	PendingTransactions   prometheus.Gauge
	BlocksMined           prometheus.Counter
	TransactionsSubmitted prometheus.Counter
	Resolutions           *prometheus.CounterVec
	PeerFetchFailures     *prometheus.CounterVec
	KnownPeers            prometheus.Gauge
	HTTPCalls             *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_length",
			Help:      "Number of blocks in the local chain.",
		}),
		PendingTransactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_transactions",
			Help:      "Transactions waiting for the next block.",
		}),
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_mined_total",
			Help:      "Blocks mined by this node.",
		}),
		TransactionsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_submitted_total",
			Help:      "Transactions accepted into the pool.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Conflict resolution passes by outcome.",
		}, []string{"outcome"}),
		PeerFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_fetch_failures_total",
			Help:      "Peers skipped during conflict resolution by failure kind.",
		}, []string{"kind"}),
		KnownPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "known_peers",
			Help:      "Registered peer nodes.",
		}),
		HTTPCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "calls_total",
			Help:      "How many times the endpoint has been called.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "How long it took to serve the request.",
			Buckets:   []float64{100e-6, 400e-6, 0.0016, 0.01, 0.05, 0.1, 1, 10, 60},
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.ChainLength,
		m.PendingTransactions,
		m.BlocksMined,
		m.TransactionsSubmitted,
		m.Resolutions,
		m.PeerFetchFailures,
		m.KnownPeers,
		m.HTTPCalls,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{MaxRequestsInFlight: 1})
}
