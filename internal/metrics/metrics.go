package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "macallow"

// Login outcomes.
const (
	LoginOK      = "ok"
	LoginFailed  = "failed"
	LoginBackend = "error"
)

// Entry mutations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Metrics struct {
	reg         *prometheus.Registry
	logins      *prometheus.CounterVec
	mutations   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	entriesSeen prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_mutations_total",
			Help:      "Committed allowlist changes by operation.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Entries rejected by validation, by reason.",
		}, []string{"reason"}),
		entriesSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Number of entries at the last list render.",
		}),
	}
	reg.MustRegister(
		m.logins, m.mutations, m.rejections, m.entriesSeen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Login(result string) { m.logins.WithLabelValues(result).Inc() }
func (m *Metrics) Mutation(op string) { m.mutations.WithLabelValues(op).Inc() }
func (m *Metrics) Rejected(reason string) { m.rejections.WithLabelValues(reason).Inc() }
func (m *Metrics) EntriesListed(n int) { m.entriesSeen.Set(float64(n)) }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
