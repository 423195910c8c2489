// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the service's metrics. A nil *Collector is valid and
// records nothing, which keeps services usable in tests without a registry.
type Collector struct {
	gatherer prometheus.Gatherer

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	ReferralsCreated    *prometheus.CounterVec
	ReferralTransitions *prometheus.CounterVec
	NurseClaims         *prometheus.CounterVec
	CodeRedemptions     *prometheus.CounterVec
	Activations         prometheus.Counter
	StatsCache          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(namespace, reg, reg)
}

func NewWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		gatherer: gatherer,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests currently being served.",
		}),

		ReferralsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "created_total",
			Help:      "Referrals created, by urgency.",
		}, []string{"urgency"}),

		ReferralTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "transitions_total",
			Help:      "Referral status transitions, by source and target status.",
		}, []string{"from", "to"}),

		NurseClaims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "nurse_claims_total",
			Help:      "Nurse self-assignment attempts, by result (won, lost).",
		}, []string{"result"}),

		CodeRedemptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "code_redemptions_total",
			Help:      "Registration code redemptions, by result.",
		}, []string{"result"}),

		Activations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "activations_total",
			Help:      "Pending accounts activated by an administrator.",
		}),

		StatsCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "stats_cache_total",
			Help:      "Dashboard stats cache lookups, by result (hit, miss, error).",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ReferralCreated(urgency string) {
	if c == nil {
		return
	}
	c.ReferralsCreated.WithLabelValues(urgency).Inc()
}

func (c *Collector) ReferralTransition(from, to string) {
	if c == nil {
		return
	}
	c.ReferralTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) NurseClaim(won bool) {
	if c == nil {
		return
	}
	result := "lost"
	if won {
		result = "won"
	}
	c.NurseClaims.WithLabelValues(result).Inc()
}

func (c *Collector) CodeRedemption(result string) {
	if c == nil {
		return
	}
	c.CodeRedemptions.WithLabelValues(result).Inc()
}

func (c *Collector) Activation() {
	if c == nil {
		return
	}
	c.Activations.Inc()
}

func (c *Collector) StatsCacheResult(result string) {
	if c == nil {
		return
	}
	c.StatsCache.WithLabelValues(result).Inc()
}
