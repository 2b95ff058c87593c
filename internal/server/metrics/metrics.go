// Package metrics exposes Prometheus counters for the deal and signature
// workflows. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry        *prometheus.Registry
	offers          *prometheus.CounterVec
	accepts         *prometheus.CounterVec
	signatures      *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "termsheet_offers_total",
			Help:      "Term sheet versions offered.",
		}, []string{"kind"}),
		accepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "termsheet_accepts_total",
			Help:      "Term sheet accept calls that locked a version.",
		}, []string{"kind"}),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "signatures_total",
			Help:      "Documents signed.",
		}, []string{"family"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "sign_token_rejections_total",
			Help:      "Sign tokens refused.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.offers, c.accepts, c.signatures, c.tokenRejections,
	)
	return c
}

func (c *Collector) Offer(kind string) {
	if c != nil {
		c.offers.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) Accept(kind string) {
	if c != nil {
		c.accepts.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) Signed(family string) {
	if c != nil {
		c.signatures.WithLabelValues(family).Inc()
	}
}

// TokenRejected counts a refused sign token; reason is expired, used or invalid.
func (c *Collector) TokenRejected(reason string) {
	if c != nil {
		c.tokenRejections.WithLabelValues(reason).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
