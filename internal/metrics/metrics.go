// Package metrics provides Prometheus metrics for the bookbot server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    *prometheus.CounterVec

	// Chat pipeline
	ModelCallsTotal  *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolRounds       prometheus.Histogram
	ImagesTotal      *prometheus.CounterVec
	ProfanityBlocked prometheus.Counter
}

// New registers everything on a fresh registry so tests can build as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookbot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route", "method"},
	)

	m.RateLimitedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbot_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	m.ModelCallsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbot_model_calls_total",
			Help: "Chat model calls by outcome",
		},
		[]string{"outcome"},
	)

	m.ToolCallsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbot_tool_calls_total",
			Help: "Tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	m.ToolRounds = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookbot_tool_rounds",
			Help:    "Tool round trips per chat request",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
		},
	)

	m.ImagesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbot_cover_images_total",
			Help: "Cover image generations by outcome",
		},
		[]string{"outcome"},
	)

	m.ProfanityBlocked = f.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbot_profanity_blocked_total",
			Help: "Prompts rejected by the profanity filter",
		},
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ModelCall(outcome string) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ToolCall(tool string, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveRounds(n int) {
	if m == nil {
		return
	}
	m.ToolRounds.Observe(float64(n))
}

func (m *Metrics) Image(outcome string) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Profanity() {
	if m == nil {
		return
	}
	m.ProfanityBlocked.Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
