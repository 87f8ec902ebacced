// Package metrics exposes prometheus collectors for the HTTP layer and the
// exam domain. Every method is safe on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	sessionsCreated   prometheus.Counter
	sessionsGraded    *prometheus.CounterVec
	questionsImported prometheus.Counter
	importFailures    *prometheus.CounterVec
	renderFailures    prometheus.Counter
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_sessions_created_total",
			Help: "Exam sessions created",
		}),
		sessionsGraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_sessions_graded_total",
				Help: "Exam sessions graded, by outcome tier",
			},
			[]string{"tier"},
		),
		questionsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_questions_imported_total",
			Help: "Questions created from uploaded documents",
		}),
		importFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_question_import_failures_total",
				Help: "Rejected question uploads, by reason",
			},
			[]string{"reason"},
		),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_render_failures_total",
			Help: "Questions shown with the error placeholder",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.sessionsCreated,
		m.sessionsGraded,
		m.questionsImported,
		m.importFailures,
		m.renderFailures,
	)
	return m
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) SessionGraded(tier string) {
	if m == nil {
		return
	}
	m.sessionsGraded.WithLabelValues(tier).Inc()
}

func (m *Metrics) QuestionsImported(n int) {
	if m == nil {
		return
	}
	m.questionsImported.Add(float64(n))
}

func (m *Metrics) ImportFailed(reason string) {
	if m == nil {
		return
	}
	m.importFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RenderFailed() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// Middleware records request count and latency per route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
