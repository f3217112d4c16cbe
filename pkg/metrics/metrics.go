// Package metrics provides Prometheus metrics collection for the console's
// HTTP API and its websocket transport to the bot backend.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebot/console/pkg/logger"
)

const (
	subsystem = "console"
)

// Metrics provides Prometheus metrics collection for HTTP requests and the
// backend transport.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPRequestsCounters     map[int]prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	TransportCounters map[int]prometheus.Counter
	SaveDuration      prometheus.Histogram

	customMetrics []prometheus.Collector

	stopChan chan os.Signal
	errChan  chan error
	log      logger.Logger
}

// NewMetrics creates a new Metrics instance with the specified collectors enabled.
func NewMetrics(httpCounters, transportCounters bool, l logger.Logger) Metrics {
	m := Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}
	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests",
		})
		m.reg.MustRegister(m.TotalHTTPRequestsCounter)
		m.HTTPRequestsCounters = make(map[int]prometheus.Counter)

		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.reg.MustRegister(m.HTTPDurationHistogram)
	}
	if transportCounters {
		m.TransportCounters = getTransportCounters()
		for k := range m.TransportCounters {
			m.reg.MustRegister(m.TransportCounters[k])
		}

		m.SaveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "config_save_duration_seconds",
			Help:      "Time from config save transmission to acknowledgment",
			Buckets:   []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0, 10.0},
		})
		m.reg.MustRegister(m.SaveDuration)
	}
	return m
}

// Listen starts the metrics HTTP server on the specified port.
func (m *Metrics) Listen(port int) {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal)
	errChan := make(chan error)
	go func() {
		errChan <- server.ListenAndServe()
	}()
	go func() {
		for {
			sig := <-sigChan
			if sig == os.Interrupt {
				m.log.Info("Stopping metrics listener")
				_ = server.Shutdown(context.Background())
				return
			}
		}
	}()
	m.errChan = errChan
	m.stopChan = sigChan
}

// Handler returns the /metrics handler for mounting on an existing router.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Transport counter indices.
const (
	TransportFramesReceived = iota
	TransportFramesDropped
	TransportFramesSent
	TransportSendsWhileClosed
	TransportReconnects
	TransportHeartbeats
	TransportAuthAttempts
)

func getTransportCounters() map[int]prometheus.Counter {
	m := make(map[int]prometheus.Counter)
	m[TransportFramesReceived] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_frames_received",
		Help:      "Total frames received from the backend",
	})
	m[TransportFramesDropped] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_frames_dropped",
		Help:      "Total unrecognized frames dropped",
	})
	m[TransportFramesSent] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_frames_sent",
		Help:      "Total frames sent to the backend",
	})
	m[TransportSendsWhileClosed] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_sends_while_closed",
		Help:      "Total sends dropped because the connection was closed",
	})
	m[TransportReconnects] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_reconnects",
		Help:      "Total reconnect attempts",
	})
	m[TransportHeartbeats] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_heartbeats",
		Help:      "Total heartbeat pings sent",
	})
	m[TransportAuthAttempts] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_auth_attempts",
		Help:      "Total login attempts submitted",
	})
	return m
}

// IncrementTransportCounter increments one of the transport counters. It is
// a no-op when transport metrics are disabled.
func (m *Metrics) IncrementTransportCounter(idx int) {
	if m.TransportCounters == nil {
		return
	}
	if c, ok := m.TransportCounters[idx]; ok {
		c.Inc()
	}
}

// ObserveSaveDuration records one config save round trip. No-op when
// transport metrics are disabled.
func (m *Metrics) ObserveSaveDuration(d time.Duration) {
	if m.SaveDuration == nil {
		return
	}
	m.SaveDuration.Observe(d.Seconds())
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.customMetrics = append(m.customMetrics, c)
	m.reg.MustRegister(m.customMetrics[len(m.customMetrics)-1])
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	_, ok := m.HTTPRequestsCounters[code]
	if !ok {
		m.HTTPRequestsCounters[code] = newTotalHTTPReqMetric(code)
		m.reg.MustRegister(m.HTTPRequestsCounters[code])
	}
	m.HTTPRequestsCounters[code].Inc()
}

func newTotalHTTPReqMetric(code int) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      fmt.Sprintf("total_%d_http_responses", code),
		Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
	})
}

// HTTPMiddleware returns a Chi-compatible middleware that tracks HTTP metrics
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Increment total requests counter
			m.TotalHTTPRequestsCounter.Inc()

			// Create a response writer that captures the status code
			rw := &responseWriter{ResponseWriter: w, statusCode: 200}

			// Call the next handler
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start)
			m.HTTPDurationHistogram.Observe(duration.Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
