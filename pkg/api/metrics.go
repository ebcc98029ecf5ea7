package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ssargent/dwgkit/pkg/notify"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Codec metrics
	documentsDecoded   *prometheus.CounterVec
	documentsEncoded   *prometheus.CounterVec
	decodeDuration     *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	archiveDocuments   prometheus.Gauge
	archiveSizeBytes   prometheus.Gauge
	authRequestsTotal  *prometheus.CounterVec
	healthChecksTotal  *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dwgkit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dwgkit_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		documentsDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_documents_decoded_total",
				Help: "Total number of drawings decoded",
			},
			[]string{"version", "status"},
		),

		documentsEncoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_documents_encoded_total",
				Help: "Total number of drawings encoded",
			},
			[]string{"version", "status"},
		),

		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dwgkit_decode_duration_seconds",
				Help:    "Drawing decode duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"version"},
		),

		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_notifications_total",
				Help: "Total number of codec notifications",
			},
			[]string{"kind", "severity"},
		),

		archiveDocuments: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dwgkit_archive_documents",
				Help: "Number of drawings in the archive",
			},
		),

		archiveSizeBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dwgkit_archive_size_bytes",
				Help: "Total size of archived drawings in bytes",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dwgkit_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	for _, k := range notify.Kinds() {
		m.notificationsTotal.WithLabelValues(k.String(), notify.SeverityWarning.String())
	}
	return m
}

func status(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecode records a drawing decode
func (m *Metrics) RecordDecode(version string, success bool, duration time.Duration) {
	m.documentsDecoded.WithLabelValues(version, status(success)).Inc()
	m.decodeDuration.WithLabelValues(version).Observe(duration.Seconds())
}

// RecordEncode records a drawing encode
func (m *Metrics) RecordEncode(version string, success bool) {
	m.documentsEncoded.WithLabelValues(version, status(success)).Inc()
}

// RecordNotification counts a codec notification
func (m *Metrics) RecordNotification(n notify.Notification) {
	m.notificationsTotal.WithLabelValues(n.Kind.String(), n.Severity.String()).Inc()
}

// Notify returns a handler counting every notification before passing it to next
func (m *Metrics) Notify(next notify.Handler) notify.Handler {
	return func(n notify.Notification) {
		m.RecordNotification(n)
		next.Emit(n)
	}
}

// UpdateArchiveStats updates archive statistics
func (m *Metrics) UpdateArchiveStats(documents int, size int64) {
	m.archiveDocuments.Set(float64(documents))
	m.archiveSizeBytes.Set(float64(size))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(status(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(status(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
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
