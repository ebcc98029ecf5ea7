package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/stretchr/testify/assert"
)

func TestMetricsNotify(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c := notify.NewCollector()

	h := m.Notify(c.Handler())
	h.Warn(notify.KindMissingReference, nil, "layer 0x2A")
	h.Warn(notify.KindMissingReference, nil, "layer 0x2B")
	h.Emit(notify.Notification{Kind: notify.KindChecksum, Severity: notify.SeverityError})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("missing-reference", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("checksum", "error")))

	// A nil next handler only counts.
	m.Notify(nil).Warn(notify.KindGeneral, nil, "x")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("general", "warning")))
}

func TestMetricsRecorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDecode("AC1018", true, time.Millisecond)
	m.RecordDecode("unknown", false, time.Millisecond)
	m.RecordEncode("AC1015", true)
	m.UpdateArchiveStats(3, 4096)
	m.RecordHealthCheck(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsDecoded.WithLabelValues("AC1018", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsDecoded.WithLabelValues("unknown", statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsEncoded.WithLabelValues("AC1015", statusSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.archiveDocuments))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.archiveSizeBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.healthChecksTotal.WithLabelValues(statusSuccess)))
}

func TestInstrumentHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	h := m.InstrumentHandler("GET", "/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h(httptest.NewRecorder(), httptest.NewRequest("GET", "/teapot", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/teapot", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpRequestsInFlight.WithLabelValues("GET", "/teapot")))
}

func TestInstrumentAuthMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := m.InstrumentAuthMiddleware(apiKeyMiddleware("key"))(ok)

	for _, key := range []string{"key", "bad", ""} {
		req := httptest.NewRequest("GET", "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusError)))
}
