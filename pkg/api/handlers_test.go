package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/snapshot"
	"github.com/ssargent/dwgkit/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   chi.Router
	archive  *storage.DefaultStorage
	registry *prometheus.Registry
}

func setupTestServer(t *testing.T, config ServerConfig) *testServer {
	archive, err := storage.NewDefaultStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })

	config.Reader = dwg.DefaultReaderConfig()
	registry := prometheus.NewRegistry()
	logger, _ := test.NewNullLogger()
	server := NewServer(archive, config, NewMetrics(registry), logger)
	return &testServer{router: NewRouter(server, registry), archive: archive, registry: registry}
}

func (ts *testServer) do(t *testing.T, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	resp := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func sampleDrawing(t *testing.T) []byte {
	d := document.New(format.AC1018)
	walls := &document.Layer{Name: "WALLS", Color: bitstream.Color{Index: 3}, Plot: true, LineType: d.Continuous}
	require.NoError(t, d.Add(walls))
	d.Layers.Add(walls)

	for i := 0; i < 2; i++ {
		require.NoError(t, d.AddEntity(d.ModelSpace, &document.Line{
			EntityBase: document.EntityBase{Layer: walls, LineTypeScale: 1},
			End:        bitstream.Vec3{X: float64(i + 1)},
			Extrusion:  bitstream.ZAxis,
		}))
	}
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Circle{
		EntityBase: document.EntityBase{Layer: walls, LineTypeScale: 1},
		Radius:     2,
		Extrusion:  bitstream.ZAxis,
	}))
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Circle{Radius: 1, Extrusion: bitstream.ZAxis}))

	data, err := dwg.NewWriter(dwg.WriterConfig{}).Bytes(context.Background(), d)
	require.NoError(t, err)
	return data
}

func upload(t *testing.T, ts *testServer) DocumentSummary {
	w := ts.do(t, "POST", "/api/v1/documents?name=plans/plan.dwg", sampleDrawing(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp UploadResponse
	decodeData(t, w, &resp)
	return resp.Document
}

func TestHandleHealth(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var data map[string]string
	decodeData(t, w, &data)
	assert.Equal(t, "healthy", data["status"])
}

func TestUploadAndGet(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	doc := upload(t, ts)
	assert.Equal(t, "plan.dwg", doc.Name)
	assert.Equal(t, "AC1018", doc.Version)
	assert.NotEmpty(t, doc.ID)
	assert.Greater(t, doc.Objects, 4)

	w := ts.do(t, "GET", "/api/v1/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail DocumentDetail
	decodeData(t, w, &detail)
	assert.Equal(t, doc.ID, detail.ID)
	assert.Equal(t, 2, detail.Types["LINE"])
	assert.Equal(t, 2, detail.Types["CIRCLE"])
	assert.Contains(t, detail.Layers, "WALLS")
	assert.Contains(t, detail.Layers, "0")
	assert.Contains(t, detail.Blocks, document.ModelSpaceName)

	w = ts.do(t, "GET", "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []DocumentSummary
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, doc.ID, list[0].ID)
}

func TestUploadErrors(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{MaxUploadBytes: 1 << 16})

	tests := []struct {
		name   string
		body   []byte
		status []int
	}{
		{"empty body", nil, []int{http.StatusBadRequest}},
		{"not a drawing", []byte("hello, world, this is not a drawing"), []int{http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity}},
		{"too large", make([]byte, 1<<17), []int{http.StatusRequestEntityTooLarge}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, "POST", "/api/v1/documents", tt.body)
			assert.Contains(t, tt.status, w.Code, w.Body.String())
		})
	}

	list, err := ts.archive.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandleHandles(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	doc := upload(t, ts)

	w := ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/handles", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var all []HandleView
	decodeData(t, w, &all)
	assert.Len(t, all, doc.Objects)

	w = ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/handles?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var some []HandleView
	decodeData(t, w, &some)
	assert.Equal(t, all[:2], some)

	w = ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/handles?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEntities(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	doc := upload(t, ts)

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"?type=line", 2},
		{"?type=CIRCLE", 2},
		{"?layer=walls", 3},
		{"?layer=WALLS&type=circle", 1},
		{"?layer=0&type=line", 0},
	}

	for _, tt := range tests {
		t.Run("entities"+tt.query, func(t *testing.T) {
			w := ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/entities"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var got []EntityView
			decodeData(t, w, &got)
			assert.Len(t, got, tt.want)
			for _, e := range got {
				assert.Equal(t, document.ModelSpaceName, e.Block)
			}
		})
	}
}

func TestHandleSnapshot(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	doc := upload(t, ts)

	w := ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/cbor", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))

	snap, err := snapshot.Unmarshal(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "AC1018", snap.Version)
	assert.Len(t, snap.Objects, doc.Objects)

	again := ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/snapshot", nil)
	assert.Equal(t, w.Header().Get("ETag"), again.Header().Get("ETag"))
}

func TestHandleConvert(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	doc := upload(t, ts)

	w := ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/convert?version=R2000", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "plan-AC1015.dwg")

	converted, err := dwg.NewReader(dwg.DefaultReaderConfig()).ReadBytes(context.Background(), w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, format.AC1015, converted.Version)
	assert.Equal(t, doc.Objects, converted.Len())

	w = ts.do(t, "GET", "/api/v1/documents/"+doc.ID+"/convert?version=R12", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDelete(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	doc := upload(t, ts)

	w := ts.do(t, "DELETE", "/api/v1/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "GET", "/api/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, "DELETE", "/api/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, "GET", "/api/v1/documents/not-an-id/handles", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: "test-key"})

	w := ts.do(t, "GET", "/api/v1/documents", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, "GET", "/api/v1/documents", nil, "X-API-Key", "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, "GET", "/api/v1/documents", nil, "X-API-Key", "test-key")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	upload(t, ts)

	w := ts.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `dwgkit_documents_decoded_total{status="success",version="AC1018"} 1`)
	assert.Contains(t, body, "dwgkit_archive_documents 1")
	assert.Contains(t, body, "dwgkit_notifications_total")
	assert.Contains(t, body, `dwgkit_http_requests_total{endpoint="/api/v1/documents",method="POST",status_code="201"} 1`)
}

func TestNewServerDefaults(t *testing.T) {
	archive, err := storage.NewDefaultStorage(t.TempDir())
	require.NoError(t, err)
	defer archive.Close()

	s := NewServer(archive, ServerConfig{}, NewMetrics(prometheus.NewRegistry()), nil)
	assert.Equal(t, int64(defaultMaxUpload), s.config.MaxUploadBytes)
	assert.Equal(t, logrus.StandardLogger(), s.logger)
}
