package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/query"
	"github.com/ssargent/dwgkit/pkg/snapshot"
	"github.com/ssargent/dwgkit/pkg/storage"
)

const defaultMaxUpload = 64 << 20

// Server holds the API server state
type Server struct {
	archive storage.Archive
	config  ServerConfig
	metrics *Metrics
	logger  logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(archive storage.Archive, config ServerConfig, metrics *Metrics, logger logrus.FieldLogger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaultMaxUpload
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		archive: archive,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func views(c *notify.Collector) []NotificationView {
	var out []NotificationView
	for _, n := range c.All() {
		v := NotificationView{Kind: n.Kind.String(), Severity: n.Severity.String(), Message: n.Message}
		if n.Handle != 0 {
			v.Handle = fmt.Sprintf("%X", n.Handle)
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) notifier(c *notify.Collector) notify.Handler {
	return s.metrics.Notify(notify.Multi(c.Handler(), s.config.Reader.Notify))
}

// decode reads a drawing, counting it and its notifications.
func (s *Server) decode(ctx context.Context, data []byte, c *notify.Collector) (*document.Document, error) {
	cfg := s.config.Reader
	cfg.Notify = s.notifier(c)

	start := time.Now()
	doc, err := dwg.NewReader(cfg).ReadBytes(ctx, data)
	version := "unknown"
	if err == nil {
		version = doc.Version.Tag()
	}
	s.metrics.RecordDecode(version, err == nil, time.Since(start))
	return doc, err
}

func decodeStatus(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, format.ErrUnsupportedVersion), errors.Is(err, format.ErrEncrypted):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusUnprocessableEntity
}

// load fetches an archived drawing. It reports the error itself and returns
// false when the request cannot proceed.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*storage.Record, []byte, bool) {
	id, err := storage.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Document not found", http.StatusNotFound)
		return nil, nil, false
	}
	rec, err := s.archive.Meta(id)
	if err == nil {
		var data []byte
		if data, err = s.archive.Read(id); err == nil {
			return rec, data, true
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Document not found", http.StatusNotFound)
	} else {
		sendError(w, fmt.Sprintf("Failed to read document: %v", err), http.StatusInternalServerError)
	}
	return nil, nil, false
}

// loadDocument fetches and decodes an archived drawing.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request, c *notify.Collector) (*storage.Record, *document.Document, bool) {
	rec, data, ok := s.load(w, r)
	if !ok {
		return nil, nil, false
	}
	doc, err := s.decode(r.Context(), data, c)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to decode document: %v", err), decodeStatus(err))
		return nil, nil, false
	}
	return rec, doc, true
}

func (s *Server) refreshStats() {
	recs, err := s.archive.List()
	if err != nil {
		s.logger.WithError(err).Warn("failed to list archive")
		return
	}
	var size int64
	for _, rec := range recs {
		size += int64(rec.Size)
	}
	s.metrics.UpdateArchiveStats(len(recs), size)
}

// handleHealth reports liveness (GET /health)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleUpload decodes and archives a drawing (POST /api/v1/documents)
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Document exceeds %d bytes", s.config.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	c := notify.NewCollector()
	doc, err := s.decode(r.Context(), data, c)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to decode document: %v", err), decodeStatus(err))
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "drawing.dwg"
	}
	rec, err := s.archive.Create(storage.Record{Name: path.Base(name), Version: doc.Version.Tag(), Objects: doc.Len()}, data)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to archive document: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.WithFields(logrus.Fields{"id": rec.ID.String(), "version": rec.Version, "objects": rec.Objects}).Info("document archived")
	s.refreshStats()

	sendStatus(w, UploadResponse{Document: summaryOf(*rec), Notifications: views(c)}, http.StatusCreated)
}

// handleList lists archived drawings (GET /api/v1/documents)
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.archive.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list documents: %v", err), http.StatusInternalServerError)
		return
	}
	out := make([]DocumentSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summaryOf(rec))
	}
	sendSuccess(w, out)
}

// handleGet describes an archived drawing (GET /api/v1/documents/{id})
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c := notify.NewCollector()
	rec, doc, ok := s.loadDocument(w, r, c)
	if !ok {
		return
	}

	detail := DocumentDetail{
		DocumentSummary: summaryOf(*rec),
		Types:           make(map[string]int),
		Notifications:   views(c),
	}
	doc.Walk(func(obj document.Object) bool {
		detail.Types[document.TypeName(obj)]++
		return true
	})
	for _, l := range doc.Layers.Entries {
		detail.Layers = append(detail.Layers, l.Name)
	}
	for _, b := range doc.BlockRecords.Entries {
		detail.Blocks = append(detail.Blocks, b.Name)
	}
	for name := range doc.Sections {
		detail.Sections = append(detail.Sections, name)
	}
	sort.Strings(detail.Sections)

	sendSuccess(w, detail)
}

// handleHandles lists the handle map (GET /api/v1/documents/{id}/handles)
func (s *Server) handleHandles(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.load(w, r)
	if !ok {
		return
	}

	limit := -1
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			sendError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	c := notify.NewCollector()
	cfg := s.config.Reader
	cfg.Notify = s.notifier(c)
	container, err := dwg.NewReader(cfg).Open(data)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to decode document: %v", err), decodeStatus(err))
		return
	}

	entries := container.Handles.Entries()
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := make([]HandleView, 0, len(entries))
	for _, e := range entries {
		out = append(out, HandleView{Handle: fmt.Sprintf("%X", e.Handle), Offset: e.Offset})
	}
	sendSuccess(w, out)
}

// handleEntities lists entities filtered by type and layer
// (GET /api/v1/documents/{id}/entities?type=&layer=)
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	c := notify.NewCollector()
	_, doc, ok := s.loadDocument(w, r, c)
	if !ok {
		return
	}

	var filters []query.FieldQuery
	for _, field := range []string{query.FieldType, query.FieldLayer} {
		if v := r.URL.Query().Get(field); v != "" {
			filters = append(filters, query.FieldQuery{Field: field, Operator: "=", Value: v})
		}
	}

	matches, err := s.entities(r.Context(), doc, filters)
	if err != nil {
		sendError(w, fmt.Sprintf("Query failed: %v", err), http.StatusBadRequest)
		return
	}
	sendSuccess(w, matches)
}

func (s *Server) entities(ctx context.Context, doc *document.Document, filters []query.FieldQuery) ([]EntityView, error) {
	var candidates []document.Object
	if len(filters) == 0 {
		for _, e := range doc.Entities() {
			candidates = append(candidates, e)
		}
	} else {
		engine, err := query.NewDocumentEngine(ctx, doc)
		if err != nil {
			return nil, err
		}
		var keep map[uint64]bool
		for i, f := range filters {
			it, err := engine.ExecuteQuery(ctx, f)
			if err != nil {
				return nil, err
			}
			next := make(map[uint64]bool)
			for _, res := range query.Collect(it) {
				if i > 0 && !keep[res.Handle] {
					continue
				}
				next[res.Handle] = true
				if i == len(filters)-1 {
					candidates = append(candidates, res.Object)
				}
			}
			keep = next
		}
	}

	out := make([]EntityView, 0, len(candidates))
	for _, obj := range candidates {
		e, ok := obj.(document.Entity)
		if !ok {
			continue
		}
		eb := e.EntityCommon()
		v := EntityView{
			Handle: fmt.Sprintf("%X", eb.Handle),
			Type:   document.TypeName(obj),
			Color:  eb.Color.Index,
		}
		if eb.Layer != nil {
			v.Layer = eb.Layer.Name
		}
		if b := eb.Block(); b != nil {
			v.Block = b.Name
		}
		out = append(out, v)
	}
	return out, nil
}

// handleSnapshot returns the CBOR snapshot of a drawing
// (GET /api/v1/documents/{id}/snapshot)
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	c := notify.NewCollector()
	rec, doc, ok := s.loadDocument(w, r, c)
	if !ok {
		return
	}

	snap, err := snapshot.Take(doc, s.notifier(c))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to snapshot document: %v", err), http.StatusInternalServerError)
		return
	}
	data, err := snap.Marshal()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to snapshot document: %v", err), http.StatusInternalServerError)
		return
	}
	digest, err := snap.Digest()
	if err == nil {
		w.Header().Set("ETag", `"`+digest+`"`)
	}
	sendBinary(w, "application/cbor", strings.TrimSuffix(rec.Name, path.Ext(rec.Name))+".cbor", data)
}

// handleConvert re-encodes a drawing for another version
// (GET /api/v1/documents/{id}/convert?version=)
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var v format.Version
	if err := v.UnmarshalText([]byte(r.URL.Query().Get("version"))); err != nil {
		sendError(w, fmt.Sprintf("Invalid version: %v", err), http.StatusBadRequest)
		return
	}

	c := notify.NewCollector()
	rec, doc, ok := s.loadDocument(w, r, c)
	if !ok {
		return
	}

	cfg := s.config.Writer
	cfg.Version = v
	cfg.Notify = s.notifier(c)
	data, err := dwg.NewWriter(cfg).Bytes(r.Context(), doc)
	s.metrics.RecordEncode(v.Tag(), err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to convert document: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Dwgkit-Notifications", strconv.Itoa(c.Len()))
	name := strings.TrimSuffix(rec.Name, path.Ext(rec.Name)) + "-" + v.Tag() + ".dwg"
	sendBinary(w, "application/acad", name, data)
}

// handleDelete removes an archived drawing (DELETE /api/v1/documents/{id})
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := storage.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Document not found", http.StatusNotFound)
		return
	}
	if err := s.archive.Delete(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			sendError(w, "Document not found", http.StatusNotFound)
			return
		}
		sendError(w, fmt.Sprintf("Failed to delete document: %v", err), http.StatusInternalServerError)
		return
	}
	s.refreshStats()
	sendSuccess(w, map[string]string{"message": "Document deleted successfully"})
}
