package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/veritas/internal/application/analysis"
	"github.com/bryanwahyu/veritas/internal/application/session"
	"github.com/bryanwahyu/veritas/internal/domain/ai"
	domain "github.com/bryanwahyu/veritas/internal/domain/analysis"
	"github.com/bryanwahyu/veritas/internal/domain/archive"
	"github.com/bryanwahyu/veritas/internal/infra/metrics"
	"github.com/bryanwahyu/veritas/internal/logger"
	"github.com/bryanwahyu/veritas/internal/middleware"
)

// MaxImageBytes caps screenshot uploads.
const MaxImageBytes = 10 << 20

// errBadRequest marks input problems that map to 400.
var errBadRequest = errors.New("bad request")

type Deps struct {
	Service  *appanalysis.Service
	Sessions *session.Registry
	Archive  archive.Repository // nil disables the archive route
	Checkers map[string]middleware.HealthChecker
	Ready    func() error
	// AnalyzeTimeout bounds one analysis; keep it below the server's WriteTimeout.
	AnalyzeTimeout time.Duration
}

type Router struct {
	svc            *appanalysis.Service
	sessions       *session.Registry
	archive        archive.Repository
	analyzeTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := &Router{svc: d.Service, sessions: d.Sessions, archive: d.Archive, analyzeTimeout: d.AnalyzeTimeout}
	ready := d.Ready
	if ready == nil {
		ready = func() error { return nil }
	}

	mux := chi.NewRouter()
	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(d.Checkers))
	mux.Get("/readyz", middleware.ReadinessHandler(ready))
	mux.Handle("/metrics", metrics.Handler())

	mux.Route("/v1/sessions", func(rt chi.Router) {
		rt.Post("/", r.wrap(r.handleCreateSession))
		rt.Route("/{session}", func(rt chi.Router) {
			rt.Delete("/", r.wrap(r.handleDeleteSession))
			rt.Post("/analyze/url", r.wrap(r.handleAnalyzeURL))
			rt.Post("/analyze/image", r.wrap(r.handleAnalyzeImage))
			rt.Get("/history", r.wrap(r.handleHistory))
			rt.Delete("/history", r.wrap(r.handleClearHistory))
			rt.Post("/history/{id}/open", r.wrap(r.handleOpen))
			rt.Get("/playback", r.wrap(r.handlePlayback))
			rt.Delete("/playback", r.wrap(r.handleClosePlayback))
			rt.Get("/archive", r.wrap(r.handleArchive))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, msg := http.StatusInternalServerError, "internal error"
		switch {
		case errors.Is(err, ai.ErrQuotaExceeded):
			status, msg = http.StatusTooManyRequests, "the analysis service is busy, try again shortly"
		case errors.Is(err, ai.ErrModelUnavailable):
			status, msg = http.StatusBadGateway, "no analysis model is available"
		case errors.Is(err, context.DeadlineExceeded):
			status, msg = http.StatusGatewayTimeout, "the analysis took too long, try again shortly"
		case errors.Is(err, domain.ErrMissingCredentials):
			status, msg = http.StatusServiceUnavailable, "analysis is not configured"
		case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrUnsupportedImage), errors.Is(err, domain.ErrEmptyInput):
			status, msg = http.StatusBadRequest, err.Error()
		case errors.Is(err, session.ErrRecordNotFound), errors.Is(err, session.ErrSessionNotFound):
			status, msg = http.StatusNotFound, "not found"
		}
		if status >= http.StatusInternalServerError {
			logger.Log.WithError(err).WithField("path", req.URL.Path).Error("[http] request failed")
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

func sessionID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "session")
	if err := middleware.ValidateSessionID(id); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}

// session resolves an existing session; unknown IDs are not created.
func (r *Router) session(req *http.Request) (*session.Session, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}
	s, ok := r.sessions.Lookup(id)
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

// openSession resolves the session for an analysis, creating it on first use.
func (r *Router) openSession(req *http.Request) (*session.Session, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}
	return r.sessions.Open(id), nil
}

// analyzeContext bounds an analysis so it ends before the server gives up on the response.
func (r *Router) analyzeContext(req *http.Request) (context.Context, context.CancelFunc) {
	if r.analyzeTimeout <= 0 {
		return context.WithCancel(req.Context())
	}
	return context.WithTimeout(req.Context(), r.analyzeTimeout)
}

// POST /v1/sessions
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	s := r.sessions.Create()
	return writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID})
}

// DELETE /v1/sessions/{session}
func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) error {
	if _, err := r.session(req); err != nil {
		return err
	}
	r.sessions.Delete(chi.URLParam(req, "session"))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/sessions/{session}/analyze/url
// Body: {"url": "<product page>", "refresh": false}
func (r *Router) handleAnalyzeURL(w http.ResponseWriter, req *http.Request) error {
	s, err := r.openSession(req)
	if err != nil {
		return err
	}
	var body struct {
		URL     string `json:"url"`
		Refresh bool   `json:"refresh"` // skip the cached page evidence
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	body.URL = middleware.SanitizeString(body.URL)
	if err := middleware.ValidateURL(body.URL); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	ctx, cancel := r.analyzeContext(req)
	defer cancel()
	s.ClosePlayback()
	rep, err := r.svc.Analyze(ctx, s, domain.URLRequest{URL: body.URL, Refresh: body.Refresh})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// POST /v1/sessions/{session}/analyze/image
// multipart/form-data with the screenshot in field "image"
func (r *Router) handleAnalyzeImage(w http.ResponseWriter, req *http.Request) error {
	s, err := r.openSession(req)
	if err != nil {
		return err
	}
	req.Body = http.MaxBytesReader(w, req.Body, MaxImageBytes+1<<20)
	if err := req.ParseMultipartForm(MaxImageBytes); err != nil {
		return fmt.Errorf("%w: invalid upload: %v", errBadRequest, err)
	}
	file, header, err := req.FormFile("image")
	if err != nil {
		return fmt.Errorf("%w: image field is required", errBadRequest)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return err
	}
	if len(data) > MaxImageBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", errBadRequest, MaxImageBytes)
	}

	ctx, cancel := r.analyzeContext(req)
	defer cancel()
	s.ClosePlayback()
	rep, err := r.svc.Analyze(ctx, s, domain.ImageRequest{
		Data: data,
		MIME: header.Header.Get("Content-Type"),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/sessions/{session}/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	s, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"session": s.ID,
		"records": s.Recent(),
	})
}

// DELETE /v1/sessions/{session}/history
func (r *Router) handleClearHistory(w http.ResponseWriter, req *http.Request) error {
	s, err := r.session(req)
	if err != nil {
		return err
	}
	s.Clear()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/sessions/{session}/history/{id}/open
func (r *Router) handleOpen(w http.ResponseWriter, req *http.Request) error {
	s, err := r.session(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	rec, err := s.Select(domain.RecordID(id))
	if err != nil {
		return err
	}
	rep, err := r.svc.Analyze(req.Context(), s, domain.ReplayRequest{Record: rec})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/sessions/{session}/playback
func (r *Router) handlePlayback(w http.ResponseWriter, req *http.Request) error {
	s, err := r.session(req)
	if err != nil {
		return err
	}
	rec := s.Playback()
	if rec == nil {
		return session.ErrRecordNotFound
	}
	rep, err := r.svc.Analyze(req.Context(), s, domain.ReplayRequest{Record: rec})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// DELETE /v1/sessions/{session}/playback
func (r *Router) handleClosePlayback(w http.ResponseWriter, req *http.Request) error {
	s, err := r.session(req)
	if err != nil {
		return err
	}
	s.ClosePlayback()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/sessions/{session}/archive?page=&page_size=
func (r *Router) handleArchive(w http.ResponseWriter, req *http.Request) error {
	if r.archive == nil {
		return session.ErrRecordNotFound
	}
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	size, _ := strconv.Atoi(strings.TrimSpace(q.Get("page_size")))
	page, size = middleware.ValidatePage(page), middleware.ValidateLimit(size)

	list, err := r.archive.Paginate(req.Context(), id, page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*archive.Entry{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"page":      page,
		"page_size": size,
		"entries":   list,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
