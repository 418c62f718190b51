// Package server exposes a loaded session over a local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/session"
	"github.com/crimson-sun/timeline/internal/source"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

const (
	defaultMaxBody         = 64 << 20 // 64MB
	defaultShutdownTimeout = 5 * time.Second
)

// Resolver maps a location passed to /api/load?url= to a Source.
type Resolver func(location string) (source.Source, error)

// Option configures a Server.
type Option func(*Server)

// WithResolver sets how remote locations are turned into sources.
// Default: source.Resolve with default options, restricted to http(s).
func WithResolver(r Resolver) Option {
	return func(s *Server) { s.resolve = r }
}

// WithMaxBody caps the size of pasted content accepted by /api/load.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithShutdownTimeout bounds how long ListenAndServe waits for in-flight
// requests after ctx is cancelled. Default: 5s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// Server serves the views and exports of one session controller.
type Server struct {
	ctrl    *session.Controller
	router  *mux.Router
	hub     *hub
	resolve Resolver
	maxBody int64

	shutdownTimeout time.Duration
}

// New creates a Server for ctrl and subscribes it to the controller's loads
// so live clients are notified.
func New(ctrl *session.Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		hub:     newHub(),
		resolve: defaultResolver,
		maxBody: defaultMaxBody,

		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	ctrl.OnLoad(func(st session.State) {
		s.hub.broadcast(liveMessage{Type: "reloaded", Count: len(st.Records), Source: st.Source})
	})
	s.router = s.routes()
	return s
}

func defaultResolver(location string) (source.Source, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return nil, fmt.Errorf("server: only http(s) URLs can be loaded remotely")
	}
	return source.Resolve(location, source.Options{FetchRetries: -1})
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(withLogging)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.eventsHandler).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.eventHandler).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/raw", s.rawHandler).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/detail", s.detailHandler).Methods(http.MethodGet)
	api.HandleFunc("/types", s.typesHandler).Methods(http.MethodGet)
	api.HandleFunc("/prompts", s.promptsHandler).Methods(http.MethodGet)
	api.HandleFunc("/share", s.shareHandler).Methods(http.MethodGet)
	api.HandleFunc("/load", s.loadHandler).Methods(http.MethodPost)
	api.HandleFunc("/restore", s.restoreHandler).Methods(http.MethodPost)
	api.HandleFunc("/state", s.stateHandler).Methods(http.MethodPut)
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	api.HandleFunc("/live", s.liveHandler).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }).Methods(http.MethodGet)
	return r
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("viewer listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// viewFromQuery overlays the filter and tz parameters present in the query
// on the stored state.
func viewFromQuery(r *http.Request, st session.State) (model.FilterState, timefmt.Mode, error) {
	q := r.URL.Query()
	f, mode := st.Filters, st.TZ
	if q.Has("q") {
		f.Query = q.Get("q")
	}
	if q.Has("type") {
		f.Type = q.Get("type")
		if f.Type == "" {
			f.Type = model.TypeAll
		}
	}
	if q.Has("hide") {
		b, err := parseBool(q.Get("hide"))
		if err != nil {
			return f, mode, fmt.Errorf("invalid hide value %q", q.Get("hide"))
		}
		f.HideToolDetails = b
	}
	if q.Has("tz") {
		m, ok := timefmt.ParseMode(q.Get("tz"))
		if !ok {
			return f, mode, fmt.Errorf("invalid tz value %q", q.Get("tz"))
		}
		mode = m
	}
	return f, mode, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return true, nil
	}
	return strconv.ParseBool(s)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	f, mode, err := viewFromQuery(r, s.ctrl.Snapshot())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.TimelineFor(f, mode))
}

func (s *Server) eventHandler(w http.ResponseWriter, r *http.Request) {
	data, err := s.ctrl.CleanJSON(mux.Vars(r)["id"])
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) rawHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := s.ctrl.RawLine(mux.Vars(r)["id"])
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, raw)
}

func (s *Server) detailHandler(w http.ResponseWriter, r *http.Request) {
	truncate := true
	if v := r.URL.Query().Get("truncate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid truncate value %q", v))
			return
		}
		truncate = b
	}
	data, err := s.ctrl.DetailJSON(mux.Vars(r)["id"], truncate)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) typesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Types())
}

func (s *Server) promptsHandler(w http.ResponseWriter, r *http.Request) {
	text, err := s.ctrl.Prompts()
	if err != nil {
		writeError(w, http.StatusNotFound, session.Message(err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) shareHandler(w http.ResponseWriter, r *http.Request) {
	frag, err := s.ctrl.ShareFragment()
	if err != nil {
		writeError(w, http.StatusConflict, session.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fragment": frag})
}

func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	var src source.Source
	loc := r.URL.Query().Get("url")
	if loc != "" {
		var err error
		if src, err = s.resolve(loc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		src = source.Text{Label: r.URL.Query().Get("name"), Content: string(body)}
	}

	st, err := s.ctrl.Load(r.Context(), src)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil && loc != "":
		writeJSON(w, http.StatusBadGateway, st)
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, st)
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) restoreHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	st, err := s.ctrl.RestoreFragment(r.Context(), strings.TrimSpace(string(body)))
	if err != nil && !errors.Is(err, session.ErrSuperseded) {
		slog.Warn("restore load failed", "error", err)
	}
	writeJSON(w, http.StatusOK, s.status(st))
}

type stateRequest struct {
	Filters *model.FilterState `json:"filters"`
	TZ      *string            `json:"tz"`
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TZ != nil {
		mode, ok := timefmt.ParseMode(*req.TZ)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tz value %q", *req.TZ))
			return
		}
		s.ctrl.SetTZ(mode)
	}
	if req.Filters != nil {
		f := *req.Filters
		if f.Type == "" {
			f.Type = model.TypeAll
		}
		s.ctrl.SetFilters(f)
	}
	writeJSON(w, http.StatusOK, s.status(nil))
}

type statusResponse struct {
	Source    string            `json:"source"`
	Events    int               `json:"events"`
	Malformed int               `json:"malformed"`
	Filters   model.FilterState `json:"filters"`
	TZ        timefmt.Mode      `json:"tz"`
	Status    *session.Status   `json:"status"`
}

// status reports the current state; last overrides the stored status when
// the caller has a fresher one.
func (s *Server) status(last *session.Status) statusResponse {
	st := s.ctrl.Snapshot()
	resp := statusResponse{
		Source:    st.Source,
		Events:    len(st.Records),
		Malformed: len(st.Malformed),
		Filters:   st.Filters,
		TZ:        st.TZ,
		Status:    st.Status,
	}
	if last != nil {
		resp.Status = last
	}
	return resp
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status(nil))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
