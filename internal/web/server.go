// Package web provides the HTTP interface for the feeder daemon: the
// schedule form, a JSON status endpoint, a JSON schedule API and metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sweeney/feeder/internal/metrics"
	"github.com/sweeney/feeder/internal/schedule"
	"github.com/sweeney/feeder/internal/status"
)

// SchedulePort reads and updates the shared schedule.
type SchedulePort interface {
	DisplaySchedule() (hour24, minute int)
	ApplySchedule(hour24, minute int) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics mounts /metrics and counts schedule updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server serves the feeder UI and API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	port       SchedulePort
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New creates a Server that reads state from tracker and applies schedule
// changes through port.
func New(addr string, tracker *status.Tracker, port SchedulePort, opts ...Option) *Server {
	s := &Server{tracker: tracker, port: port, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleForm)
	r.Get("/index.html", s.handleIndex)
	r.Post("/index.html", s.handleForm)
	r.Get("/index.json", s.handleJSON)

	r.Get("/api/schedule", s.handleGetSchedule)
	r.Put("/api/schedule", s.handlePutSchedule)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

// handleForm accepts the 12-hour form fields hour, minute and ampm.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	hour12, errH := strconv.Atoi(r.PostForm.Get("hour"))
	minute, errM := strconv.Atoi(r.PostForm.Get("minute"))
	if errH != nil || errM != nil {
		s.observeUpdate(errors.New("unparsable form"))
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	sched, err := schedule.From12Hour(hour12, minute, r.PostForm.Get("ampm"))
	if err == nil {
		err = s.port.ApplySchedule(sched.Hour, sched.Minute)
	}
	s.observeUpdate(err)
	if err != nil {
		s.log.Info("schedule rejected", zap.String("source", "http"), zap.Error(err))
		http.Error(w, "Invalid time entered", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	h, m := s.port.DisplaySchedule()
	writeJSON(w, http.StatusOK, schedule.Schedule{Hour: h, Minute: m})
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Hour   *int `json:"hour"`
		Minute *int `json:"minute"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&body); err != nil || body.Hour == nil || body.Minute == nil {
		s.observeUpdate(errors.New("bad body"))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must be {\"hour\":H,\"minute\":M}"})
		return
	}

	err := s.port.ApplySchedule(*body.Hour, *body.Minute)
	s.observeUpdate(err)

	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		h, m := s.port.DisplaySchedule()
		writeJSON(w, http.StatusOK, schedule.Schedule{Hour: h, Minute: m})
	}
}

func (s *Server) observeUpdate(err error) {
	if s.metrics != nil {
		s.metrics.ObserveUpdate("http", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
