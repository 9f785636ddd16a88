// Package http exposes the probe analysis over a small JSON API:
//
//	POST /inspect   analyse the JSON document in the body
//	GET  /events    server-sent diffs between inspections of one session
//	GET  /settings  effective settings
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus metrics, when a handler is configured
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/eapache/queue"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultMaxBody bounds the size of an inspected document.
const DefaultMaxBody = 4 << 20

// DefaultMaxSessions bounds how many session snapshots are kept for diffing.
const DefaultMaxSessions = 1024

// Inspector is what the API needs from the probe library.
type Inspector interface {
	Analyse(v any, name string) *probe.Inspection
	Settings() config.Settings
}

var _ Inspector = (*probe.Inspector)(nil)

// InspectResponse is the body returned by POST /inspect.
type InspectResponse struct {
	Root        domain.Snapshot `json:"root" yaml:"root"`
	Diagnostics []string        `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Stats       *domain.Stats   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Broken      bool            `json:"broken,omitempty" yaml:"broken,omitempty"`
}

// Server serves the inspection API.
type Server struct {
	Inspector Inspector
	Streams   *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	maxBody int64

	mu          sync.Mutex
	last        map[string]domain.Snapshot // SessionID -> previous snapshot
	order       *queue.Queue               // session IDs, oldest first
	maxSessions int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxBody bounds the request body in bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithMaxSessions bounds the session snapshots kept for diffing. The oldest
// session is forgotten first; its next inspection is diffed against nothing.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// NewServer creates a Server.
func NewServer(inspector Inspector, opts ...Option) *Server {
	s := &Server{
		Inspector:   inspector,
		Streams:     NewStreamManager(),
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxBody:     DefaultMaxBody,
		last:        make(map[string]domain.Snapshot),
		order:       queue.New(),
		maxSessions: DefaultMaxSessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the inspector.
func NewHandler(inspector Inspector, opts ...Option) http.Handler {
	return NewServer(inspector, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/inspect", s.Inspect)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/settings", s.GetSettings)
	r.Get("/healthz", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Inspect handles the POST /inspect request.
// Query parameters: name (root label), budget (node budget), stats=true,
// format=yaml, session (broadcast the diff to /events subscribers).
func (s *Server) Inspect(w http.ResponseWriter, r *http.Request) {
	var doc any
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Inspect: Invalid request body", "error", err)
		return
	}

	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = "document"
	}
	budget := 0
	if raw := q.Get("budget"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid budget", http.StatusBadRequest)
			return
		}
		budget = n
	}

	in := s.Inspector.Analyse(doc, name)
	resp := InspectResponse{Root: in.Snapshot(budget)}
	if q.Get("stats") == "true" {
		st := in.Stats(budget)
		resp.Stats = &st
	}
	for _, err := range in.Diagnostics() {
		resp.Diagnostics = append(resp.Diagnostics, err.Error())
	}
	resp.Broken = in.Broken()

	if session := q.Get("session"); session != "" {
		s.publish(session, resp.Root)
	}

	s.logger.Debug("Inspect: analysed document", "name", name, "diagnostics", len(resp.Diagnostics))
	s.write(w, r, resp)
}

// publish broadcasts the difference to the previous snapshot of the session.
func (s *Server) publish(session string, snap domain.Snapshot) {
	s.mu.Lock()
	prev, ok := s.last[session]
	s.last[session] = snap
	if !ok {
		s.order.Add(session)
		for s.order.Length() > s.maxSessions {
			delete(s.last, s.order.Remove().(string))
		}
	}
	s.mu.Unlock()

	var diff *domain.SnapshotDiff
	if ok {
		diff = domain.Diff(&prev, &snap)
	} else {
		diff = domain.Diff(nil, &snap)
	}
	if diff == nil {
		s.logger.Debug("Inspect: No diff calculated", "session_id", session)
		return
	}
	if bytes, err := json.Marshal(diff); err == nil {
		s.Streams.Broadcast(session, string(bytes))
	}
}

// GetSettings handles the GET /settings request.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, s.Inspector.Settings())
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(probe.Version),
	}
	s.write(w, r, resp)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, v any) {
	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml")
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			s.logger.Error("Response encode failed", "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// SubscribeEvents handles the GET /events?session=ID request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
