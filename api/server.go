package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/wricardo/chess-relay/game/service"
	"github.com/wricardo/chess-relay/transport/websocket"
)

// SessionViewer is the read-only view of the coordinator used by the REST API
type SessionViewer interface {
	Snapshot(sessionID string) (*service.SessionInfo, error)
	Sessions() []*service.SessionInfo
}

// ConnectionCounter reports the number of live websocket connections
type ConnectionCounter interface {
	Count() int
}

// MCPHandler answers one MCP JSON-RPC message
type MCPHandler interface {
	HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

// Options wires the server's collaborators. Sessions is required; a nil
// WebSocket, MCP or Metrics handler leaves the corresponding route unmounted.
type Options struct {
	Sessions    SessionViewer
	Connections ConnectionCounter
	WebSocket   http.Handler
	MCP         MCPHandler
	Metrics     http.Handler
	StaticDir   string
	Logger      *zap.Logger
}

// Server represents the HTTP surface of the relay
type Server struct {
	sessions    SessionViewer
	connections ConnectionCounter
	ws          http.Handler
	mcp         MCPHandler
	metrics     http.Handler
	staticDir   string
	logger      *zap.Logger
	router      *mux.Router
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		sessions:    opts.Sessions,
		connections: opts.Connections,
		ws:          opts.WebSocket,
		mcp:         opts.MCP,
		metrics:     opts.Metrics,
		staticDir:   opts.StaticDir,
		logger:      logger,
		router:      mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
		// browser clients connect to the bare host
		s.router.Path("/").MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
			return websocket.IsUpgrade(r)
		}).Handler(s.ws)
	}

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	if s.mcp != nil {
		s.router.HandleFunc("/mcp", s.handleMCP).Methods("POST")
	}

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connections := 0
	if s.connections != nil {
		connections = s.connections.Count()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"sessions":    len(s.sessions.Sessions()),
		"connections": connections,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.Sessions()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.sessions.Snapshot(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request")
		return
	}
	defer r.Body.Close()

	response := s.mcp.HandleMessage(r.Context(), body)
	if response == nil {
		// notifications have no reply
		w.WriteHeader(http.StatusAccepted)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// upgrades need the original writer to hijack the connection
		if websocket.IsUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := s.logger.Debug
		if rec.status >= http.StatusInternalServerError {
			log = s.logger.Warn
		}
		log("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
