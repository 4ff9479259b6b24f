// Package api exposes the snapshot filter's controls over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/bryanchriswhite/SnapshotFilter/internal/output"
	"github.com/bryanchriswhite/SnapshotFilter/internal/snapshot"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router     *mux.Router
	filter     *snapshot.Filter
	preview    *output.MJPEGOutput
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// TriggerRequest is the optional body of POST /api/trigger
type TriggerRequest struct {
	Trigger *bool `json:"trigger"`
}

// SettingsUpdate is the body of PUT /api/snapshot; absent fields are kept
type SettingsUpdate = snapshot.SettingsUpdate

// StatusResponse is the body of GET /api/stats
type StatusResponse struct {
	Filter   snapshot.Stats        `json:"filter"`
	Format   snapshot.StreamFormat `json:"format"`
	Settings snapshot.Settings     `json:"settings"`
	Preview  *output.PreviewStats  `json:"preview,omitempty"`
}

// NewServer creates a new API server. preview may be nil when the MJPEG
// preview is disabled.
func NewServer(filter *snapshot.Filter, preview *output.MJPEGOutput) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		filter:  filter,
		preview: preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Capture control
	api.HandleFunc("/trigger", s.handleTrigger).Methods("POST")
	api.HandleFunc("/snapshot", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/snapshot", s.handleUpdateSettings).Methods("PUT")

	// Diagnostics
	api.HandleFunc("/format", s.handleGetFormat).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.preview != nil {
		s.router.HandleFunc("/stream", s.preview.GetHTTPHandler()).Methods("GET")
		s.router.HandleFunc("/stream/stats", s.preview.GetStatsHandler()).Methods("GET")
	}

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves the API until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}

	logger.WithComponent("api").Info().Str("addr", addr).Msgf("Starting server on http://localhost%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HTTP Handlers

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	armed := true
	if req.Trigger != nil {
		armed = *req.Trigger
	}
	s.filter.SetTrigger(armed)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"state":  s.filter.State(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.filter.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	settings, err := s.filter.Update(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	logger.WithComponent("api").Info().
		Int("frame_delay", settings.FrameDelay).
		Str("file_type", string(settings.FileType)).
		Str("location", settings.Location).
		Msg("Snapshot settings updated")

	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.filter.Format())
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Filter:   s.filter.Stats(),
		Format:   s.filter.Format(),
		Settings: s.filter.Settings(),
	}
	if s.preview != nil {
		stats := s.preview.Stats()
		resp.Preview = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents streams capture events over a websocket until the client
// goes away
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	// subscribe before the handshake completes so no event is missed
	events := s.filter.Subscribe()
	defer s.filter.Unsubscribe(events)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Reader goroutine notices the close frame / disconnect
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML(s.preview != nil)))
}
