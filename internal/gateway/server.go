// Package gateway exposes the aggregated dashboard state over HTTP and
// pushes change events to WebSocket subscribers.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/dashboard"
	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/logging"
	"github.com/soyeahso/lobeboard/internal/probe"
	"github.com/soyeahso/lobeboard/internal/version"
)

// Server serves the dashboard API and the event stream.
type Server struct {
	cfg      config.GatewayConfig
	log      *logging.Logger
	ctrl     *dashboard.Controller
	probes   *probe.Aggregator
	activity *probe.ActivityTracker
	clients  *ClientRegistry
	eventSeq atomic.Int64

	httpServer  *http.Server
	upgrader    websocket.Upgrader
	unsubscribe func()
}

// NewServer creates a gateway over the composed dashboard.
func NewServer(cfg config.GatewayConfig, ctrl *dashboard.Controller, probes *probe.Aggregator, activity *probe.ActivityTracker, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		cfg:      cfg,
		log:      log.Sub("gateway"),
		ctrl:     ctrl,
		probes:   probes,
		activity: activity,
		clients:  NewClientRegistry(log.Sub("gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start begins serving. It returns once the listener is bound; the accept
// loop runs in a background goroutine until Shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/probes", s.handleProbes)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.bindHost(), s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway listen on %s: %w", addr, err)
	}

	// Probe-state changes fan out to every connected view.
	s.unsubscribe = s.probes.Subscribe(func(probes []domain.Probe) {
		s.broadcast("probes", probes)
	})

	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("gateway server exited")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("gateway listening")
	return nil
}

// Shutdown stops the server and closes all client connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.clients.CloseAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// BroadcastSummary pushes a fresh federation summary to all subscribers.
func (s *Server) BroadcastSummary(summary domain.FederationSummary) {
	s.broadcast("summary", summary)
}

func (s *Server) broadcast(event string, payload any) {
	s.clients.Broadcast(Event{
		Type:    event,
		Seq:     s.eventSeq.Add(1),
		Payload: payload,
	})
}

func (s *Server) bindHost() string {
	switch s.cfg.Bind {
	case "lan":
		return "0.0.0.0"
	case "custom":
		return s.cfg.Host
	default:
		return "127.0.0.1"
	}
}

// statusResponse is the aggregate view served at /api/status.
type statusResponse struct {
	Version string                   `json:"version"`
	Label   string                   `json:"label"`
	Summary domain.FederationSummary `json:"summary"`
	Probes  probe.Summary            `json:"probes"`
	Clients int                      `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Version: version.Version,
		Label:   s.ctrl.HealthLabel(),
		Summary: s.activity.Summary(),
		Probes:  s.probes.Summary(),
		Clients: s.clients.Count(),
	})
}

func (s *Server) handleProbes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.probes.Probes())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.activity.Agents())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.activity.Messages())
}

type sendMessageRequest struct {
	Content string `json:"content"`
	ToAgent string `json:"toAgent,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sent, msgs := s.ctrl.SendMessage(r.Context(), req.Content, req.ToAgent)
	status := http.StatusOK
	if !sent {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"sent": sent, "messages": msgs})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn)
	s.clients.Add(client)

	// Seed the new subscriber with current state so it never starts blank.
	client.Send(Event{Type: "summary", Seq: s.eventSeq.Add(1), Payload: s.activity.Summary()})
	client.Send(Event{Type: "probes", Seq: s.eventSeq.Add(1), Payload: s.probes.Probes()})

	go func() {
		defer func() {
			client.Close()
			s.clients.Remove(client.ConnID)
		}()
		for {
			// The stream is push-only; reads only detect disconnect.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
