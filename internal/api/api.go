// Package api is the supervisor's control plane: an HTTP surface a host UI
// or the supervisorctl CLI drives to inspect and manage the server fleet.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/elicitation"
	"github.com/mcp-scooter/supervisor/internal/events"
	"github.com/mcp-scooter/supervisor/internal/logger"
	"github.com/mcp-scooter/supervisor/internal/mcpclient"
	"github.com/mcp-scooter/supervisor/internal/supervisor"
)

// Server wires the supervisor core to an HTTP handler.
type Server struct {
	Supervisor *supervisor.Supervisor
	Bridge     *elicitation.Bridge
	Bus        *events.Bus
	ConfigPath string

	mux *http.ServeMux
}

// NewServer constructs a Server with all routes registered.
func NewServer(sv *supervisor.Supervisor, bridge *elicitation.Bridge, bus *events.Bus, configPath string) *Server {
	s := &Server{Supervisor: sv, Bridge: bridge, Bus: bus, ConfigPath: configPath}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/servers", s.handleListServers)
	s.mux.HandleFunc("POST /api/servers/{name}/restart", s.handleRestartServer)
	s.mux.HandleFunc("POST /api/servers/restart-active", s.handleRestartActive)
	s.mux.HandleFunc("POST /api/config/servers", s.handleAddServerConfig)
	s.mux.HandleFunc("POST /api/shutdown", s.handleShutdown)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/elicitation/{id}/reply", s.handleElicitationReply)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Supervisor.ListStatus())
}

func (s *Server) handleRestartServer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.Supervisor.RestartServer(r.Context(), name); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (s *Server) handleRestartActive(w http.ResponseWriter, r *http.Request) {
	s.Supervisor.RestartActiveServers(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

type addServerRequest struct {
	Name   string              `json:"name"`
	Config config.ServerConfig `json:"config"`
}

func (s *Server) handleAddServerConfig(w http.ResponseWriter, r *http.Request) {
	var req addServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	if err := config.AddServer(s.ConfigPath, req.Name, req.Config); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if req.Config.IsActive() {
		if err := s.Supervisor.AddServer(r.Context(), req.Name, req.Config); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

type shutdownRequest struct {
	Context string `json:"context"`
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	var req shutdownRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	sc := supervisor.AppExit
	switch req.Context {
	case "manual_restart":
		sc = supervisor.ManualRestart
	case "factory_reset":
		sc = supervisor.FactoryReset
	}

	if err := s.Supervisor.StopAll(r.Context(), sc); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	topics := []string{events.TopicServerUpdate, events.TopicElicitationCreate, events.TopicMaxRestarts}
	type subscription struct {
		ch          <-chan events.Event
		unsubscribe func()
	}
	subs := make([]subscription, 0, len(topics))
	for _, topic := range topics {
		ch, unsub := s.Bus.Subscribe(topic)
		subs = append(subs, subscription{ch: ch, unsubscribe: unsub})
	}
	defer func() {
		for _, sub := range subs {
			sub.unsubscribe()
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	merged := make(chan events.Event)
	for _, sub := range subs {
		go func(ch <-chan events.Event) {
			for ev := range ch {
				select {
				case merged <- ev:
				case <-r.Context().Done():
					return
				}
			}
		}(sub.ch)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-merged:
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data)
			flusher.Flush()
		}
	}
}

type elicitationReplyRequest struct {
	Action  mcpclient.ElicitationAction `json:"action"`
	Content map[string]interface{}      `json:"content,omitempty"`
}

func (s *Server) handleElicitationReply(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req elicitationReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result := mcpclient.ElicitationResult{Action: req.Action, Content: req.Content}
	if err := s.Bridge.Reply(id, result); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logger.GetLogs())
}

// ListenAndServe starts the control server on addr with a 5-second limit on
// reading request headers.
func (s *Server) ListenAndServe(addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return httpServer.ListenAndServe()
}
