package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/engine"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/history"
	"github.com/siriussoftware2024/controlinvernadero/pkg/persistence"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// maxBodySize bounds request bodies of the JSON API.
const maxBodySize = 64 << 10

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Listen  string
	Version string

	// Engine is the running reconciliation engine.
	Engine *engine.Engine

	// Connections persists operator-edited connection settings.
	Connections *persistence.ConnectionStore

	// Active are the connection settings the engine was started with.
	Active persistence.ConnectionSettings

	// History serves /api/v1/history when set.
	History *history.Store

	// ProxyTarget enables the /device/ forwarding proxy when set.
	ProxyTarget string

	Logger *slog.Logger
}

// Server is the HTTP and websocket front of the dashboard.
type Server struct {
	config ServerConfig
	mux    *http.ServeMux
	server *http.Server
	hub    *Hub
	logger *slog.Logger
}

// NewServer creates a new server with the given configuration.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if cfg.Connections == nil {
		return nil, errors.New("server requires a connection store")
	}

	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
		hub:    NewHub(cfg.Logger),
		logger: cfg.Logger,
	}
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() error {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/state", s.handleState)
	s.mux.HandleFunc("GET /api/v1/fields", s.handleFields)
	s.mux.HandleFunc("POST /api/v1/fields/{key}", s.handleWrite)
	s.mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)

	s.mux.HandleFunc("GET /api/v1/connection", s.handleGetConnection)
	s.mux.HandleFunc("PUT /api/v1/connection", s.handlePutConnection)
	s.mux.HandleFunc("DELETE /api/v1/connection", s.handleDeleteConnection)
	s.mux.HandleFunc("POST /api/v1/connection/test", s.handleTestConnection)

	s.mux.HandleFunc("GET /api/v1/history/{key}", s.handleHistory)
	s.mux.HandleFunc("GET /api/v1/ws", s.handleWS)

	if s.config.ProxyTarget != "" {
		proxy, err := newDeviceProxy(s.config.ProxyTarget, s.logger)
		if err != nil {
			return err
		}
		s.mux.Handle(ProxyPrefix+"/", proxy)
	}
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stopPush := s.startPush(ctx)
	defer stopPush()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()
	if s.logger != nil {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startPush runs the websocket hub and forwards store notifications to it.
func (s *Server) startPush(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		s.hub.Run(ctx)
		close(done)
	}()

	unsubscribe := s.config.Engine.Subscribe(s.publish)
	return func() {
		unsubscribe()
		cancel()
		<-done
	}
}

// publish runs on the engine event loop.
func (s *Server) publish(n state.Notification) {
	msg := wsMessage{Type: n.Type.String()}
	switch n.Type {
	case state.NotifyConnection:
		conn := n.Connection
		msg.Connection = &conn
	default:
		fv := newFieldView(n.State, s.config.Engine.Store().Values())
		msg.Field = &fv
		msg.Previous = n.Previous
		if n.Err != nil {
			msg.Error = n.Err.Error()
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to encode notification", "error", err)
		}
		return
	}
	s.hub.Publish(data)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.config.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
		"engine":  s.config.Engine.State().String(),
	})
}

// handleState returns every field and the connection status.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateView())
}

// handleFields lists the field catalogue.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	out := make([]fieldInfo, 0, len(field.All()))
	for _, id := range field.All() {
		meta, _ := field.Lookup(id)
		out = append(out, fieldInfo{
			Key:      meta.Key,
			Name:     meta.Name,
			Kind:     meta.Kind.String(),
			Unit:     meta.Unit,
			Writable: meta.Kind.Writable(),
			Min:      meta.Min,
			Max:      meta.Max,
			Step:     meta.Step,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleWrite issues a write. The response is sent once the controller
// answered or the command failed.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	id, err := field.Parse(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req writeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, werr := s.config.Engine.IssueWrite(r.Context(), id, req.Value)
	if errors.Is(werr, engine.ErrNotStarted) {
		writeError(w, http.StatusServiceUnavailable, werr)
		return
	}
	// The ack or failure is queued behind the optimistic value; wait for it
	// so the response carries the reconciled state.
	if outcome != dispatch.OutcomeInvalid {
		_ = s.config.Engine.Flush(r.Context())
	}

	fs, _ := s.config.Engine.Store().Get(id)
	resp := writeResponse{
		Outcome: outcome,
		Field:   newFieldView(fs, s.config.Engine.Store().Values()),
	}
	if werr != nil {
		resp.Error = werr.Error()
	}
	writeJSON(w, outcomeStatus(outcome), resp)
}

// handleRefresh polls the controller once.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Engine.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	_ = s.config.Engine.Flush(r.Context())
	writeJSON(w, http.StatusOK, s.stateView())
}

// handleGetConnection returns the saved and the active connection settings.
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	saved, err := s.config.Connections.LoadOrDefault()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, connectionResponse{
		Saved:  saved,
		Active: s.config.Active,
		Status: s.config.Engine.Connection(),
	})
}

// handlePutConnection validates and saves connection settings. They take
// effect on the next start.
func (s *Server) handlePutConnection(w http.ResponseWriter, r *http.Request) {
	settings := persistence.DefaultConnection()
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings.SavedAt = time.Time{}
	if err := s.config.Connections.Save(&settings); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, persistence.ErrInvalidSettings) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	if s.logger != nil {
		s.logger.Info("connection settings saved", "address", settings.Address(), "timeout_ms", settings.TimeoutMs)
	}
	writeJSON(w, http.StatusOK, connectionResponse{
		Saved:           settings,
		Active:          s.config.Active,
		Status:          s.config.Engine.Connection(),
		RestartRequired: settings.Address() != s.config.Active.Address() || settings.TimeoutMs != s.config.Active.TimeoutMs,
	})
}

// handleDeleteConnection restores the default settings.
func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Connections.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTestConnection fetches the state once from the given settings, or
// from the active ones if the body is empty.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	settings := s.config.Active
	if r.ContentLength != 0 {
		if err := decodeBody(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	client, err := device.NewClient(device.Config{
		Host:    settings.Host,
		Port:    settings.Port,
		Timeout: settings.Timeout(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	err = client.Ping(r.Context())
	resp := testResponse{
		OK:        err == nil,
		Address:   settings.Address(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory returns recorded values of one field.
// Query parameters: since, until (RFC 3339) and limit.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.config.History == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	id, err := field.Parse(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	q := r.URL.Query()
	since, err := parseTimeParam(q.Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	until, err := parseTimeParam(q.Get("until"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
	}

	points, err := s.config.History.Query(id, since, until, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if points == nil {
		points = []history.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}

// handleWS upgrades to a websocket that first receives the full state and
// then every store notification.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, func() []byte {
		sv := s.stateView()
		hello, err := json.Marshal(wsMessage{Type: "state", State: &sv})
		if err != nil {
			if s.logger != nil {
				s.logger.Error("encode websocket state", "error", err)
			}
			return nil
		}
		return hello
	})
}

func (s *Server) stateView() stateView {
	store := s.config.Engine.Store()
	values := store.Values()
	fields := store.All()

	out := stateView{
		Fields:     make([]fieldView, 0, len(fields)),
		Connection: store.Connection(),
	}
	for _, fs := range fields {
		out.Fields = append(out.Fields, newFieldView(fs, values))
	}
	return out
}

func outcomeStatus(o dispatch.Outcome) int {
	switch o {
	case dispatch.OutcomeAcknowledged:
		return http.StatusOK
	case dispatch.OutcomeInvalid:
		return http.StatusBadRequest
	case dispatch.OutcomeTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", v, err)
	}
	return t, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
