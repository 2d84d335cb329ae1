package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"airlift/internal/config"
	"airlift/internal/dispatch"
	"airlift/internal/logging"
	"airlift/internal/services"
	"airlift/internal/status"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/status/summary", srv.handleStatusSummary)
	mux.HandleFunc("/api/dispatch", srv.handleDispatch)
	mux.HandleFunc("/api/secrets/health", srv.handleSecretsHealth)
	mux.HandleFunc("/api/secrets/", srv.handleSecrets)
	mux.HandleFunc("/healthz", srv.handleHealthz)
	srv.handler = mux
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	// A fresh http.Server per start; a shut-down server cannot serve again.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleStatusSummary(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snapshot := s.daemon.aggregator.Snapshot(r.Context())
		s.writeJSON(w, http.StatusOK, snapshot)
	case http.MethodPost:
		var summary status.Summary
		if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid summary payload")
			return
		}
		if err := s.daemon.RecordSummary(summary); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid dispatch payload")
		return
	}
	if strings.TrimSpace(req.AssetID) == "" {
		s.writeError(w, http.StatusBadRequest, "assetId is required")
		return
	}
	if req.AccountID <= 0 {
		req.AccountID = 1
	}

	ctx := services.WithAssetID(r.Context(), req.AssetID)
	outcomes := s.daemon.Dispatch(ctx, req)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"assetId":  req.AssetID,
		"outcomes": outcomes,
	})
}

func (s *apiServer) handleSecretsHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.secrets.Health(r.Context()))
}

// handleSecrets serves /api/secrets/{scope} and /api/secrets/{scope}/{key}.
// Writes are gated by the admin token whenever the vault backend is active.
func (s *apiServer) handleSecrets(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/secrets/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleSecretScope(w, r, parts[0])
	case len(parts) == 2:
		s.handleSecretKey(w, r, parts[0], parts[1])
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleSecretScope(w http.ResponseWriter, r *http.Request, scope string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	keys, err := s.daemon.secrets.Keys(r.Context(), scope)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "scope not found")
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"scope": scope, "keys": keys})
}

func (s *apiServer) handleSecretKey(w http.ResponseWriter, r *http.Request, scope, key string) {
	switch r.Method {
	case http.MethodGet:
		value, found, err := s.daemon.secrets.Get(r.Context(), scope, key)
		if err != nil {
			if errors.Is(err, services.ErrUnavailable) {
				s.writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !found {
			s.writeError(w, http.StatusNotFound, "secret not found")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"scope": scope, "key": key, "value": value})
	case http.MethodPost, http.MethodPut:
		if !s.authorizeWrite(w, r) {
			return
		}
		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid secret payload")
			return
		}
		if err := s.daemon.secrets.Set(r.Context(), scope, key, body.Value); err != nil {
			if errors.Is(err, services.ErrUnavailable) {
				s.writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// authorizeWrite enforces the X-Admin-Token gate for secret writes. Only the
// vault backend requires it; local credential files are already protected by
// filesystem permissions.
func (s *apiServer) authorizeWrite(w http.ResponseWriter, r *http.Request) bool {
	if s.daemon.cfg.Secrets.Backend != config.BackendVault {
		return true
	}
	token := strings.TrimSpace(s.daemon.cfg.Paths.AdminToken)
	if token == "" {
		s.writeError(w, http.StatusForbidden, "secret writes disabled: no admin token configured")
		return false
	}
	if r.Header.Get("X-Admin-Token") != token {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(slog.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
