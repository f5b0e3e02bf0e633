package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultlens/internal/config"
	"vaultlens/internal/history"
	"vaultlens/internal/logging"
	"vaultlens/internal/supervisor"
)

// Controller is the worker command target.
type Controller interface {
	Start(ctx context.Context, vaultPath string) error
	Stop(ctx context.Context) error
	Status() supervisor.Status
}

// HistoryReader lists recorded runs.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

const maxBodyBytes = 64 << 10

// Server is the HTTP command surface.
type Server struct {
	bind      string
	sessionID string
	logger    *slog.Logger
	ctrl      Controller
	runs      HistoryReader

	listener net.Listener
	server   *http.Server
}

// New builds the server from config. It returns nil when the surface is disabled.
func New(cfg *config.Config, ctrl Controller, runs HistoryReader, sessionID string, logger *slog.Logger) *Server {
	if cfg == nil || ctrl == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &Server{
		bind:      bind,
		sessionID: sessionID,
		logger:    logging.NewComponentLogger(logger, "http-api"),
		ctrl:      ctrl,
		runs:      runs,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A replacing start can spend the whole grace period stopping the old worker.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/worker/start", s.handleStart)
	mux.HandleFunc("POST /api/worker/stop", s.handleStop)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	return authMiddleware(token, mux)
}

// Start begins serving until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight commands.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestContext(r *http.Request) context.Context {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if id == "" {
		id = uuid.NewString()
	}
	// A client disconnect must not interrupt a stop in progress.
	return logging.WithCorrelationID(context.WithoutCancel(r.Context()), id)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ctrl.Start(s.requestContext(r), req.VaultPath); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, CommandResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{OK: true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(s.requestContext(r)); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, CommandResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{OK: true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.ctrl.Status()
	payload := StatusResponse{
		HostPID:   os.Getpid(),
		SessionID: s.sessionID,
		Worker: WorkerStatus{
			Running: st.Running,
			Alive:   st.Alive,
			RunID:   st.RunID,
			PID:     st.PID,
			Vault:   st.Vault,
			Script:  st.Script,
			Exit:    st.Exit,
		},
	}
	if !st.StartedAt.IsZero() {
		payload.Worker.StartedAt = st.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeJSON(w, http.StatusOK, HistoryResponse{Runs: []RunEntry{}})
		return
	}
	limit := 20
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries := make([]RunEntry, 0, len(runs))
	for _, run := range runs {
		entry := RunEntry{
			RunID:     run.RunID,
			PID:       run.PID,
			Vault:     run.Vault,
			Status:    string(run.Status),
			Outcome:   run.Outcome(),
			Reason:    run.Reason,
			ElapsedMS: run.Elapsed.Milliseconds(),
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		}
		if run.EndedAt != nil {
			entry.EndedAt = run.EndedAt.UTC().Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Runs: entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
