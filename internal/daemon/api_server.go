package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hlsforge/internal/api"
	"hlsforge/internal/config"
	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
)

type apiServer struct {
	cfg    *config.Config
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	return &apiServer{
		cfg:    cfg,
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(s.token, h))
	}

	protected("POST /api/uploads", s.handleUpload)
	protected("GET /api/jobs", s.handleListJobs)
	protected("GET /api/jobs/{name}", s.handleGetJob)
	protected("POST /api/jobs/{name}/retry", s.handleRetryJob)
	protected("DELETE /api/jobs/{name}", s.handleRemoveJob)
	protected("GET /api/status", s.handleStatus)

	// Paths used by the web client before the /api routes existed.
	protected("POST /medias/upload-video-hls", s.handleUpload)
	protected("GET /medias/video-status/{name}", s.handleGetJob)

	mux.Handle("GET "+config.PublicPrefix, newStaticHandler(s.cfg.Paths.OutputDir))
	if s.daemon.metrics != nil {
		mux.Handle("GET /metrics", s.daemon.metrics.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s.withRequestID(mux)
}

// withRequestID tags every request with a correlation id that is echoed back
// in X-Request-ID and attached to log lines written while serving it.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		// No read or write timeout: upload bodies may legitimately take minutes.
		IdleTimeout: 60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "uploads and status queries are unavailable"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, status.APIStatus())
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part), "")
				return
			}
			statuses = append(statuses, status)
		}
	}
	records, err := s.daemon.ListJobs(r.Context(), statuses)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jobs := api.FromRecords(records)
	for i := range jobs {
		jobs[i] = api.PublicJob(jobs[i])
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	record, err := s.daemon.JobStatus(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobResponse{Job: api.PublicJob(api.FromRecord(record))})
}

func (s *apiServer) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	record, err := s.daemon.Retry(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, api.JobResponse{Job: api.PublicJob(api.FromRecord(record))})
}

func (s *apiServer) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	purge, err := parseBoolParam(r.URL.Query().Get("purge_source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "purge_source must be true or false", "")
		return
	}
	record, purged, err := s.daemon.RemoveJob(r.Context(), r.PathValue("name"), purge)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.RemoveJobResponse{Job: api.PublicJob(api.FromRecord(record)), SourcePurged: purged})
}

func parseBoolParam(raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// writeDomainError maps err through api.ErrorStatus and logs server-side
// failures with the request's correlation id.
func (s *apiServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := api.ErrorStatus(err)
	if code >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	writeError(w, code, message, services.Details(err).Hint)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, api.ErrorResponse{Error: message, Hint: hint})
}

// APIStatus converts the status for HTTP and IPC transport.
func (status Status) APIStatus() api.DaemonStatus {
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	checks := make([]api.CheckResult, len(status.Checks))
	for i, check := range status.Checks {
		checks[i] = api.CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail}
	}
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StoreDriver:  status.StoreDriver,
		StorePath:    status.StorePath,
		LockFilePath: status.LockFilePath,
		APIAddress:   status.APIAddress,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: deps,
		Checks:       checks,
	}
}
