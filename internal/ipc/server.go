package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"hlsforge/internal/api"
	"hlsforge/internal/daemon"
	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		_ = s.listener.Close()
	}()
}

// Close stops the server and removes the socket file. In-flight requests
// finish once their clients disconnect.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, parsed)
	}
	return statuses, nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).APIStatus()
	return nil
}

func (s *service) AddFile(req AddFileRequest, resp *AddFileResponse) error {
	record, err := s.daemon.AddFile(s.ctx, req.SourcePath)
	if err != nil {
		return err
	}
	resp.Job = api.FromRecord(record)
	return nil
}

func (s *service) JobStatus(req JobStatusRequest, resp *JobStatusResponse) error {
	record, err := s.daemon.JobStatus(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Job = api.FromRecord(record)
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		return err
	}
	records, err := s.daemon.ListJobs(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromRecords(records)
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	record, err := s.daemon.Retry(s.ctx, req.Name)
	if err != nil {
		return err
	}
	s.logger.Info("job retry requested via IPC",
		logging.String(logging.FieldEventType, "job_retry_requested"),
		logging.String(logging.FieldJobName, record.Name),
		logging.Int("attempt", record.Attempt))
	resp.Job = api.FromRecord(record)
	return nil
}

func (s *service) RequeueOrphans(_ RequeueOrphansRequest, resp *RequeueOrphansResponse) error {
	count, err := s.daemon.RequeueOrphans(s.ctx)
	if err != nil {
		return err
	}
	resp.Queued = count
	return nil
}

func (s *service) Clear(req ClearRequest, resp *ClearResponse) error {
	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		return err
	}
	result, err := s.daemon.ClearJobs(s.ctx, statuses, req.PurgeSources)
	if err != nil {
		return err
	}
	resp.Removed = make([]string, 0, len(result.Removed))
	for _, record := range result.Removed {
		resp.Removed = append(resp.Removed, record.Name)
	}
	resp.SourcesPurged = result.SourcesPurged
	s.logger.Info("records cleared via IPC",
		logging.String(logging.FieldEventType, "records_cleared"),
		logging.Int("removed", len(resp.Removed)),
		logging.Int("sources_purged", resp.SourcesPurged))
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	record, purged, err := s.daemon.RemoveJob(s.ctx, req.Name, req.PurgeSource)
	if err != nil {
		return err
	}
	resp.Job = api.FromRecord(record)
	resp.SourcePurged = purged
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	*resp = QueueHealthResponse(health)
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	resp.Driver = health.Driver
	resp.Location = health.Location
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = health.ColumnsPresent
	resp.MissingColumns = health.MissingColumns
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalItems = health.TotalItems
	resp.Error = health.Error
	if err != nil && resp.Error == "" {
		resp.Error = err.Error()
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
