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
	"time"

	"github.com/google/uuid"

	"vaultlens/internal/logging"
	"vaultlens/internal/supervisor"
)

// ServiceName is the RPC service prefix.
const ServiceName = "VaultLens"

// Controller is the worker command target.
type Controller interface {
	Start(ctx context.Context, vaultPath string) error
	Stop(ctx context.Context) error
	Status() supervisor.Status
}

// HostInfo supplies the host-level part of status responses.
type HostInfo func() StatusResponse

// Server exposes worker control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path. onClose is
// invoked when a client sends Close and may be nil.
func NewServer(ctx context.Context, path string, ctrl Controller, info HostInfo, onClose func(), logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires controller")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{ctrl: ctrl, info: info, onClose: onClose, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
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
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting RPC connections until the server is closed.
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
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the host if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open client connections, and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	ctrl    Controller
	info    HostInfo
	onClose func()
	logger  *slog.Logger
	ctx     context.Context
}

func (s *service) requestContext() context.Context {
	// Commands outlive a closing server so a stop in flight is never cut short.
	return logging.WithCorrelationID(context.WithoutCancel(s.ctx), uuid.NewString())
}

func (s *service) StartPython(req StartPythonRequest, resp *StartPythonResponse) error {
	ctx := s.requestContext()
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("start_python requested", logging.String(logging.FieldVault, req.VaultPath))
	if err := s.ctrl.Start(ctx, req.VaultPath); err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.OK = true
	return nil
}

func (s *service) StopPython(_ StopPythonRequest, resp *StopPythonResponse) error {
	ctx := s.requestContext()
	logging.WithContext(ctx, s.logger).Debug("stop_python requested")
	if err := s.ctrl.Stop(ctx); err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.OK = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	if s.info != nil {
		*resp = s.info()
	}
	resp.Worker = workerStatus(s.ctrl.Status())
	return nil
}

func (s *service) Close(_ CloseRequest, resp *CloseResponse) error {
	s.logger.Info("close requested via IPC", logging.String(logging.FieldEventType, "host_close_requested"))
	if s.onClose != nil {
		s.onClose()
	}
	resp.Accepted = true
	return nil
}

func workerStatus(st supervisor.Status) WorkerStatus {
	ws := WorkerStatus{
		Running: st.Running,
		Alive:   st.Alive,
		RunID:   st.RunID,
		PID:     st.PID,
		Vault:   st.Vault,
		Script:  st.Script,
		Exit:    st.Exit,
	}
	if !st.StartedAt.IsZero() {
		ws.StartedAt = st.StartedAt.UTC().Format(time.RFC3339)
	}
	return ws
}
