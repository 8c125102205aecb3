package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/dwindle/internal/runtimepath"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// DefaultRequestTimeout bounds how long one request may wait on the
// controller.
const DefaultRequestTimeout = 5 * time.Second

// Controller is the daemon side of the protocol. Implementations serialise
// every call onto their own coordination goroutine.
type Controller interface {
	Status(ctx context.Context) (StatusData, error)
	Workspaces(ctx context.Context) ([]WorkspaceInfo, error)
	Monitors(ctx context.Context) ([]MonitorInfo, error)
	Tree(ctx context.Context, workspace string) (TreeData, error)
	Layout(ctx context.Context, cmd CommandType, p LayoutPayload) error
	SummonWorkspace(ctx context.Context, name string) (workspace.Workspace, error)
	MoveWorkspaceToMonitor(ctx context.Context, name, monitor string) error
	FocusMonitor(ctx context.Context, p MonitorPayload) (workspace.Monitor, error)
	Reload(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	ctl        Controller
	logger     *slog.Logger
	timeout    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. An empty socketPath selects
// runtimepath.SocketPath().
func NewServer(socketPath string, ctl Controller, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = p
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		ctl:        ctl,
		logger:     logger,
		timeout:    DefaultRequestTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc server listening", "socket", s.socketPath)

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("ipc accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves one request: a single JSON line in, a single JSON
// line out.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.timeout + time.Second))

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("ipc read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "command", req.Command, "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send response", "command", req.Command, "error", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("ipc command", "command", req.Command)

	if req.Command.IsLayout() {
		var p LayoutPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return respond(nil, s.ctl.Layout(ctx, req.Command, p))
	}

	switch req.Command {
	case CommandGetStatus:
		return respond(s.ctl.Status(ctx))
	case CommandListWorkspaces:
		return respond(s.ctl.Workspaces(ctx))
	case CommandListMonitors:
		return respond(s.ctl.Monitors(ctx))
	case CommandGetTree:
		var p TreePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return respond(s.ctl.Tree(ctx, p.Workspace))
	case CommandSummonWorkspace:
		var p WorkspacePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return respond(s.ctl.SummonWorkspace(ctx, p.Name))
	case CommandMoveWorkspaceToMonitor:
		var p WorkspacePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return respond(nil, s.ctl.MoveWorkspaceToMonitor(ctx, p.Name, p.Monitor))
	case CommandFocusMonitor:
		var p MonitorPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return respond(s.ctl.FocusMonitor(ctx, p))
	case CommandReload:
		return respond(nil, s.ctl.Reload(ctx))
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func respond(data any, err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
