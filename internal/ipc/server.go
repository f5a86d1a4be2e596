package ipc

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Server accepts socket connections and serves a root object on each.
type Server struct {
	socketPath   string
	listener     net.Listener
	root         Handler
	logger       *slog.Logger
	startTime    time.Time
	conns        map[*Conn]struct{}
	connsMu      sync.Mutex
	shuttingDown bool
	shutdownMu   sync.Mutex
	onConnect    func(*Conn)
}

// NewServer creates a server for root at socketPath. A stale socket file is
// removed.
func NewServer(socketPath string, root Handler, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("socket path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		root:       root,
		logger:     logger,
		startTime:  time.Now(),
		conns:      make(map[*Conn]struct{}),
	}, nil
}

// OnConnect registers fn to run for every accepted connection.
func (s *Server) OnConnect(fn func(*Conn)) {
	s.onConnect = fn
}

// Start begins listening for connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Uptime reports how long the server has existed.
func (s *Server) Uptime() time.Duration { return time.Since(s.startTime) }

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.handleConnection(nc)
	}
}

// handleConnection wraps nc and tracks it until it dies
func (s *Server) handleConnection(nc net.Conn) {
	conn := newConn(nc, s.root, s.logger)

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	s.logger.Debug("client connected", "conn", conn.ID().String())
	if s.onConnect != nil {
		s.onConnect(conn)
	}

	go func() {
		<-conn.Done()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
	}()
}

// Stop closes the listener, every open connection and the socket file.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()
	for _, c := range conns {
		c.Close()
	}

	// Remove socket file
	os.Remove(s.socketPath)

	return nil
}
