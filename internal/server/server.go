package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"durakv/internal/config"
	"durakv/internal/core"
	"durakv/internal/logger"
	"durakv/internal/metrics"

	"github.com/pkg/errors"
)

// DatabaseServer accepts TCP connections and drives auto-commit
// transactions against the engine on behalf of clients. Each connection is
// served by its own goroutine; the runtime scheduler takes the place of a
// fixed worker pool.
type DatabaseServer struct {
	engine                 *core.DatabaseEngine
	port                   int
	maximumConnectionCount int64

	listener          net.Listener
	connectionCount   atomic.Int64
	totalRequestCount atomic.Int64

	activeConnections sync.Map
	shutdownChannel   chan struct{}
	shutdownOnce      sync.Once
	waitGroup         sync.WaitGroup
}

func NewDatabaseServer(engine *core.DatabaseEngine, cfg config.SystemConfiguration) *DatabaseServer {
	maximumConnections := int64(cfg.MaximumConnectionCount)
	if maximumConnections <= 0 {
		maximumConnections = config.DefaultMaximumConnectionCount
	}

	return &DatabaseServer{
		engine:                 engine,
		port:                   cfg.ServerPort,
		maximumConnectionCount: maximumConnections,
		shutdownChannel:        make(chan struct{}),
	}
}

// Start binds the listen socket and launches the accept loop. It returns
// once the server is accepting; use Stop to tear it down.
func (s *DatabaseServer) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", s.port)
	}
	s.listener = listener

	s.waitGroup.Add(1)
	go s.acceptLoop()

	logger.LogInfoEvent("Database server listening on %s", listener.Addr())
	return nil
}

// Stop closes the acceptor, tears down every live connection and returns
// only after all connection goroutines have exited.
func (s *DatabaseServer) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChannel)
		if s.listener != nil {
			s.listener.Close()
		}

		s.activeConnections.Range(func(key, _ any) bool {
			key.(net.Conn).Close()
			return true
		})
	})

	s.waitGroup.Wait()
	logger.LogInfoEvent("Database server stopped")
}

// Address returns the bound listen address, useful when port 0 was requested.
func (s *DatabaseServer) Address() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *DatabaseServer) ConnectionCount() int64 {
	return s.connectionCount.Load()
}

func (s *DatabaseServer) TotalRequestCount() int64 {
	return s.totalRequestCount.Load()
}

func (s *DatabaseServer) acceptLoop() {
	defer s.waitGroup.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownChannel:
				return
			default:
				logger.LogErrorEvent("Accept error: %v", err)
				return
			}
		}

		if s.connectionCount.Load() >= s.maximumConnectionCount {
			// Over the cap: close silently, no response frame.
			logger.LogDebugEvent("Connection cap reached, dropping %s", conn.RemoteAddr())
			conn.Close()
			continue
		}

		s.connectionCount.Add(1)
		metrics.IncrementConnectionCount()
		s.activeConnections.Store(conn, struct{}{})

		s.waitGroup.Add(1)
		go func(c net.Conn) {
			defer s.waitGroup.Done()
			s.handleConnection(c)
		}(conn)
	}
}
