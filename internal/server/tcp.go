package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/motleylight/LogParser/internal/config"
	"github.com/motleylight/LogParser/internal/frame"
	"github.com/motleylight/LogParser/internal/metrics"
	"github.com/motleylight/LogParser/internal/publish"
	"github.com/motleylight/LogParser/internal/scanner"
)

// TCPServer accepts byte streams over TCP and runs a frame scanner per
// connection. Each connection is one logical stream; scanners are
// never shared.
type TCPServer struct {
	cfg     *config.ServerConfig
	scanCfg scanner.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    *publish.Publisher // nil when publishing is disabled

	listener net.Listener

	// Concurrency management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	sessions   map[string]*Session
	totals     scanner.Statistics // accumulated from closed connections
	connsTotal uint64
}

// Session tracks one ingest connection and the latest statistics
// snapshot of its scanner.
type Session struct {
	ID          string             `json:"id"`
	RemoteAddr  string             `json:"remote_addr"`
	ConnectedAt time.Time          `json:"connected_at"`
	Stats       scanner.Statistics `json:"stats"`

	conn net.Conn
	mu   sync.RWMutex
}

func (s *Session) snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:          s.ID,
		RemoteAddr:  s.RemoteAddr,
		ConnectedAt: s.ConnectedAt,
		Stats:       s.Stats,
	}
}

// NewTCPServer creates a new TCP ingest server.
func NewTCPServer(cfg *config.ServerConfig, scanCfg scanner.Config, logger *slog.Logger,
	m *metrics.Metrics, sink *publish.Publisher) *TCPServer {

	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		cfg:      cfg,
		scanCfg:  scanCfg,
		logger:   logger,
		metrics:  m,
		sink:     sink,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Start begins accepting ingest connections.
func (s *TCPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.logger.Info("TCP ingest server started",
		slog.String("address", addr),
		slog.Int("max_connections", s.cfg.MaxConnections),
		slog.Duration("idle_timeout", s.cfg.GetIdleTimeout()),
	)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully stops the server and waits for connection handlers
// to finish.
func (s *TCPServer) Stop() error {
	s.logger.Info("Stopping TCP ingest server...")

	s.cancel()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Warn("Error closing listener", slog.String("error", err.Error()))
		}
	}

	// Unblock handlers stuck in Read.
	s.mu.RLock()
	for _, session := range s.sessions {
		session.conn.Close()
	}
	s.mu.RUnlock()

	s.wg.Wait()

	totals := s.Totals()
	s.logger.Info("TCP ingest server stopped",
		slog.Uint64("frames_found", totals.FramesFound),
		slog.Uint64("time_frames_found", totals.TimeFramesFound),
		slog.Uint64("invalid_frames", totals.InvalidFrames),
		slog.Uint64("bytes_processed", totals.BytesProcessed),
	)

	return nil
}

// Addr returns the listener address, valid after Start.
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop accepts connections until the listener closes.
func (s *TCPServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Accept error", slog.String("error", err.Error()))
				continue
			}
		}

		s.mu.Lock()
		if len(s.sessions) >= s.cfg.MaxConnections {
			s.mu.Unlock()
			s.logger.Warn("Connection limit reached, rejecting",
				slog.String("remote_addr", conn.RemoteAddr().String()),
				slog.Int("max_connections", s.cfg.MaxConnections),
			)
			conn.Close()
			continue
		}

		session := &Session{
			ID:          uuid.NewString(),
			RemoteAddr:  conn.RemoteAddr().String(),
			ConnectedAt: time.Now(),
			conn:        conn,
		}
		s.sessions[session.ID] = session
		s.connsTotal++
		s.mu.Unlock()

		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ActiveConnections.Inc()

		s.wg.Add(1)
		go s.handleConnection(conn, session)
	}
}

// handleConnection pumps one connection's byte stream through its own
// scanner until EOF, idle timeout, or shutdown.
func (s *TCPServer) handleConnection(conn net.Conn, session *Session) {
	defer s.wg.Done()
	defer conn.Close()
	defer s.closeSession(session)

	s.logger.Info("Connection opened",
		slog.String("conn_id", session.ID),
		slog.String("remote_addr", session.RemoteAddr),
	)

	sc := scanner.New(s.scanCfg)
	buf := make([]byte, s.cfg.ReadBufferSize)

	for {
		select {
		case <-s.ctx.Done():
			sc.Finish()
			s.drainFrames(sc, session)
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.GetIdleTimeout())); err != nil {
			s.logger.Error("Failed to set read deadline",
				slog.String("conn_id", session.ID),
				slog.String("error", err.Error()),
			)
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			sc.Feed(buf[:n])
			s.drainFrames(sc, session)
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				s.logger.Warn("Connection idle, closing",
					slog.String("conn_id", session.ID),
					slog.Duration("idle_timeout", s.cfg.GetIdleTimeout()),
				)
			}
			sc.Finish()
			s.drainFrames(sc, session)
			return
		}
	}
}

// drainFrames emits every frame the scanner can currently produce.
func (s *TCPServer) drainFrames(sc *scanner.Scanner, session *Session) {
	for {
		f, ok := sc.Next()
		if !ok {
			break
		}
		s.handleFrame(session, f)
	}

	session.mu.Lock()
	session.Stats = sc.Stats()
	session.mu.Unlock()
}

// handleFrame records and optionally publishes one classified frame.
func (s *TCPServer) handleFrame(session *Session, f frame.Frame) {
	s.metrics.ObserveFrame(f)

	switch f.Kind {
	case frame.KindRegular:
		s.logger.Debug("Frame extracted",
			slog.String("conn_id", session.ID),
			slog.Int("payload_len", f.Regular.DeclaredLength),
		)
	case frame.KindTime:
		s.logger.Debug("Time frame extracted", slog.String("conn_id", session.ID))
	case frame.KindInvalid:
		s.logger.Debug("Invalid segment",
			slog.String("conn_id", session.ID),
			slog.String("reason", f.Invalid.Reason.String()),
			slog.Int("bytes", len(f.Raw)),
		)
	}

	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(session.ID, f); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("Failed to publish frame",
			slog.String("conn_id", session.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.FramesPublished.Inc()
}

// closeSession folds a finished connection's counters into the server
// totals.
func (s *TCPServer) closeSession(session *Session) {
	snap := session.snapshot()

	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.totals.Add(snap.Stats)
	s.mu.Unlock()

	s.metrics.ActiveConnections.Dec()

	s.logger.Info("Connection closed",
		slog.String("conn_id", snap.ID),
		slog.String("remote_addr", snap.RemoteAddr),
		slog.Uint64("frames_found", snap.Stats.FramesFound),
		slog.Uint64("time_frames_found", snap.Stats.TimeFramesFound),
		slog.Uint64("invalid_frames", snap.Stats.InvalidFrames),
		slog.Uint64("bytes_processed", snap.Stats.BytesProcessed),
	)
}

// Totals returns the aggregated statistics across closed and active
// connections.
func (s *TCPServer) Totals() scanner.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := s.totals
	for _, session := range s.sessions {
		snap := session.snapshot()
		totals.Add(snap.Stats)
	}
	return totals
}

// Snapshot returns the current server state for the HTTP API.
func (s *TCPServer) Snapshot() ServerStatistics {
	s.mu.RLock()
	sessions := make([]Session, 0, len(s.sessions))
	totals := s.totals
	connsTotal := s.connsTotal
	for _, session := range s.sessions {
		snap := session.snapshot()
		sessions = append(sessions, snap)
		totals.Add(snap.Stats)
	}
	s.mu.RUnlock()

	return ServerStatistics{
		Totals:            totals,
		ActiveConnections: len(sessions),
		ConnectionsTotal:  connsTotal,
		Sessions:          sessions,
	}
}

// ServerStatistics represents aggregated ingest statistics.
type ServerStatistics struct {
	Totals            scanner.Statistics `json:"totals"`
	ActiveConnections int                `json:"active_connections"`
	ConnectionsTotal  uint64             `json:"connections_total"`
	Sessions          []Session          `json:"sessions"`
}
