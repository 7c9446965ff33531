package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/service"
)

// ErrServerStarted is returned when starting a server twice
var ErrServerStarted = errors.New("server already started")

// ServerOptions configures a Server
type ServerOptions struct {
	Address              string
	TLSEnabled           bool
	CertFile             string
	KeyFile              string
	CAFile               string
	MaxMessageSize       int
	MaxConcurrentStreams uint32
	// MaxConnectionAge recycles connections after the given age, zero disables it
	MaxConnectionAge time.Duration
}

// Server serves the table store service over gRPC
type Server struct {
	options  ServerOptions
	service  *service.TableStoreService
	logger   log.Logger
	server   *grpc.Server
	listener net.Listener
	mu       sync.Mutex
	started  bool
}

// NewServer creates a new gRPC server for the given service
func NewServer(options ServerOptions, svc *service.TableStoreService, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(ServerKeepalive(options.MaxConnectionAge)),
		grpc.KeepaliveEnforcementPolicy(ServerEnforcement()),
	}

	if options.TLSEnabled {
		tlsConfig, err := LoadServerTLSConfig(options.CertFile, options.KeyFile, options.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	if options.MaxMessageSize > 0 {
		serverOpts = append(serverOpts,
			grpc.MaxRecvMsgSize(options.MaxMessageSize),
			grpc.MaxSendMsgSize(options.MaxMessageSize),
		)
	}
	if options.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(options.MaxConcurrentStreams))
	}

	server := grpc.NewServer(serverOpts...)
	svc.Register(server)

	return &Server{
		options: options,
		service: svc,
		logger:  logger.WithField("component", "grpc_server"),
		server:  server,
	}, nil
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Address, err)
	}

	if err := s.markStarted(listener); err != nil {
		listener.Close()
		return err
	}

	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.logger.Error("gRPC server error: %v", err)
		}
	}()

	s.logger.Info("gRPC server listening on %s", listener.Addr())
	return nil
}

// Serve serves on the given listener and blocks until the server stops
func (s *Server) Serve(listener net.Listener) error {
	if err := s.markStarted(listener); err != nil {
		return err
	}
	return s.server.Serve(listener)
}

func (s *Server) markStarted(listener net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrServerStarted
	}
	s.started = true
	s.listener = listener
	return nil
}

// Addr returns the listening address, or nil before the server starts
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server, forcing it down when ctx expires
func (s *Server) Stop(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for graceful shutdown, forcing stop")
		s.server.Stop()
		return ctx.Err()
	}
}
