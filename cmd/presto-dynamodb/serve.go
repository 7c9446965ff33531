package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/service"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/transport"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	address        string
	metricsAddress string
	tlsEnabled     bool
	certFile       string
	keyFile        string
	caFile         string
	maxItemSize    int
	maxMessageSize int
	maxStreams     uint32
	maxConnAge     time.Duration
}

func newServeCmd() *cobra.Command {
	var sf serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local table store over gRPC",
		Long: `Serve opens the configured local store and exposes it as a remote
table store. Connectors reach it with the "remote" driver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, sf)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sf.address, "address", "a", "localhost:50051", "gRPC listen address")
	f.StringVar(&sf.metricsAddress, "metrics-address", "", "HTTP address serving /metrics, empty disables it")
	f.BoolVar(&sf.tlsEnabled, "tls", false, "Enable TLS")
	f.StringVar(&sf.certFile, "cert", "", "TLS certificate file")
	f.StringVar(&sf.keyFile, "key", "", "TLS key file")
	f.StringVar(&sf.caFile, "ca", "", "CA file for client certificate verification")
	f.IntVar(&sf.maxItemSize, "max-item-size", service.DefaultMaxItemSize, "Largest accepted item in bytes")
	f.IntVar(&sf.maxMessageSize, "max-message-size", 16*1024*1024, "Largest gRPC message in bytes, 0 uses the gRPC default")
	f.Uint32Var(&sf.maxStreams, "max-concurrent-streams", 0, "Concurrent streams per connection, 0 means no limit")
	f.DurationVar(&sf.maxConnAge, "max-connection-age", 0, "Recycle client connections after this age, 0 keeps them open")
	return cmd
}

func runServe(cmd *cobra.Command, sf serveFlags) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		tel.Shutdown(context.Background())
		return err
	}

	svc := service.NewTableStoreService(st,
		service.WithLogger(logger),
		service.WithTelemetry(tel),
		service.WithMaxItemSize(sf.maxItemSize),
	)

	server, err := transport.NewServer(transport.ServerOptions{
		Address:    sf.address,
		TLSEnabled: sf.tlsEnabled,
		CertFile:   sf.certFile,
		KeyFile:    sf.keyFile,
		CAFile:     sf.caFile,

		MaxMessageSize:       sf.maxMessageSize,
		MaxConcurrentStreams: sf.maxStreams,
		MaxConnectionAge:     sf.maxConnAge,
	}, svc, logger)
	if err != nil {
		st.Close()
		tel.Shutdown(context.Background())
		return err
	}

	if err := server.Start(); err != nil {
		st.Close()
		tel.Shutdown(context.Background())
		return err
	}

	metricsServer := startMetricsServer(sf.metricsAddress, tel, logger)

	logger.Info("Serving %s store %s on %s", cfg.StoreDriver, cfg.StoreDSN, server.Addr())
	waitForShutdown(logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := st.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down telemetry: %w", err))
	}

	logger.Info("Shutdown complete")
	return errors.Join(errs...)
}

// startMetricsServer serves the telemetry handler, if both an address and a
// handler are available
func startMetricsServer(address string, tel telemetry.Telemetry, logger log.Logger) *http.Server {
	if address == "" {
		return nil
	}
	handler := tel.Handler()
	if handler == nil {
		logger.Warn("Metrics address %s set but the prometheus exporter is not configured", address)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error: %v", err)
		}
	}()

	logger.Info("Serving metrics on http://%s/metrics", address)
	return server
}

// waitForShutdown blocks until SIGINT or SIGTERM
func waitForShutdown(logger log.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	logger.Info("Received signal %v, shutting down", sig)
}
