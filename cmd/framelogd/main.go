package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/motleylight/LogParser/internal/config"
	"github.com/motleylight/LogParser/internal/metrics"
	"github.com/motleylight/LogParser/internal/publish"
	"github.com/motleylight/LogParser/internal/scanner"
	"github.com/motleylight/LogParser/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "framelogd"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("tcp_port", cfg.Server.TCPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("max_connections", cfg.Server.MaxConnections),
		slog.Bool("validate_length", cfg.Scanner.ValidateLength),
		slog.Bool("decode_timestamps", cfg.Scanner.DecodeTimestamps),
		slog.Int("max_payload", cfg.Scanner.MaxPayload),
		slog.Bool("publish_enabled", cfg.Publish.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.New()
	logger.Info("Prometheus metrics initialized")

	// Connect the optional NATS frame sink
	var sink *publish.Publisher
	if cfg.Publish.Enabled {
		sink, err = publish.Connect(cfg.Publish.URL, cfg.Publish.SubjectPrefix, logger)
		if err != nil {
			logger.Error("Failed to connect frame sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sink.Close()
		logger.Info("Frame sink connected",
			slog.String("url", cfg.Publish.URL),
			slog.String("subject_prefix", cfg.Publish.SubjectPrefix),
		)
	}

	scanCfg := scanner.Config{
		ValidateLength:   cfg.Scanner.ValidateLength,
		DecodeTimestamps: cfg.Scanner.DecodeTimestamps,
		MaxPayload:       cfg.Scanner.MaxPayload,
	}

	// Initialize TCP ingest server
	tcpServer := server.NewTCPServer(&cfg.Server, scanCfg, logger, appMetrics, sink)
	logger.Info("TCP ingest server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg, logger, tcpServer)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start TCP server
	if err := tcpServer.Start(); err != nil {
		logger.Error("Failed to start TCP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("tcp_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.TCPPort)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop TCP server (finishes per-connection scanners)
	if err := tcpServer.Stop(); err != nil {
		logger.Error("Error stopping TCP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := tcpServer.Totals()
	logger.Info("Final ingest statistics",
		slog.Uint64("frames_found", stats.FramesFound),
		slog.Uint64("time_frames_found", stats.TimeFramesFound),
		slog.Uint64("invalid_frames", stats.InvalidFrames),
		slog.Uint64("bytes_processed", stats.BytesProcessed),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
