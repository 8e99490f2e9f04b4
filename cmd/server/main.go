package main

import (
	"chat-hub/domain/event"
	"chat-hub/infrastructure/api"
	"chat-hub/infrastructure/grpc/server"
	"chat-hub/infrastructure/ws"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"
	"chat-hub/sink"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat hub terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the process lifecycle, so deferred cleanups
// always execute before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone may be complete.
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation dictionary
	dictionaries, err := dictionariesFS(config.CensoredDir)
	if err != nil {
		return exitConfig, err
	}
	dictionary, err := moderation.LoadDictionary(dictionaries, ".", config.ExtraWords()...)
	if err != nil {
		return exitConfig, fmt.Errorf("censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(dictionary.Words, charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator: %w", err)
	}
	logger.Info("Moderation dictionary loaded", "words", len(dictionary.Words), "languages", dictionary.Languages)

	// 3. Archive (in-memory BadgerDB)
	db, err := repositories.OpenInMemory()
	if err != nil {
		return exitRuntime, fmt.Errorf("archive opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	archive := repositories.NewEventRepository(db, logger, config.ArchiveLimit).WithTTL(config.ArchiveTTL)

	// 4. Supervision & Orchestration
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, supervisor, moderator, runtime.OrchestratorConfig{
		Hub: runtime.HubConfig{
			QueueCapacity:  config.ConnectionBufferSize,
			OverflowPolicy: runtime.OverflowPolicy(config.OverflowPolicy),
			MaxTextLength:  config.MaxTextLength,
		},
		EventLogRetention: config.EventLogRetention,
		SinkBufferSize:    config.SinkBufferSize,
		SinkTimeout:       config.SinkTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReapInterval:      config.ReapInterval,
		MetricInterval:    config.MetricInterval,
	})
	orchestrator.Add(sink.NewArchiveSink(archive, logger))
	chatService := services.NewChatService(orchestrator.Hub(), archive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug archive inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		debugServer := internal.StartDebugServer(db, config.DebugPort, endpoint, ArchiveMapper, func() map[string]any {
			return statsMap(chatService.Stats())
		})
		defer func() { _ = debugServer.Close() }()
	}

	errChan := make(chan error, 3)

	// 5. Start the Engine (supervised workers)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 6. HTTP: WebSocket transport + read API
	router := mux.NewRouter()
	ws.NewServer(logger, chatService, ws.Config{
		PingInterval:      config.PingInterval,
		PongWait:          config.PongWait,
		WriteWait:         config.WriteWait,
		MaxMessageSize:    config.MaxMessageSize,
		MaxIdentityLength: config.MaxIdentityLength,
	}).RegisterRoutes(router)
	api.NewHandler(logger, chatService).RegisterRoutes(router)

	httpAddress := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	httpServer := &http.Server{
		Addr:              httpAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpAddress, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. gRPC: health + reflection
	grpcAddress := net.JoinHostPort(config.Host, strconv.Itoa(config.GrpcPort))
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	healthServer := server.NewHealthServer(logger)
	go func() {
		logger.Info("Starting gRPC server", "address", grpcAddress, "at", time.Now().UTC())
		if err := healthServer.Serve(listener); err != nil {
			errChan <- err
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errChan:
		logger.Error("Component failed", "error", err)
		code = exitRuntime
	}

	// 9. Final Cleanup (Graceful Shutdown)
	// Health goes NOT_SERVING first, then the hub closes every connection.
	logger.Info("Shutting down gracefully...")
	healthServer.Drain()
	orchestrator.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP shutdown incomplete", "error", shutdownErr)
	}
	healthServer.Stop()
	logger.Info("Program stopped cleanly")

	return code, err
}

func dictionariesFS(dir string) (fs.FS, error) {
	if dir == "" {
		return moderation.EmbeddedDictionaries(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("CENSORED_DIR: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("CENSORED_DIR %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// ArchiveMapper decodes archived events for the debug inspector.
func ArchiveMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	e, err := repositories.DecodeEvent(val)
	if err != nil {
		row.Detail = "Error: " + err.Error()
		return row
	}
	row.Type = string(e.Kind())
	row.Sequence = strconv.FormatUint(e.Sequence(), 10)
	row.Identity = e.Identity().String()
	row.Detail = e.OccurredAt().Format(time.RFC3339)
	if chat, ok := e.(event.ChatMessage); ok {
		row.Detail = chat.Text
	}
	return row
}

func statsMap(stats runtime.HubStats) map[string]any {
	return map[string]any{
		"live_connections":    stats.LiveConnections,
		"joined_connections":  stats.JoinedConnections,
		"distinct_identities": stats.DistinctIdentities,
		"next_sequence":       stats.NextSequence,
		"retained_events":     stats.RetainedEvents,
		"dropped_events":      stats.DroppedEvents,
	}
}
