package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptopulse/internal/app"
	"cryptopulse/internal/config"
	"cryptopulse/internal/mcpserver"
	"cryptopulse/pkg/logging"
	"cryptopulse/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const serviceName = "cryptopulse-mcp"

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	newLoggerFunc  = logging.New
	initTracerFunc = tracing.InitTracer
	buildStackFunc = app.Build
	startStackFunc = func(s *app.Stack, ctx context.Context) { s.Start(ctx) }
	runStdioFunc   = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger, err := newLoggerFunc(cfg.LogLevel, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	stack := buildStackFunc(cfg, tracer, logger)
	startStackFunc(stack, ctx)
	defer stack.Stop()

	tools := mcpserver.New(tracer, stack.Gateway, stack.Board, cfg.TrackedCoins,
		time.Duration(cfg.MCPRequestTimeoutSecs)*time.Second, logger.Named("mcp"))
	server := tools.MCP()

	if cfg.MCPTransport == "http" {
		serveHTTP(ctx, cancel, cfg, server, logger)
		return
	}

	logger.Info("mcp server running on stdio")
	if err := runStdioFunc(ctx, server); err != nil && ctx.Err() == nil {
		logger.Error("mcp stdio session ended", zap.Error(err))
	}
}

func serveHTTP(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, server *mcp.Server, logger *zap.Logger) {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("mcp http server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down MCP server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Printf("MCP server shutdown error: %v", err)
	}
	log.Println("MCP server exited")
}
