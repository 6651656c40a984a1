package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"cryptopulse/internal/app"
	"cryptopulse/internal/config"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func runMain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestMainStdio(t *testing.T) {
	restore := stubMCPDeps("stdio")
	defer restore()

	var ran bool
	runStdioFunc = func(ctx context.Context, server *mcp.Server) error {
		ran = server != nil
		return nil
	}
	runMain(t)
	if !ran {
		t.Fatal("stdio transport was not started")
	}
}

func TestMainHTTP(t *testing.T) {
	restore := stubMCPDeps("http")
	defer restore()

	addr := make(chan string, 1)
	startHTTPServerFunc = func(srv *http.Server) error {
		addr <- srv.Addr
		return http.ErrServerClosed
	}
	runMain(t)
	select {
	case got := <-addr:
		if got != "127.0.0.1:8090" {
			t.Fatalf("unexpected address %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("http server was not started")
	}
}

func stubMCPDeps(transport string) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origNewLogger := newLoggerFunc
	origInitTracer := initTracerFunc
	origStartStack := startStackFunc
	origRunStdio := runStdioFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			MCPTransport:          transport,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           8090,
			MCPRequestTimeoutSecs: 1,
			TrackedCoins:          []string{"BTC"},
			FetchTimeoutSecs:      1,
		}
	}
	newLoggerFunc = func(string, string) (*zap.Logger, error) { return zap.NewNop(), nil }
	initTracerFunc = func(ctx context.Context, service string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	startStackFunc = func(*app.Stack, context.Context) {}
	runStdioFunc = func(context.Context, *mcp.Server) error { return nil }
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		newLoggerFunc = origNewLogger
		initTracerFunc = origInitTracer
		startStackFunc = origStartStack
		runStdioFunc = origRunStdio
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
