package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptopulse/internal/app"
	"cryptopulse/internal/cache"
	"cryptopulse/internal/config"
	"cryptopulse/internal/handler"
	"cryptopulse/internal/proxy"
	"cryptopulse/internal/upstream"
	"cryptopulse/pkg/logging"
	"cryptopulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "cryptopulse/docs"
)

const serviceName = "cryptopulse"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	newLoggerFunc          = logging.New
	initTracerFunc         = tracing.InitTracer
	connectRedisFunc       = cache.Connect
	buildStackFunc         = app.Build
	startStackFunc         = func(s *app.Stack, ctx context.Context) { s.Start(ctx) }
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Cryptopulse API
// @version         1.0
// @description     Crypto dashboard data (sentiment, on-chain activity, market events) with retries and fallbacks.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

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

	rdb, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, proxy rate limiting disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	stack := buildStackFunc(cfg, tracer, logger)
	startStackFunc(stack, ctx)
	defer stack.Stop()

	// The proxy boundary always calls the providers directly, even when this
	// process itself routes through PROXY_URL.
	proxyTransport := upstream.NewDirectTransport(stack.Registry, upstream.DefaultLimits(), tracer)
	p := proxy.New(tracer, stack.Registry, proxyTransport, time.Duration(cfg.ProxyTimeoutSecs)*time.Second, logger.Named("proxy"))

	h := handler.New(tracer, stack.Gateway, stack.Board, cfg.TrackedCoins)

	r := newRouterFunc()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(handler.RequestID())
	r.Use(handler.AccessLog(logger.Named("http")))
	r.Use(proxy.CORS())

	h.RegisterRoutes(r)
	p.RegisterRoutes(r.Group("", handler.RateLimit(newLimiter(rdb, cfg.ProxyRateLimitPerMin), logger)))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func newLimiter(rdb *redis.Client, perMinute int) *cache.WindowLimiter {
	if rdb == nil {
		return nil
	}
	return cache.NewWindowLimiter(cache.NewRedisCounter(rdb), perMinute, time.Minute)
}
