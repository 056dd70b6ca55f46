package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatwire.app/server/common/id"
	"chatwire.app/server/common/logger"
	"chatwire.app/server/common/otel"
	"chatwire.app/server/core/config"
	"chatwire.app/server/core/db"
	"chatwire.app/server/internal/ai"
	"chatwire.app/server/internal/auth"
	"chatwire.app/server/internal/http/middleware"
	httprouter "chatwire.app/server/internal/http/router"
	"chatwire.app/server/internal/journal"
	"chatwire.app/server/internal/presence"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
	"chatwire.app/server/internal/ws"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "chatwire starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	var (
		verifier auth.Verifier
		jrnl     journal.Journal = journal.Nop{}
	)
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.JournalStream)

		verifier = auth.NewRedisVerifier(redisClient, cfg.Redis.SessionPrefix)
		jrnl = journal.NewRedisJournal(redisClient, cfg.Redis.JournalStream)
	} else {
		if cfg.IsProduction() {
			slog.ErrorContext(ctx, "redis is required in production for session verification")
			os.Exit(1)
		}
		slog.WarnContext(ctx, "redis disabled, using static dev verifier")
		verifier = auth.NewStaticVerifier(cfg.Auth.DevToken, cfg.Auth.DevUserID)
	}
	defer jrnl.Close()

	var responder ai.Responder
	if cfg.AI.Enabled() {
		responder, err = ai.New(ai.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize ai responder", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "ai responder initialized", "model", responder.Model())
	} else {
		slog.WarnContext(ctx, "ai responder disabled (no api key configured)")
		responder = ai.Disabled()
	}

	stores := store.NewStores(database.Pool())
	registry := presence.NewRegistry()
	services := service.NewServices(stores, responder, registry, jrnl)
	gateway := ws.NewGateway(verifier, stores.Users(), services.Messages(), registry, ws.NewRooms())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, stores, verifier, gateway)
	// No Read/WriteTimeout: /ws connections are long-lived.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, stores *store.Stores, verifier auth.Verifier, gateway *ws.Gateway) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, stores, verifier, gateway)

	return router
}

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██╗    ██╗██╗██████╗ ███████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██║    ██║██║██╔══██╗██╔════╝
██║     ███████║███████║   ██║   ██║ █╗ ██║██║██████╔╝█████╗
██║     ██╔══██║██╔══██║   ██║   ██║███╗██║██║██╔══██╗██╔══╝
╚██████╗██║  ██║██║  ██║   ██║   ╚███╔███╔╝██║██║  ██║███████╗
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚══╝╚══╝ ╚═╝╚═╝  ╚═╝╚══════╝
`
