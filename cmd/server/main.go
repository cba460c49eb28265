package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/config"
	"github.com/ErlanBelekov/answerkey-relay/internal/catalog"
	"github.com/ErlanBelekov/answerkey-relay/internal/download"
	"github.com/ErlanBelekov/answerkey-relay/internal/health"
	"github.com/ErlanBelekov/answerkey-relay/internal/infrastructure"
	ctxlog "github.com/ErlanBelekov/answerkey-relay/internal/log"
	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
	"github.com/ErlanBelekov/answerkey-relay/internal/notify"
	"github.com/ErlanBelekov/answerkey-relay/internal/provider"
	"github.com/ErlanBelekov/answerkey-relay/internal/quota"
	"github.com/ErlanBelekov/answerkey-relay/internal/scheduler"
	"github.com/ErlanBelekov/answerkey-relay/internal/session"
	"github.com/ErlanBelekov/answerkey-relay/internal/token"
	httptransport "github.com/ErlanBelekov/answerkey-relay/internal/transport/http"
	"github.com/ErlanBelekov/answerkey-relay/internal/transport/http/handler"
	"github.com/ErlanBelekov/answerkey-relay/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

// downloads older than this were abandoned mid-delivery
const orphanAge = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	snapshots, err := infrastructure.OpenSnapshots(ctx, cfg, logger)
	if err != nil {
		stop()
		log.Fatalf("snapshots: %v", err)
	}
	defer snapshots.Close()

	// Provider + token
	client := provider.NewClient(cfg.ProviderBaseURL, provider.Credentials{
		Tenant:   cfg.ProviderTenant,
		Username: cfg.ProviderUsername,
		Password: cfg.ProviderPassword,
	}, cfg.ProviderTimeout, logger)
	tokens := token.NewManager(client, snapshots, cfg.TokenRefreshInterval, logger)
	if err := tokens.Load(ctx); err != nil {
		logger.Warn("token snapshot unavailable", "error", err)
	}

	// Catalog + sync
	store := catalog.NewStore()
	alerter := notify.NewAlerter(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, cfg.AlertEmailTo, logger)
	syncer, err := scheduler.NewSyncer(tokens, client, store, snapshots, alerter, scheduler.SyncerConfig{
		Schedule:   cfg.SyncSchedule,
		Backoff:    cfg.SyncFailureBackoff,
		AlertAfter: cfg.AlertAfterFailures,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("syncer: %v", err)
	}

	// Conversation
	sessions := session.NewRegistry(cfg.SessionTTL)
	limiter := quota.NewLimiter(cfg.DailyDownloadLimit, cfg.Location())
	coordinator := download.NewCoordinator(tokens, client, cfg.DownloadDir, logger)
	conversation := usecase.NewConversationUsecase(store, sessions, limiter, coordinator, logger)
	conversationHandler := handler.NewConversationHandler(conversation, logger)

	janitor := scheduler.NewJanitor(sessions, limiter, coordinator, cfg.JanitorInterval, orphanAge, logger)

	metrics.Register()
	checker := health.NewChecker(snapshots, store, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, conversationHandler, []byte(cfg.GatewayJWTSecret)),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go syncer.Start(ctx)
	go janitor.Start(ctx)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
