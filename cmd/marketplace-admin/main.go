// Package main запускает HTTP-сервер административной панели маркетплейса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marketplace-admin/internal/config"
	"github.com/mmeshcher/marketplace-admin/internal/handler"
	"github.com/mmeshcher/marketplace-admin/internal/marketplace"
	"github.com/mmeshcher/marketplace-admin/internal/middleware"
	"github.com/mmeshcher/marketplace-admin/internal/repository"
	"github.com/mmeshcher/marketplace-admin/internal/service"
)

func main() {
	zcfg := zap.NewProductionConfig()
	logger, _ := zcfg.Build()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	zcfg.Level.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var audit service.AuditRepository
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		audit = repo
	} else {
		sugar.Warn("DATABASE_URI is not set, admin actions will not be recorded")
	}

	client := marketplace.NewClient(cfg.MarketplaceAPIURL, logger)

	svc := service.NewService(client, audit, logger, service.Options{
		Timings: service.Timings{
			DisputeDismissDelay:    cfg.DisputeDismissDelay,
			ReferralBannerDuration: cfg.ReferralBannerDuration,
		},
		AllowedDocumentHosts: cfg.DocumentAllowedHosts,
	})
	defer svc.Close()

	rateLimit, err := middleware.RateLimit(cfg.RateLimit, logger)
	if err != nil {
		sugar.Fatalw("rate limit configuration error", "error", err.Error())
	}

	authMiddleware := middleware.NewBearerAuth(cfg.JWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, rateLimit)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting marketplace admin server",
			"addr", cfg.RunAddress, "marketplace", client.BaseURL())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
