package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oficina/internal/config"
	"oficina/internal/event"
	"oficina/internal/infra"
	"oficina/internal/repository"
	"oficina/internal/router"
	"oficina/internal/service"
	"oficina/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store + repositories ─────────────────────────────────────────────────
	store := repository.NewStore(db, repository.RetryPolicy{
		MaxRetries: cfg.ItemRetryMax,
		BaseDelay:  cfg.RetryBaseDelay(),
		MaxDelay:   repository.DefaultRetryPolicy.MaxDelay,
	})
	orderRepo := repository.NewOrderRepository(db)
	catalogRepo := repository.NewCatalogRepository(db, rdb)
	registerRepo := repository.NewCashRegisterRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// ── Events → Redis queue → notification worker ───────────────────────────
	var publisher event.Publisher = worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)
	mailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	notifyTo := cfg.NotifyEmail
	if !mailer.Configured() {
		log.Warn().Msg("SMTP not configured, notifications are consumed without delivery")
		notifyTo = ""
	}
	notifier := worker.NewNotificationWorker(mailer, notifyTo, mailCB)
	worker.StartWorkerPool(ctx, rdb, notifier, cfg.WorkerPoolSize)

	// ── Services ─────────────────────────────────────────────────────────────
	registerSvc := service.NewCashRegisterService(store, registerRepo)
	paymentSvc := service.NewPaymentService(store, paymentRepo, orderRepo, registerRepo, publisher)
	orderSvc := service.NewOrderService(store, orderRepo, catalogRepo, registerRepo, paymentRepo, paymentSvc, publisher)

	if _, err := worker.StartOverdueSweep(ctx, cfg.OverdueCron, paymentSvc); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.OverdueCron).Msg("invalid OVERDUE_CRON")
	}

	r := router.New(cfg, router.Deps{
		DB:        db,
		Redis:     rdb,
		MailCB:    mailCB,
		Orders:    orderSvc,
		Payments:  paymentSvc,
		Registers: registerSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("oficina backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
