package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atwonio16/noshowdentalclinic/internal/api/router"
	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	appconfig "github.com/atwonio16/noshowdentalclinic/internal/config"
	"github.com/atwonio16/noshowdentalclinic/internal/confirmation"
	"github.com/atwonio16/noshowdentalclinic/internal/csvimport"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/http/handlers"
	"github.com/atwonio16/noshowdentalclinic/internal/jobs"
	"github.com/atwonio16/noshowdentalclinic/internal/message"
	"github.com/atwonio16/noshowdentalclinic/internal/notify"
	"github.com/atwonio16/noshowdentalclinic/internal/observability/metrics"
	"github.com/atwonio16/noshowdentalclinic/internal/sms"
	"github.com/atwonio16/noshowdentalclinic/internal/token"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting confirmor API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Misconfigured transports fail at boot, not on the first send.
	smsProvider, err := sms.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to create sms provider", "error", err)
		os.Exit(1)
	}
	emailSender, err := email.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to create email sender", "error", err)
		os.Exit(1)
	}

	clinicRepo := clinic.NewRepository(pool)
	appointmentRepo := appointment.NewRepository(pool)
	tokenRepo := token.NewRepository(pool)
	ledger := message.NewLedger(pool)

	registry := prometheus.NewRegistry()
	m := metrics.NewConfirmationMetrics(registry)

	notifier := notify.New(ledger, smsProvider, emailSender, clinicRepo, logger, cfg.SendConfirmedAck)
	reconciler := csvimport.NewReconciler(appointmentRepo)
	confirmationSvc := confirmation.NewService(tokenRepo, appointmentRepo, clinicRepo, notifier, logger)

	if cfg.DisableScheduler {
		logger.Info("scheduler disabled")
	} else {
		runner := jobs.NewRunner(appointmentRepo, tokenRepo, notifier, cfg.PublicBaseURL, logger, m)
		orchestrator := jobs.NewOrchestrator(clinicRepo, runner, logger, m).
			WithInterval(cfg.TickInterval)
		go orchestrator.Run(ctx)
	}

	r := router.New(&router.Config{
		Logger:           logger,
		TokenActions:     handlers.NewTokenActionHandler(confirmationSvc, logger),
		CSVImport:        handlers.NewCSVImportHandler(reconciler, clinicRepo, logger, m),
		Dashboard:        handlers.NewDashboardHandler(appointmentRepo, clinicRepo, logger),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ManagerJWTSecret: cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
