package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	appconfig "github.com/atwonio16/noshowdentalclinic/internal/config"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/jobs"
	"github.com/atwonio16/noshowdentalclinic/internal/message"
	"github.com/atwonio16/noshowdentalclinic/internal/notify"
	"github.com/atwonio16/noshowdentalclinic/internal/observability/metrics"
	"github.com/atwonio16/noshowdentalclinic/internal/sms"
	"github.com/atwonio16/noshowdentalclinic/internal/token"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Standalone scheduler binary for deployments that run the API with
// DISABLE_SCHEDULER=true and want exactly one ticking process.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("confirmation worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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
	m := metrics.NewConfirmationMetrics(nil)

	notifier := notify.New(ledger, smsProvider, emailSender, clinicRepo, logger, cfg.SendConfirmedAck)
	runner := jobs.NewRunner(appointmentRepo, tokenRepo, notifier, cfg.PublicBaseURL, logger, m)
	orchestrator := jobs.NewOrchestrator(clinicRepo, runner, logger, m).
		WithInterval(cfg.TickInterval)

	go orchestrator.Run(ctx)
	logger.Info("confirmation worker started", "tick_interval", cfg.TickInterval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down confirmation worker")
	cancel()
}
