// cmd/dispatcher/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"afterevent-mailer/internal/common/config"
	"afterevent-mailer/internal/common/database"
	"afterevent-mailer/internal/common/logger"
	"afterevent-mailer/internal/common/mail"
	"afterevent-mailer/internal/dispatch"
	"afterevent-mailer/internal/events"
	"afterevent-mailer/internal/settings"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	once := flag.Bool("once", false, "run one dispatch cycle immediately and exit")
	testEmail := flag.String("test-email", "", "send the configured templates unsubstituted to this address and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting follow-up mail dispatcher...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	location, err := time.LoadLocation(cfg.Dispatch.Timezone)
	if err != nil {
		zapLog.Fatal("invalid dispatch timezone", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Mail transport ---
	var mailer mail.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderSES:
		mailer, err = mail.NewSESMailer(ctx, cfg.Mail.SES, cfg.Mail.FromEmail, log)
		if err != nil {
			zapLog.Fatal("ses mailer init failed", zap.Error(err))
		}
	default:
		mailer = mail.NewSMTPMailer(cfg.Mail.SMTP, cfg.Mail.FromEmail, log)
	}
	zapLog.Info("Mail transport initialized", zap.String("provider", cfg.Mail.Provider))

	store := settings.NewPostgresStore(pg.GetDB(), log)
	provider := events.NewPostgresProvider(pg.GetDB(), log)

	// One-shot invocations bypass the daily run lock, so they do not need
	// Redis at all.
	if *testEmail != "" {
		d := dispatch.NewDispatcher(store, provider, mailer, dispatch.NoopRunLock{},
			location, cfg.Dispatch.SendTimeout, log)
		if err := d.SendTest(ctx, *testEmail); err != nil {
			zapLog.Fatal("test email failed", zap.Error(err))
		}
		zapLog.Info("Test email sent", zap.String("to", *testEmail))
		return
	}

	if *once {
		d := dispatch.NewDispatcher(store, provider, mailer, dispatch.NoopRunLock{},
			location, cfg.Dispatch.SendTimeout, log)
		if err := d.Run(ctx); err != nil {
			zapLog.Fatal("dispatch run failed", zap.Error(err))
		}
		return
	}

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		rds = database.NewRedis(cfg.Database.Redis)
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	lock := dispatch.NewRedisRunLock(rds.GetClient(), cfg.Dispatch.LockTTL)
	dispatcher := dispatch.NewDispatcher(store, provider, mailer, lock,
		location, cfg.Dispatch.SendTimeout, log)

	scheduler, err := dispatch.NewScheduler(dispatcher, cfg.Dispatch.ScheduleTime,
		location, dispatch.RealClock(), log)
	if err != nil {
		zapLog.Fatal("scheduler init failed", zap.Error(err))
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Dispatch.MetricsAddress))
		if err := http.ListenAndServe(cfg.Dispatch.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Start(runCtx)
		close(schedulerDone)
	}()
	zapLog.Info("Scheduler started",
		zap.String("scheduleTime", cfg.Dispatch.ScheduleTime),
		zap.String("timezone", cfg.Dispatch.Timezone),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	cancel()

	select {
	case <-schedulerDone:
	case <-time.After(30 * time.Second):
		zapLog.Warn("Scheduler did not stop within grace period")
	}

	zapLog.Info("Dispatcher stopped")
}
