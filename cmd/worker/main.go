package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/repository/postgres"
	"github.com/jwalitptl/notify-api/internal/worker"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	notificationRepo := postgres.NewNotificationRepository(base)

	retention := worker.NewRetentionWorker(
		notificationRepo,
		metrics.New("notify_worker"),
		log,
		cfg.Notifier.RetentionDays,
		time.Duration(cfg.Notifier.CleanupIntervalMinutes)*time.Minute,
	)

	setupHealthCheck(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down...")
		cancel()
	}()

	log.Info("retention worker started")
	retention.Start(ctx)
}

func setupHealthCheck(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}
