package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/email"
	"github.com/jwalitptl/notify-api/internal/handler"
	eventHandler "github.com/jwalitptl/notify-api/internal/handler/event"
	notificationHandler "github.com/jwalitptl/notify-api/internal/handler/notification"
	preferenceHandler "github.com/jwalitptl/notify-api/internal/handler/preference"
	"github.com/jwalitptl/notify-api/internal/livesync"
	"github.com/jwalitptl/notify-api/internal/middleware"
	"github.com/jwalitptl/notify-api/internal/repository/postgres"
	"github.com/jwalitptl/notify-api/internal/router"
	dispatcherService "github.com/jwalitptl/notify-api/internal/service/dispatcher"
	notificationService "github.com/jwalitptl/notify-api/internal/service/notification"
	preferenceService "github.com/jwalitptl/notify-api/internal/service/preference"
	"github.com/jwalitptl/notify-api/internal/service/resolver"
	"github.com/jwalitptl/notify-api/internal/webhook"
	"github.com/jwalitptl/notify-api/pkg/auth"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging/redis"
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

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log.ZL)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.New("notify")

	// Repositories
	base := postgres.NewBaseRepository(db)
	notificationRepo := postgres.NewNotificationRepository(base)
	preferenceRepo := postgres.NewPreferenceRepository(base)
	userRepo := postgres.NewUserRepository(base)

	// Delivery channels
	emailSvc := email.NewSMTPService(cfg.SMTP, log.ZL)
	webhookClient := webhook.NewClient(cfg.Webhook, log.ZL)

	// Services
	notificationSvc := notificationService.NewService(notificationRepo, broker, log.ZL)
	preferenceSvc := preferenceService.NewService(preferenceRepo)
	eventResolver := resolver.NewResolver(userRepo, log.ZL)
	dispatcher := dispatcherService.NewService(
		eventResolver,
		notificationRepo,
		userRepo,
		preferenceSvc,
		emailSvc,
		webhookClient,
		broker,
		m,
		log.ZL,
		dispatcherService.Config{
			DispatchTimeout: time.Duration(cfg.Notifier.DispatchTimeoutSeconds) * time.Second,
		},
	)

	hub := livesync.NewHub(broker, m, log.ZL)

	// Handlers
	h := handler.NewHandler(map[string]handler.Pinger{
		"database": dbPinger{db},
		"redis":    broker,
	})
	notificationH := notificationHandler.NewHandler(notificationSvc, hub)
	preferenceH := preferenceHandler.NewHandler(preferenceSvc)
	eventH := eventHandler.NewHandler(dispatcher)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewValidator(cfg.JWT.Secret))

	r := router.NewRouter(authMiddleware, notificationH, preferenceH, eventH, h, router.RouterConfig{
		RateLimit:     cfg.RateLimit.RPS,
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "notify_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: 0, // streaming endpoints hold the response open
	}

	go func() {
		log.WithFields(map[string]interface{}{"port": cfg.Server.Port}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	// Let in-flight fan-outs land their store writes before exit.
	dispatcher.Wait()

	log.Info("server exited properly")
}

type dbPinger struct {
	db *sqlx.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
