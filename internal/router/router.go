package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit     float64
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	notificationH Handler
	preferenceH   Handler
	eventH        Handler
	h             *handler.Handler
	metrics       *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	notificationH Handler,
	preferenceH Handler,
	eventH Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		notificationH: notificationH,
		preferenceH:   preferenceH,
		eventH:        eventH,
		h:             h,
		metrics:       initRouterMetrics(config.MetricsPrefix),
	}

	// Core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		r.metricsMiddleware(),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	// Feed and preference routes: caller identity from the bearer token.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.notificationH.RegisterRoutes(protected)
	r.preferenceH.RegisterRoutes(protected)

	// Event ingest: service-to-service only.
	internalAPI := r.engine.Group("/internal/v1")
	internalAPI.Use(r.auth.Authenticate(), r.auth.RequireService())
	r.eventH.RegisterRoutes(internalAPI)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
