package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"newsletter-go/internal/config"
	"newsletter-go/internal/handlers"
	"newsletter-go/internal/logging"
	"newsletter-go/internal/metrics"
	"newsletter-go/internal/repository"
)

var (
	ErrNilListener   = errors.New("listener is nil")
	ErrNilRepository = errors.New("subscription repository is nil")
)

type Config struct {
	Settings       config.Application
	Logger         *logging.ContextLogger
	TracerProvider trace.TracerProvider // nil uses the global provider
	Metrics        *metrics.Metrics     // nil disables metrics and the metrics route
}

type Application struct {
	server   *http.Server
	listener net.Listener
	config   *Config
	router   *gin.Engine
}

// Build wires the listener and repository into a server that is not yet
// serving; call Run to start it. Storage is never contacted here.
func Build(listener net.Listener, repo repository.SubscriptionRepository, config *Config) (*Application, error) {
	if listener == nil {
		return nil, ErrNilListener
	}
	if repo == nil {
		return nil, ErrNilRepository
	}
	if err := checkListener(listener); err != nil {
		return nil, fmt.Errorf("listener %s can not serve: %w", listener.Addr(), err)
	}

	if config.Settings.GinMode != "" {
		gin.SetMode(config.Settings.GinMode)
	}

	subscriptionHandler := handlers.NewSubscriptionHandler(repo, config.Logger, config.Metrics, config.TracerProvider)

	router := gin.New()
	router.Use(gin.Recovery())

	var otelOpts []otelgin.Option
	if config.TracerProvider != nil {
		otelOpts = append(otelOpts, otelgin.WithTracerProvider(config.TracerProvider))
	}
	router.Use(otelgin.Middleware(config.Settings.ServiceName, otelOpts...))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		config.Logger.WithTracing(c.Request.Context()).WithFields(map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}).Info("HTTP request completed")
	})

	if config.Metrics != nil {
		router.Use(config.Metrics.Middleware())
	}

	router.Use(requestTimeout(config.Settings.RequestTimeout))

	router.GET("/health", subscriptionHandler.Health)
	router.POST("/subscriptions", handlers.DecodeSubscription(config.Logger), subscriptionHandler.Subscribe)

	if config.Metrics != nil && config.Settings.MetricsPath != "" {
		router.GET(config.Settings.MetricsPath, gin.WrapH(config.Metrics.Handler()))
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: config.Settings.ReadHeaderTimeout,
		ReadTimeout:       config.Settings.ReadTimeout,
		WriteTimeout:      config.Settings.WriteTimeout,
		IdleTimeout:       config.Settings.IdleTimeout,
	}

	return &Application{
		server:   server,
		listener: listener,
		config:   config,
		router:   router,
	}, nil
}

// requestTimeout bounds the work, storage round-trips included, done for one request.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// checkListener reports an error for a listener whose socket is already closed.
func checkListener(l net.Listener) error {
	sc, ok := l.(syscall.Conn)
	if !ok {
		return nil
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	return raw.Control(func(uintptr) {})
}

// Run serves until Shutdown is called.
func (app *Application) Run() error {
	app.config.Logger.Info("Starting server on " + app.listener.Addr().String())
	if err := app.server.Serve(app.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.config.Logger.Info("Shutting down server...")
	return app.server.Shutdown(ctx)
}

func (app *Application) Addr() net.Addr {
	return app.listener.Addr()
}

func (app *Application) Router() *gin.Engine {
	return app.router
}
