package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codecom/codecom-api/config"
	"github.com/codecom/codecom-api/internal/cache"
	"github.com/codecom/codecom-api/internal/handlers"
	"github.com/codecom/codecom-api/internal/intake"
	"github.com/codecom/codecom-api/internal/middleware"
	"github.com/codecom/codecom-api/internal/render"
	"github.com/codecom/codecom-api/internal/services"
	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/codecom/codecom-api/pkg/mailer"
	"github.com/codecom/codecom-api/pkg/metrics"
	"github.com/codecom/codecom-api/pkg/profiling"
	"github.com/codecom/codecom-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// registerAPIRoutes registers the submission and operational endpoints
func registerAPIRoutes(
	api *gin.RouterGroup,
	bodyLimits middleware.BodyLimits,
	submissionHandler *handlers.SubmissionHandler,
	healthHandler *handlers.HealthHandler,
) {
	api.GET("/healthcheck", healthHandler.Healthcheck)
	api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// SECURITY: Apply body size limits to prevent DoS attacks
	limit := middleware.BodySizeLimitMiddleware(bodyLimits)

	api.POST("/submit-application", limit, submissionHandler.SubmitApplication)
	api.OPTIONS("/submit-application", submissionHandler.Preflight)

	api.POST("/submit-feedback", limit, submissionHandler.SubmitFeedback)
	api.OPTIONS("/submit-feedback", submissionHandler.Preflight)
}

// newRouter builds the gin engine with the global middleware chain and routes
func newRouter(cfg *config.Config, submissionHandler *handlers.SubmissionHandler, healthHandler *handlers.HealthHandler) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Allow the local site in development
	corsServer := cfg.Server
	if cfg.IsDevelopment() && !corsServer.AllowsAllOrigins() {
		corsServer.AllowedOrigins = append(slices.Clone(corsServer.AllowedOrigins), "http://localhost:3000", "http://127.0.0.1:3000")
	}
	router.Use(middleware.CORSMiddleware(corsServer))

	// Wrong methods on known paths answer 405 in the submission response shape
	router.HandleMethodNotAllowed = true
	router.NoMethod(handlers.MethodNotAllowed)

	api := router.Group("/api")
	registerAPIRoutes(api,
		middleware.NewBodyLimits(cfg.Intake.MaxUploadBytes, cfg.Intake.MaxJSONBytes),
		submissionHandler, healthHandler)

	return router
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting CodeCom API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling (no-op unless enabled)
	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Mail relay is built once and shared. It stays a nil interface when
	// credentials are missing so the endpoints report the configuration error.
	var sender mailer.Sender
	if cfg.MailConfigured() {
		smtpClient, err := mailer.NewSMTPClient(mailer.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			Timeout:  cfg.Mail.SendTimeout(),
		})
		if err != nil {
			logger.Fatal("Failed to initialize mail relay", zap.Error(err))
		}
		sender = smtpClient
		logger.Info("Mail relay configured",
			zap.String("account", smtpClient.Account()),
			zap.String("recipient", cfg.Mail.Recipient()),
		)
	} else {
		logger.Warn("GMAIL_USER or GMAIL_APP_PASSWORD not set, submissions will fail until configured")
	}

	relayStatus := cache.NewRelayStatusCache(sender, time.Duration(cfg.Mail.StatusTTLSeconds)*time.Second)
	if cfg.Mail.VerifyOnStartup {
		// Verification dials the relay; keep it off the startup path
		go relayStatus.Initialize(context.Background())
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		logger.Fatal("Failed to parse email templates", zap.Error(err))
	}

	// Initialize services
	submissionService := services.NewSubmissionService(sender, renderer, cfg, relayStatus)

	// Initialize handlers
	submissionHandler := handlers.NewSubmissionHandler(submissionService, intake.Limits{
		MaxFileBytes:  cfg.Intake.MaxUploadBytes,
		MaxFieldBytes: cfg.Intake.MaxFieldBytes,
	})
	healthHandler := handlers.NewHealthHandler(relayStatus)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := newRouter(cfg, submissionHandler, healthHandler)

	// Create HTTP server
	// ReadTimeout bounds slow uploads; WriteTimeout must outlast one relay attempt
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.Mail.SendTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // SECURITY: 1 MB max header size
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mail.SendTimeout()+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
