package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/config"
	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/handlers"
	"github.com/benvon/quicknode/internal/logger"
	"github.com/benvon/quicknode/internal/metrics"
	"github.com/benvon/quicknode/internal/middleware"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/services/oidc"
	"github.com/benvon/quicknode/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

const serviceName = "quicknode-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.DebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("timezone", cfg.Location.String()),
		zap.Bool("auth_enabled", cfg.AuthEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.String("version", version),
	)

	var tracerProvider *sdktrace.TracerProvider
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tracerProvider); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	// Redis is optional: without it each replica rate-limits on its own
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_using_memory_rate_limit_store")
	}

	jobQueue := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	m, err := metrics.New()
	if err != nil {
		zapLogger.Fatal("failed_to_register_metrics", zap.Error(err))
	}

	parser := quickinput.NewParser(quickinput.WithLocation(cfg.Location))
	parseCache, err := cache.NewParseCache(parser, cfg.ParseCacheSize, cache.WithLookupHook(m.ObserveCacheLookup))
	if err != nil {
		zapLogger.Fatal("failed_to_create_parse_cache", zap.Error(err))
	}

	nodeRepo := database.NewNodeRepository(db)

	parseHandler := handlers.NewParseHandler(parseCache, m)
	nodeHandler := handlers.NewNodeHandler(nodeRepo, parseCache, jobQueue, zapLogger)
	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))

	healthChecker := handlers.NewHealthChecker(zapLogger).
		AddCheck("database", db.HealthCheck).
		AddCheck("rabbitmq", jobQueue.HealthCheck)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	authMW := authMiddleware(cfg, zapLogger)

	store, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitMW, err := middleware.RateLimit(store, cfg.RateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	r := mux.NewRouter()

	// Middleware registered first wraps outermost
	zapLogger.Info("setting_up_middleware")
	if tracerProvider != nil {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger, m))

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.VersionHandler(handlers.VersionResponse{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	publicAPI := r.PathPrefix("/api/v1").Subrouter()
	openAPIHandler.RegisterRoutes(publicAPI)

	// Protected API routes: auth runs first so the limiter can key on the principal
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)
	apiRouter.Use(rateLimitMW)
	parseHandler.RegisterRoutes(apiRouter)
	nodeHandler.RegisterRoutes(apiRouter)

	// Preflight requests need a matched route for the router middleware to run
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	dlqGC := queue.NewGarbageCollector(jobQueue, time.Hour, cfg.DLQRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", time.Hour),
		zap.Duration("retention", cfg.DLQRetention),
	)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
func connectRabbitMQ(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

// authMiddleware verifies bearer tokens against the JWKS, or pins a development
// principal when no JWKS is configured.
func authMiddleware(cfg *config.Config, zapLogger *zap.Logger) func(http.Handler) http.Handler {
	if !cfg.AuthEnabled() {
		principal := middleware.DevPrincipal(cfg.DevSubject)
		zapLogger.Warn("auth_disabled_using_dev_principal",
			zap.String("subject", principal.Subject),
			zap.String("user_id", principal.ID.String()),
		)
		return middleware.StaticPrincipal(principal)
	}

	verifier := oidc.NewVerifier(oidc.NewJWKSManager(), cfg.JWTIssuer, cfg.JWKSURL, cfg.JWTAudience)
	return middleware.Auth(verifier, zapLogger)
}
