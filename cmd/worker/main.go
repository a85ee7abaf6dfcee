package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/config"
	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/logger"
	"github.com/benvon/quicknode/internal/metrics"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/services/ai"
	"github.com/benvon/quicknode/internal/workers"
	"go.uber.org/zap"
)

const serviceName = "quicknode-worker"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
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

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("timezone", cfg.Location.String()),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	nodeRepo := database.NewNodeRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	suggester := createSuggester(cfg, zapLogger, debugMode)

	// Job counters are exported by the API process; the worker keeps its own registry
	// so the observer hook stays wired.
	m, err := metrics.New()
	if err != nil {
		zapLogger.Fatal("failed_to_register_metrics", zap.Error(err))
	}

	parser := quickinput.NewParser(quickinput.WithLocation(cfg.Location))
	parseCache, err := cache.NewParseCache(parser, cfg.ParseCacheSize, cache.WithLookupHook(m.ObserveCacheLookup))
	if err != nil {
		zapLogger.Fatal("failed_to_create_parse_cache", zap.Error(err))
	}

	processor := workers.NewNodeProcessor(
		nodeRepo,
		parseCache,
		suggester,
		jobQueue,
		zapLogger,
		workers.WithJobObserver(m.ObserveJob),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	reprocessor := workers.NewReprocessor(jobQueue, nodeRepo, zapLogger)
	go reprocessor.Start(ctx, cfg.ReparseInterval)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job", append(msg.LogFields(), zap.Error(err))...)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("worker_shutting_down")

	cancel()

	zapLogger.Info("worker_stopped")
}

// createSuggester builds the configured AI provider. Without an API key the worker
// still re-parses nodes and discards suggestion jobs.
func createSuggester(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) ai.Suggester {
	if cfg.OpenAIKey == "" {
		zapLogger.Warn("ai_provider_not_configured_suggestions_disabled")
		return nil
	}

	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, zapLogger, debugMode)

	suggester, err := registry.GetProvider(cfg.AIProvider, cfg.AIConfig())
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider",
			zap.String("provider", cfg.AIProvider),
			zap.Error(err),
		)
	}

	zapLogger.Info("initialized_ai_provider",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
		zap.String("api_key", ai.SanitizeAPIKey(cfg.OpenAIKey)),
	)
	return suggester
}
