package main

// @title           NeoOSI Core API
// @version         1.0
// @description     Housing and utilities assistant for condominium associations in Kazakhstan. Answers are grounded in regulatory documents.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/neoosi/neoosi-core/internal/adapters/driven/ai"
	"github.com/neoosi/neoosi-core/internal/adapters/driven/auth"
	"github.com/neoosi/neoosi-core/internal/adapters/driven/corpus"
	"github.com/neoosi/neoosi-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/neoosi/neoosi-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/neoosi/neoosi-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/neoosi/neoosi-core/internal/adapters/driven/redis"
	"github.com/neoosi/neoosi-core/internal/adapters/driven/sqlite"
	"github.com/neoosi/neoosi-core/internal/adapters/driven/topics"
	"github.com/neoosi/neoosi-core/internal/adapters/driving/http"
	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
	"github.com/neoosi/neoosi-core/internal/core/services"
	"github.com/neoosi/neoosi-core/internal/normalisers"
	"github.com/neoosi/neoosi-core/internal/observability"
	"github.com/neoosi/neoosi-core/internal/postprocessors"
	"github.com/neoosi/neoosi-core/internal/runtime"
	"github.com/neoosi/neoosi-core/internal/vectorindex"
	"github.com/neoosi/neoosi-core/internal/worker"
)

var version = "dev"

func main() {
	// A missing .env is normal in containers
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode != "api" && mode != "worker" && mode != "all" {
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}

	logger := newLogger(getEnv("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	log.Printf("neoosi-core %s starting in %s mode", version, mode)

	// Configuration from environment
	jwtSecret := getEnv("JWT_SECRET", "development-secret-change-in-production")
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	corpusDir := getEnv("CORPUS_DIR", "./data/documents")
	indexPath := getEnv("INDEX_PATH", "./data/index/neoosi.db")

	settings := retrievalSettingsFromEnv()
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid retrieval settings: %v", err)
	}
	aiSettings := aiSettingsFromEnv()
	if err := aiSettings.Validate(); err != nil {
		log.Fatalf("Invalid AI settings: %v", err)
	}

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// ===== Initialize PostgreSQL (optional) =====
	var db *postgres.DB
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE", time.Minute),
		}
		var err error
		db, err = postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")
	}

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Chat history (Redis if available, otherwise PostgreSQL) =====
	var historyStore driven.ChatHistoryStore
	historyBackend := "none"
	switch {
	case redisClient != nil:
		historyStore = redisadapter.NewHistoryStore(redisClient,
			getEnvInt("HISTORY_MAX_TURNS", redisadapter.DefaultHistoryCap),
			getEnvDuration("HISTORY_TTL", 0))
		historyBackend = "redis"
	case db != nil:
		historyStore = postgres.NewHistoryStore(db)
		historyBackend = "postgres"
	default:
		log.Println("Warning: no history backend configured, chat history disabled")
	}

	// ===== Task Queue (Redis if available, otherwise PostgreSQL, otherwise inline) =====
	var taskQueue driven.TaskQueue
	queueBackend := "inline"
	switch {
	case redisClient != nil:
		hostname, _ := os.Hostname()
		q, err := redisqueue.NewQueue(ctx, redisClient, fmt.Sprintf("worker-%s-%d", hostname, os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		taskQueue = q
		queueBackend = "redis"
	case db != nil:
		taskQueue = postgresqueue.NewQueue(db.DB)
		queueBackend = "postgres"
	}

	// ===== Distributed Lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	var distributedLock driven.DistributedLock
	switch {
	case redisClient != nil:
		distributedLock = redisadapter.NewLock(redisClient)
	case db != nil:
		distributedLock = postgres.NewAdvisoryLock(db)
	}

	// ===== AI backends =====
	aiFactory := ai.NewFactory()

	runtimeConfig := domain.NewRuntimeConfig(historyBackend, queueBackend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	embedder, err := aiFactory.CreateEmbeddingService(&aiSettings.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embedder != nil {
		if err := embedder.HealthCheck(ctx); err != nil {
			// Kept anyway: a flaky start should not disable retrieval for the process lifetime
			log.Printf("Warning: embedding health check failed: %v", err)
		}
		runtimeServices.SetEmbeddingService(embedder)
	}

	chatGateway, err := newGateway(aiFactory, "chat", aiSettings, settings, metrics, logger)
	if err != nil {
		log.Fatalf("Failed to create chat backends: %v", err)
	}
	probeSettings := aiSettings
	if model := getEnv("CLASSIFIER_MODEL", ""); model != "" {
		probeSettings.Primary.Model = model
	}
	probeGateway, err := newGateway(aiFactory, "probe", probeSettings, settings, metrics, logger)
	if err != nil {
		log.Fatalf("Failed to create classifier backends: %v", err)
	}
	runtimeConfig.SetGenerationAvailable(chatGateway != nil)
	if chatGateway == nil && mode != "worker" {
		log.Fatalf("No generation backend configured (set AI_PROVIDER, CHAT_MODEL and AI_API_KEY)")
	}

	// ===== Index =====
	indexStore, err := sqlite.NewIndexStore(indexPath)
	if err != nil {
		log.Fatalf("Failed to open index store: %v", err)
	}
	defer indexStore.Close()

	pipeline := postprocessors.NewPipelineWithConfig(postprocessors.ChunkConfig{
		MaxChunkSize: settings.ChunkSize,
		Overlap:      settings.ChunkOverlap,
		Separators:   postprocessors.DefaultSeparators,
	})
	loader := services.NewCorpusLoader(corpus.NewFilesystemSource(corpusDir), normalisers.DefaultRegistry(), pipeline, logger)

	indexService := services.NewIndexService(services.IndexServiceConfig{
		Loader:   loader,
		Store:    indexStore,
		Services: runtimeServices,
		Builder:  vectorindex.Build,
		Lock:     distributedLock,
		Settings: settings,
		Metrics:  metrics,
		Logger:   logger,
	})
	taskService := services.NewTaskService(taskQueue, indexService, logger)

	log.Printf("Runtime config: history=%s, queue=%s, embedding=%t, generation=%t, retriever=%s",
		runtimeConfig.HistoryBackend,
		runtimeConfig.QueueBackend,
		runtimeConfig.EmbeddingAvailable(),
		runtimeConfig.GenerationAvailable(),
		runtimeConfig.EffectiveRetriever(settings.Retriever))

	var wg sync.WaitGroup

	if mode == "worker" || mode == "all" {
		if taskQueue == nil {
			log.Println("No task queue configured, rebuilds run inline and the worker is not started")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runWorkerMode(ctx, taskQueue, indexService, metrics, logger)
			}()
		}
	}

	if mode == "api" || mode == "all" {
		// IngestError here means an empty or unreadable corpus
		if getEnvBool("INDEX_REBUILD_ON_START", false) {
			if _, err := indexService.Rebuild(ctx); err != nil {
				log.Fatalf("Failed to build index: %v", err)
			}
		} else if err := indexService.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize index: %v", err)
		}

		// Queued rebuilds may run in another process; pick up their artifact
		if interval := getEnvDuration("INDEX_RELOAD_INTERVAL", worker.DefaultReloadInterval); taskQueue != nil && interval > 0 {
			reloader := worker.NewReloader(indexService, interval, logger)
			wg.Add(1)
			go func() {
				defer wg.Done()
				reloader.Run(ctx)
			}()
		}

		rules, err := topics.Load(getEnv("TOPIC_RULES_PATH", ""))
		if err != nil {
			log.Fatalf("Failed to load topic rules: %v", err)
		}
		router, err := services.NewTopicRouter(rules)
		if err != nil {
			log.Fatalf("Invalid topic rules: %v", err)
		}

		assistant := services.NewAssistantService(services.AssistantConfig{
			Classifier:   services.NewClassifier(probeGateway, metrics, logger),
			Router:       router,
			Retriever:    services.NewRetriever(settings, runtimeServices, metrics, logger),
			Assembler:    services.NewContextAssembler(settings.ContextBudget),
			Generator:    chatGateway,
			History:      historyStore,
			HistoryTurns: settings.HistoryTurns,
			Metrics:      metrics,
			Logger:       logger,
		})
		authService := services.NewAuthService(auth.NewAdapterWithIssuer(jwtSecret, getEnv("JWT_ISSUER", "")))

		checks := make(map[string]http.Pinger)
		if db != nil {
			checks["postgres"] = db
		}
		if redisClient != nil {
			checks["redis"] = redisPinger(redisClient)
		}
		if taskQueue != nil {
			checks["queue"] = taskQueue
		}

		runAPI(ctx, port, authService, assistant, indexService, taskService, metrics, logger, checks)

		// Pending history writes outlive the request that produced them
		log.Println("Flushing chat history...")
		assistant.Wait()
	}

	<-ctx.Done()
	wg.Wait()
	log.Println("neoosi-core stopped")
}

func runAPI(
	ctx context.Context,
	port int,
	authService driving.AuthService,
	assistant driving.AssistantService,
	indexService driving.IndexService,
	taskService driving.TaskService,
	metrics *observability.Metrics,
	logger *slog.Logger,
	checks map[string]http.Pinger,
) {
	cfg := http.DefaultConfig()
	cfg.Port = port
	cfg.Version = version
	cfg.CORSOrigins = strings.Split(getEnv("CORS_ORIGINS", "*"), ",")

	server := http.NewServer(cfg, authService, assistant, indexService, taskService, metrics, logger)
	for name, p := range checks {
		server.AddReadinessCheck(name, p)
	}

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode processes rebuild tasks until ctx is cancelled
func runWorkerMode(
	ctx context.Context,
	taskQueue driven.TaskQueue,
	indexService driving.IndexService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) {
	log.Println("Starting worker mode...")

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		Index:          indexService,
		Metrics:        metrics,
		Logger:         logger,
		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 1),
		DequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, handling rebuild_index tasks")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// newGateway builds a gateway over the primary and optional secondary
// backends. Returns nil when no primary is configured.
func newGateway(
	factory *ai.Factory,
	purpose string,
	aiSettings domain.AISettings,
	settings domain.RetrievalSettings,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*services.Gateway, error) {
	primary, err := factory.CreateGenerator(purpose+"-primary", &aiSettings.Primary)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, nil
	}

	var secondary driven.Generator
	if aiSettings.Secondary != nil {
		secondary, err = factory.CreateGenerator(purpose+"-secondary", aiSettings.Secondary)
		if err != nil {
			return nil, err
		}
	}

	return services.NewGateway(services.GatewayConfig{
		Primary:     primary,
		Secondary:   secondary,
		MaxAttempts: settings.MaxAttempts,
		BaseBackoff: settings.BaseBackoff,
		Metrics:     metrics,
		Logger:      logger.With("gateway", purpose),
	}), nil
}

func retrievalSettingsFromEnv() domain.RetrievalSettings {
	d := domain.DefaultRetrievalSettings()
	return domain.RetrievalSettings{
		Retriever:          domain.RetrieverKind(getEnv("RETRIEVER", string(d.Retriever))),
		ChunkSize:          getEnvInt("CHUNK_SIZE", d.ChunkSize),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", d.ChunkOverlap),
		TopK:               getEnvInt("RETRIEVAL_TOP_K", d.TopK),
		MinTermLength:      getEnvInt("MIN_TERM_LENGTH", d.MinTermLength),
		ContextBudget:      getEnvInt("CONTEXT_BUDGET", d.ContextBudget),
		MaxAttempts:        getEnvInt("GENERATION_MAX_ATTEMPTS", d.MaxAttempts),
		BaseBackoff:        getEnvDuration("GENERATION_BACKOFF", d.BaseBackoff),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", d.EmbeddingBatchSize),
		EmbeddingRPS:       getEnvFloat("EMBEDDING_RPS", d.EmbeddingRPS),
		HistoryTurns:       getEnvInt("HISTORY_TURNS", d.HistoryTurns),
	}
}

func aiSettingsFromEnv() domain.AISettings {
	provider := domain.AIProvider(getEnv("AI_PROVIDER", string(domain.AIProviderGemini)))
	apiKey := getEnv("AI_API_KEY", "")
	baseURL := getEnv("AI_BASE_URL", "")

	s := domain.AISettings{
		Embedding: domain.BackendSettings{
			Provider: domain.AIProvider(getEnv("EMBEDDING_PROVIDER", string(provider))),
			Model:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			APIKey:   getEnv("EMBEDDING_API_KEY", apiKey),
			BaseURL:  getEnv("EMBEDDING_BASE_URL", baseURL),
		},
		Primary: domain.BackendSettings{
			Provider: provider,
			Model:    getEnv("CHAT_MODEL", "gemini-2.5-flash"),
			APIKey:   apiKey,
			BaseURL:  baseURL,
		},
	}

	if model := getEnv("FALLBACK_CHAT_MODEL", ""); model != "" {
		s.Secondary = &domain.BackendSettings{
			Provider: domain.AIProvider(getEnv("FALLBACK_AI_PROVIDER", string(provider))),
			Model:    model,
			APIKey:   getEnv("FALLBACK_AI_API_KEY", apiKey),
			BaseURL:  getEnv("FALLBACK_AI_BASE_URL", baseURL),
		}
	}
	return s
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type redisPingFunc func(ctx context.Context) error

func (f redisPingFunc) Ping(ctx context.Context) error { return f(ctx) }

func redisPinger(client *redis.Client) http.Pinger {
	return redisPingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
		log.Printf("Warning: invalid %s=%q, using %g", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}
