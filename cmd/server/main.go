package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arturoeanton/restaurant-chatbot/internal/adapter/ai"
	"github.com/arturoeanton/restaurant-chatbot/internal/adapter/menu"
	"github.com/arturoeanton/restaurant-chatbot/internal/adapter/store"
	"github.com/arturoeanton/restaurant-chatbot/internal/adapter/weather"
	"github.com/arturoeanton/restaurant-chatbot/internal/handler"
	"github.com/arturoeanton/restaurant-chatbot/internal/logging"
	"github.com/arturoeanton/restaurant-chatbot/internal/mcp"
	"github.com/arturoeanton/restaurant-chatbot/internal/metrics"
	"github.com/arturoeanton/restaurant-chatbot/internal/middleware"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
	"github.com/arturoeanton/restaurant-chatbot/internal/service"
	"github.com/arturoeanton/restaurant-chatbot/pkg/config"
	"github.com/arturoeanton/restaurant-chatbot/web"
)

const weatherTimeout = 15 * time.Second

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	restaurant, err := config.LoadRestaurant(cfg.RestaurantProfilePath)
	if err != nil {
		slog.Error("failed to load restaurant profile", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting restaurant chatbot",
		"port", cfg.Port,
		"restaurant", restaurant.Name,
		"ai_provider", cfg.AIProvider,
		"vector_store", cfg.VectorStore,
		"mongo_uri", cfg.MaskedMongoURI(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── AI provider ──────────────────────────────────────────────────────
	provider, err := newAIProvider(cfg)
	if err != nil {
		slog.Error("failed to initialize AI provider", "error", err)
		os.Exit(1)
	}
	slog.Info("AI provider ready", "chat_model", provider.ModelName(), "embedding_model", provider.EmbeddingModel())

	// ── Document store ───────────────────────────────────────────────────
	var menuStore port.MenuStore
	if cfg.MongoURI == "" {
		slog.Warn("MONGO_URI not set, menu documents are kept in memory")
		menuStore = store.NewMemoryMenuStore()
	} else {
		mongoStore, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			slog.Error("failed to connect to MongoDB, menu documents are kept in memory", "error", err)
			menuStore = store.NewMemoryMenuStore()
		} else {
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mongoStore.Close(closeCtx); err != nil {
					slog.Warn("closing MongoDB", "error", err)
				}
			}()
			menuStore = mongoStore
		}
	}

	// ── Similarity index and audit trail ─────────────────────────────────
	var backend port.IndexBackend = store.NewMemoryIndex()
	var auditWriter middleware.AuditWriter = middleware.LogAuditWriter{}
	var pgStore *store.PostgresStore
	if cfg.VectorStore == config.VectorStorePgVector {
		pgStore, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		if err := pgStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}
		pgIndex := store.NewPgVectorIndex(pgStore)
		if err := pgIndex.Reset(ctx); err != nil {
			slog.Error("failed to reset vector index", "error", err)
			os.Exit(1)
		}
		backend = pgIndex
		auditWriter = pgStore
	}

	// ── Services ─────────────────────────────────────────────────────────
	menuClient := menu.NewClient(cfg.MenuServiceURL, cfg.MenuTimeout)
	syncService := service.NewSyncService(menuClient, menuStore, m)
	loader := service.NewLoader(menuStore)

	splitter := service.NewSplitter(
		service.WithChunkSize(cfg.ChunkSize),
		service.WithOverlap(cfg.ChunkOverlap),
	)
	kb := service.NewKnowledgeBase(provider, backend, splitter, service.KnowledgeBaseConfig{
		TopK:           cfg.RetrieverTopK,
		EmbedBatchSize: cfg.EmbedBatchSize,
	}, m)

	tools := []port.Tool{service.NewMenuSearchTool(kb)}
	weatherEnabled := cfg.WeatherAPIKey != ""
	if weatherEnabled {
		tools = append(tools, weather.NewOpenWeatherTool(cfg.WeatherBaseURL, cfg.WeatherAPIKey, restaurant.WeatherLocation, weatherTimeout))
	} else {
		slog.Warn("OPENWEATHERMAP_API_KEY not set, weather tool disabled")
	}

	sessions := service.NewSessionStore(cfg.SessionTTL, cfg.SessionMaxTurns)
	agent := service.NewAgent(provider, sessions, restaurant.SystemPrompt(weatherEnabled), service.AgentConfig{
		MaxIterations:    cfg.AgentMaxIterations,
		MaxExecutionTime: cfg.AgentMaxExecutionTime,
		SynthesisTimeout: cfg.AgentSynthesisTimeout,
	}, m, tools...)

	chatbot := service.NewChatbot(syncService, loader, kb, agent)

	// ── Scheduler ────────────────────────────────────────────────────────
	scheduler, err := service.NewScheduler(chatbot, cfg.SyncInterval)
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AgentMaxExecutionTime + cfg.AgentSynthesisTimeout + 10*time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", handler.HeaderSessionID},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	app.Use(middleware.AuditMiddleware(auditWriter))

	// ── Routes ───────────────────────────────────────────────────────────
	var limiter fiber.Handler
	if cfg.AskRatePerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.AskRatePerMinute).Handler()
	}

	handler.NewWidgetHandler(web.WidgetHTML, web.EmbedJS).Register(app)
	handler.NewChatHandler(chatbot, limiter, m).Register(app)
	handler.NewSyncHandler(chatbot).Register(app)
	handler.NewSearchHandler(kb, cfg.RetrieverTopK).Register(app)
	handler.NewHealthHandler(cfg.AppName, chatbot).Register(app)
	if pgStore != nil {
		handler.NewAuditHandler(pgStore).Register(app)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	app.Use("/static", static.New(cfg.StaticDir))

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer, err := mcp.NewServer(cfg.AppName, chatbot, cfg.MCPPort)
		if err != nil {
			slog.Error("failed to create MCP server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := mcpServer.Start(ctx); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := scheduler.Stop(); err != nil {
			slog.Warn("scheduler shutdown", "error", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newAIProvider(cfg *config.Config) (port.AIProvider, error) {
	if cfg.AIProvider == config.ProviderOllama {
		return ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.OllamaChatModel,
				Token:   cfg.OllamaChatToken,
			},
			cfg.AIRequestTimeout,
		), nil
	}
	azure, err := ai.NewAzureOpenAIProvider(ai.AzureConfig{
		Endpoint:            cfg.AzureEndpoint,
		APIKey:              cfg.AzureAPIKey,
		APIVersion:          cfg.AzureAPIVersion,
		ChatDeployment:      cfg.AzureDeployment,
		EmbeddingDeployment: cfg.AzureEmbeddingDeployment,
		Timeout:             cfg.AIRequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return azure, nil
}
