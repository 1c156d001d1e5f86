package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"leadagent/internal/config"
	"leadagent/internal/conversation"
	"leadagent/internal/events"
	"leadagent/internal/handler"
	"leadagent/internal/logger"
	"leadagent/internal/model"
	"leadagent/internal/repository"
	"leadagent/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Lead qualification engine", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize the record store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open record store", "driver", cfg.Store.Driver, "error", err)
	}
	defer store.Close()

	// Event bus
	var bus events.Bus = events.NopBus{}
	if cfg.Redis.Enabled {
		redisBus, err := events.NewRedisBus(ctx, cfg.Redis.Addr, cfg.Redis.Channel, log)
		if err != nil {
			log.Warn("Redis unavailable, events will not be published", "addr", cfg.Redis.Addr, "error", err)
		} else {
			bus = redisBus
			log.Info("Publishing events to Redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
		}
	}
	defer bus.Close()

	// Classifier and responder
	var classifier service.Classifier
	var responder service.Responder
	if cfg.OpenAI.Enabled {
		openaiClient := service.NewOpenAIClient(&cfg.OpenAI, log)
		classifier = openaiClient
		responder = openaiClient
		log.Info("OpenAI client initialized",
			"api_base", cfg.OpenAI.APIBase,
			"chat_model", cfg.OpenAI.ChatModel,
			"temperature", cfg.OpenAI.ChatTemperature,
			"max_tokens", cfg.OpenAI.ChatMaxTokens,
		)
	} else {
		log.Warn("OpenAI is disabled, every message is qualified with the fallback result. Set OPENAI_API_KEY to enable classification")
	}

	if cfg.Gemini.Enabled {
		gemini, err := service.NewGeminiResponder(ctx, &cfg.Gemini, log)
		if err != nil {
			log.Warn("Gemini responder unavailable", "error", err)
		} else {
			responder = gemini
		}
	}
	if responder == nil {
		log.Warn("No reply model configured, conversational replies use the fallback text")
	}

	// Initialize services
	memory := conversation.NewMemory(cfg.Conversation.MaxTurns)
	analytics := service.NewAnalytics()

	agent := service.NewLeadAgent(service.LeadAgentDeps{
		Classifier:        classifier,
		Memory:            memory,
		Leads:             store,
		Interactions:      store,
		Catalog:           store,
		Bus:               bus,
		Analytics:         analytics,
		ClassifierTimeout: cfg.Classifier.Timeout,
		Log:               log,
	})
	chat := service.NewChatService(service.ChatServiceDeps{
		Leads:        store,
		Interactions: store,
		Catalog:      store,
		Bus:          bus,
		Log:          log,
	})
	conversational := service.NewConversationalAgent(agent, responder, 0, log)
	leads := service.NewLeadService(store, log)

	log.Info("Services initialized")

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	corsConfig.ExposeHeaders = []string{handler.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	handler.RegisterRoutes(router, handler.Handlers{
		Leads:         handler.NewLeadHandler(agent, leads),
		Chat:          handler.NewChatHandler(chat, conversational),
		Conversations: handler.NewConversationHandler(memory),
		Analytics:     handler.NewAnalyticsHandler(analytics),
	}, handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}

// openStore builds the configured record store and loads the optional catalog seed
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, error) {
	var seed []model.Property
	if cfg.Catalog.SeedFile != "" {
		props, err := repository.LoadCatalog(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = props
	}

	switch cfg.Store.Driver {
	case "memory":
		log.Info("Using in-memory record store", "catalog_size", len(seed))
		return repository.NewMemoryStore(seed), nil

	case repository.DriverPostgres, repository.DriverSQLite:
		dsn := cfg.GetPostgreSQLDSN()
		if cfg.Store.Driver == repository.DriverSQLite {
			dsn = cfg.Store.SQLitePath
		}

		store, err := repository.NewSQLStore(cfg.Store.Driver, dsn, repository.SQLOptions{
			MaxConnections:     cfg.Store.MaxConnections,
			MaxIdleConnections: cfg.Store.MaxIdleConnections,
		}, log)
		if err != nil {
			return nil, err
		}

		if cfg.Store.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		if len(seed) > 0 {
			n, err := store.SeedProperties(ctx, seed)
			if err != nil {
				store.Close()
				return nil, err
			}
			log.Info("Catalog seeded", "properties", n)
		}

		log.Info("Connected to database", "driver", cfg.Store.Driver)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
