// Package main provides the entry point for the ShrtLink URL Shortener service.
//
//	@title			ShrtLink URL Shortener API
//	@version		1.0.0
//	@description	Link resolution and click analytics engine.
//
//	@contact.name	ShrtLink Support
//	@contact.email	support@shrtlink.dev
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/database"
	httpHandler "ShrtLink-Backend/internal/handler/http"
	"ShrtLink-Backend/internal/repository"
	"ShrtLink-Backend/internal/repository/memory"
	"ShrtLink-Backend/internal/repository/postgres"
	"ShrtLink-Backend/internal/service"
	"ShrtLink-Backend/pkg/logger"
	"ShrtLink-Backend/pkg/useragent"
	"context"
	"errors"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "ShrtLink-Backend/docs" // Import swagger docs
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting ShrtLink service", zap.String("env", cfg.Env))

	storage, db := mustOpenStorage(cfg, log)
	if db != nil {
		defer func() {
			if err := database.Close(db, log); err != nil {
				log.Error("failed to close database connection", zap.Error(err))
			}
		}()
	}

	resolutionCache := mustOpenCache(&cfg.Cache, log)

	// Initialize User-Agent parser
	parser := useragent.NewParser(log)
	if cfg.UserAgent.RegexesPath != "" {
		p, err := useragent.NewParserWithRegexes(cfg.UserAgent.RegexesPath, log)
		if err != nil {
			log.Warn("failed to initialize uap-go parser, using rules only", zap.Error(err))
		} else {
			parser = p
		}
	}

	// Click ingestion
	recorder, err := analytics.NewRecorder(storage, parser, nil, cfg.Analytics.NodeID, log)
	if err != nil {
		log.Fatal("failed to create click recorder", zap.Error(err))
	}
	processor := analytics.NewProcessor(recorder, log, analytics.ProcessorConfig{
		WorkerCount:     cfg.Analytics.Workers,
		BufferSize:      cfg.Analytics.BufferSize,
		RetryAttempts:   cfg.Analytics.RetryAttempts,
		RetryDelay:      cfg.Analytics.RetryDelay,
		JobTimeout:      cfg.Analytics.JobTimeout,
		ShutdownTimeout: cfg.Analytics.ShutdownTimeout,
	})
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start click processor", zap.Error(err))
	}

	var dispatcher service.ClickDispatcher = processor
	var stream *analytics.ClickStream
	if cfg.Analytics.Transport == "nats" {
		stream, err = analytics.Connect(cfg.Analytics.NATSURL, log)
		if err != nil {
			log.Fatal("failed to connect to nats", zap.Error(err))
		}
		if _, err := analytics.SubscribeClicks(stream.Conn, cfg.Analytics.NATSSubject, cfg.Analytics.NATSQueueGroup, processor, log); err != nil {
			log.Fatal("failed to subscribe to click stream", zap.Error(err))
		}
		dispatcher = analytics.NewNATSPublisher(stream.Conn, cfg.Analytics.NATSSubject, log)
	}

	// Services
	hasher := auth.NewPasswordServiceWithCost(cfg.URLShortener.PasswordCost)
	resolver := service.NewResolver(storage, resolutionCache, hasher, dispatcher, service.ResolverConfig{
		Timeout:  cfg.URLShortener.ResolveTimeout,
		CacheTTL: cfg.Cache.TTL,
	}, log)
	shortener := service.NewURLShortener(storage, resolutionCache, hasher, &cfg.URLShortener, log)
	aggregator := analytics.NewAggregator(storage, analytics.AggregatorConfig{
		DefaultDays: cfg.Analytics.DefaultDays,
		MaxDays:     cfg.Analytics.MaxDays,
	}, log)

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.JWT.Secret),
		AccessTokenDuration: cfg.JWT.AccessTokenTTL,
		Issuer:              cfg.JWT.Issuer,
		Leeway:              cfg.JWT.Leeway,
	})

	httpAPIServer := httpHandler.NewServer(httpHandler.Dependencies{
		Resolver:       resolver,
		Shortener:      shortener,
		Aggregator:     aggregator,
		Storage:        storage,
		Processor:      processor,
		Cache:          resolutionCache,
		AuthMiddleware: auth.NewMiddleware(jwtService, cfg.HTTPServer.AllowedOrigins, log),
		URLShortener:   &cfg.URLShortener,
	}, log)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      httpAPIServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down ShrtLink service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Every click already delivered by NATS must reach the queue before it closes
	if stream != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		if err := stream.Drain(drainCtx); err != nil {
			log.Error("failed to drain nats connection", zap.Error(err))
		} else {
			log.Info("nats click stream drained")
		}
		drainCancel()
	}

	if err := processor.Stop(); err != nil {
		log.Error("click processor did not stop cleanly", zap.Error(err))
	}
}

// mustOpenStorage returns the configured storage and, for postgres, the
// underlying connection so main can close it.
func mustOpenStorage(cfg *config.Config, log *zap.Logger) (repository.Storage, *gorm.DB) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	if cfg.Database.SeedData {
		log.Info("seeding database with initial data (seed_data: true)")
		if err := database.SeedData(db, log); err != nil {
			log.Fatal("failed to seed database", zap.Error(err))
		}
	}

	return postgres.New(db, log), db
}

func mustOpenCache(cfg *config.Cache, log *zap.Logger) cache.ResolutionCache {
	switch cfg.Driver {
	case "none":
		log.Info("resolution cache disabled")
		return cache.NewNoop()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rc := cache.NewRedisCache(client)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// An unreachable Redis only costs cache hits
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis is unreachable, resolutions will miss the cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		log.Info("using redis resolution cache", zap.String("addr", cfg.RedisAddr))
		return rc
	default:
		log.Info("using in-memory resolution cache", zap.Duration("ttl", cfg.TTL))
		return cache.NewMemoryCache(cfg.TTL, cfg.CleanupInterval)
	}
}
