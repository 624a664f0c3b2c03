package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"concept-insight/api"
	"concept-insight/cache"
	"concept-insight/config"
	"concept-insight/database"
	"concept-insight/database/derived"
	"concept-insight/database/registry"
	"concept-insight/database/trading"
	"concept-insight/engine"
	"concept-insight/realtime"
)

// App represents the main application
type App struct {
	config       *config.Config
	db           *database.Database
	bulkDB       *database.BulkDB
	redis        *cache.RedisClient
	broker       *realtime.Broker
	orchestrator *engine.Orchestrator
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

// eventSink fans recompute lifecycle events out to the SSE/websocket broker
// and, when Redis is available, to the recompute:events pub/sub channel so
// other processes can observe committed recomputes.
type eventSink struct {
	broker *realtime.Broker
	redis  *cache.RedisClient
}

func (s *eventSink) PublishRecomputeEvent(event engine.Event) {
	s.broker.Broadcast(event)
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redis.Publish(ctx, "recompute:events", event); err != nil {
			log.Printf("⚠️  Failed to publish recompute event: %v", err)
		}
	}
}

// Start starts the application
func (a *App) Start() error {
	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// Dedicated lib/pq pool for COPY-based imports; optional
	bulkDB, err := database.NewBulkConnection(database.BulkConfig{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		log.Printf("⚠️  Bulk ingest connection unavailable, imports fall back to batched inserts: %v", err)
	} else {
		a.bulkDB = bulkDB
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Cross-process locking and caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Repositories
	registryRepo := registry.NewRepository(a.db.DB())
	tradingRepo := trading.NewRepository(a.db.DB(), a.bulkDB)
	derivedRepo := derived.NewRepository(a.db.DB())

	// 4. Realtime broker
	a.broker = realtime.NewBroker()
	go a.broker.Run()

	// 5. Recompute orchestrator
	var locker engine.Locker
	if a.redis != nil && !a.config.Engine.DisableRedisLock {
		locker = a.redis
	}
	a.orchestrator = engine.NewOrchestrator(
		tradingRepo,
		registryRepo,
		derivedRepo,
		locker,
		&eventSink{broker: a.broker, redis: a.redis},
		a.config.Engine.NewHighLookbackDays,
	)
	log.Printf("✅ Recompute engine ready (lookback %d trading days)", a.config.Engine.NewHighLookbackDays)

	// 6. API Server
	apiServer := api.NewServer(registryRepo, tradingRepo, derivedRepo, a.orchestrator, a.broker, a.redis, a.bulkDB, a.config.Engine)
	go func() {
		if err := apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 7. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown()
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownComplete := make(chan struct{})
	go func() {
		if a.bulkDB != nil {
			if err := a.bulkDB.Close(); err != nil {
				log.Printf("Error closing bulk connection: %v", err)
			} else {
				fmt.Println("✅ Bulk ingest connection closed")
			}
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-time.After(10 * time.Second):
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
