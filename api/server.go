package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"concept-insight/cache"
	"concept-insight/config"
	"concept-insight/database"
	models "concept-insight/database/models_pkg"
	"concept-insight/engine"
	"concept-insight/realtime"
)

// RegistryStore is the server's view of the stock/concept reference tables
type RegistryStore interface {
	GetConcepts(ctx context.Context, category string, activeOnly bool) ([]models.Concept, error)
	GetConceptByName(ctx context.Context, name string) (*models.Concept, error)
	UpsertStocks(ctx context.Context, stocks []models.Stock) error
	UpsertConcepts(ctx context.Context, concepts []models.Concept) error
	UpsertMemberships(ctx context.Context, memberships []models.StockConceptMembership) error
}

// TradingStore is the server's view of the trading_records ingest path.
// PurgeForDate must remove a date's source records and derived rows in one
// transaction.
type TradingStore interface {
	ReplaceForDate(ctx context.Context, date time.Time, records []models.TradingRecord) error
	CountForDate(ctx context.Context, date time.Time) (int64, error)
	DistinctDates(ctx context.Context) ([]time.Time, error)
	PurgeForDate(ctx context.Context, date time.Time) (int64, error)
}

// DerivedStore is the server's read-only view of the derived tables
type DerivedStore interface {
	GetSummaries(ctx context.Context, date time.Time, limit int) ([]models.ConceptDailySummary, error)
	GetRankings(ctx context.Context, conceptID int64, date time.Time, limit int) ([]models.StockConceptRanking, error)
	GetHighs(ctx context.Context, date time.Time, newOnly bool) ([]models.ConceptHighRecord, error)
	GetConceptHistory(ctx context.Context, conceptID int64, until time.Time, limit int) ([]models.ConceptDailySummary, error)
}

// Recomputer drives the aggregation pipeline on behalf of the trigger
// endpoints
type Recomputer interface {
	Run(ctx context.Context, date time.Time) (*engine.Stats, error)
	RunRange(ctx context.Context, dates []time.Time, workers int) []engine.DateResult
}

// Server handles HTTP API requests. It is a thin trigger/query surface over
// the engine and the repositories: all aggregation semantics live in the
// engine package.
type Server struct {
	registryRepo RegistryStore
	tradingRepo  TradingStore
	derivedRepo  DerivedStore
	orchestrator Recomputer
	broker       *realtime.Broker
	redis        *cache.RedisClient // optional, nil disables stats caching
	bulk         *database.BulkDB   // optional, health probe only
	engineCfg    config.EngineConfig
}

// NewServer creates a new API server instance
func NewServer(
	registryRepo RegistryStore,
	tradingRepo TradingStore,
	derivedRepo DerivedStore,
	orchestrator Recomputer,
	broker *realtime.Broker,
	redis *cache.RedisClient,
	bulk *database.BulkDB,
	engineCfg config.EngineConfig,
) *Server {
	return &Server{
		registryRepo: registryRepo,
		tradingRepo:  tradingRepo,
		derivedRepo:  derivedRepo,
		orchestrator: orchestrator,
		broker:       broker,
		redis:        redis,
		bulk:         bulk,
		engineCfg:    engineCfg,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Realtime event feeds
	mux.Handle("GET /api/events", s.broker) // SSE endpoint
	mux.HandleFunc("GET /api/events/ws", s.broker.ServeWebSocket)

	// Registry import surface
	mux.HandleFunc("POST /api/registry/stocks", s.handleImportStocks)
	mux.HandleFunc("POST /api/registry/memberships", s.handleImportMemberships)

	// Trigger surface
	mux.HandleFunc("POST /api/trading/import", s.handleImport)
	mux.HandleFunc("POST /api/trading/recalculate", s.handleRecalculate)
	mux.HandleFunc("POST /api/trading/recalculate-range", s.handleRecalculateRange)
	mux.HandleFunc("DELETE /api/trading/records", s.handleDeleteTradingDate)

	mux.HandleFunc("GET /api/trading/stats", s.handleGetRecomputeStats)

	// Query surface over the derived tables
	mux.HandleFunc("GET /api/concepts", s.handleGetConcepts)
	mux.HandleFunc("GET /api/concepts/summaries", s.handleGetSummaries)
	mux.HandleFunc("GET /api/concepts/{id}/rankings", s.handleGetRankings)
	mux.HandleFunc("GET /api/concepts/{id}/history", s.handleGetConceptHistory)
	mux.HandleFunc("GET /api/highs", s.handleGetHighs)
	mux.HandleFunc("GET /api/trading/dates", s.handleGetTradingDates)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{"status": "ok"}
	switch {
	case s.bulk == nil:
		health["bulk_ingest"] = "disabled"
	case s.bulk.Ping() != nil:
		health["bulk_ingest"] = "down"
	default:
		health["bulk_ingest"] = "ok"
	}
	respondJSON(w, http.StatusOK, health)
}
