package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"claimwatch/internal/api/handlers"
	mw "claimwatch/internal/api/middleware"
	"claimwatch/internal/config"
	"claimwatch/internal/domain"
	"claimwatch/internal/embedding"
	"claimwatch/internal/service"
	"claimwatch/internal/stance"
	"claimwatch/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Orchestrator *service.Orchestrator
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(pool *pgxpool.Pool, logger *zap.Logger) *App {
	db := store.New(pool)
	locks := service.NewClaimLocks()

	// External clients via provider factories
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey(), config.EmbeddingModel())
	if err != nil {
		logger.Warn("embedding client initialization failed, using mock",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embeddingClient = embedding.NewMockClient(config.EmbeddingDim())
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	classifier, err := stance.NewClassifier(config.StanceProvider(), config.OllamaURL(), config.OllamaModel())
	if err != nil {
		logger.Warn("stance classifier initialization failed, using heuristic",
			zap.String("provider", config.StanceProvider()), zap.Error(err))
		classifier = stance.Heuristic{}
	} else {
		logger.Info("stance classifier initialized", zap.String("provider", config.StanceProvider()))
	}

	// Services
	canonSvc := service.NewCanonicalizer(db, locks, logger)
	canonSvc.SimilarityThreshold = config.ClaimSimThreshold()
	confidenceSvc := service.NewConfidenceService(db, locks, logger)
	decaySvc := service.NewDecayService(db, locks, logger)
	decaySvc.DecayAfterDays = config.DecayDays()
	agent := service.NewEvolutionAgent(db, classifier, decaySvc, locks, logger)
	orchestrator := service.NewOrchestrator(db, agent, decaySvc, logger)
	orchestrator.ReconcileInterval = config.ReconcileInterval()
	orchestrator.DecayInterval = config.DecayInterval()
	ingestSvc := service.NewIngestService(db, canonSvc, confidenceSvc, embeddingClient, classifier, logger)

	// Handlers
	ingestHandler := handlers.NewIngestHandler(ingestSvc)
	claimHandler := handlers.NewClaimHandler(db, embeddingClient)
	agentHandler := handlers.NewAgentHandler(orchestrator, db)
	eventHandler := handlers.NewEventHandler(db)

	r := chi.NewRouter()

	app := &App{
		Router:       r,
		Orchestrator: orchestrator,
		startTime:    time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(pool))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ingest", func(r chi.Router) {
			r.Post("/text", ingestHandler.Text)
			r.Post("/meme", ingestHandler.Meme)
		})

		r.Route("/claims", func(r chi.Router) {
			r.Get("/search", claimHandler.Search)
			r.Get("/{id}", claimHandler.GetByID)
		})

		r.Route("/agent", func(r chi.Router) {
			r.Post("/run", agentHandler.Run)
			r.Post("/decay", agentHandler.Decay)
			r.Get("/progress/{name}", agentHandler.Progress)
		})

		r.Get("/events/recent", eventHandler.Recent)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage lifecycle themselves.
func NewRouter(pool *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(pool, logger).Router
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.ClaimStore       = (*store.ClaimStore)(nil)
	_ domain.EvidenceStore    = (*store.EvidenceStore)(nil)
	_ domain.MediaStore       = (*store.MediaStore)(nil)
	_ domain.SourceStore      = (*store.SourceStore)(nil)
	_ domain.EventStore       = (*store.EventStore)(nil)
	_ domain.ProgressStore    = (*store.ProgressStore)(nil)
	_ domain.DB               = (*store.PG)(nil)
	_ domain.EmbeddingClient  = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient  = (*embedding.MockClient)(nil)
	_ domain.StanceClassifier = (*stance.OllamaClient)(nil)
	_ domain.StanceClassifier = stance.Heuristic{}
	_ domain.StanceClassifier = (*stance.Fallback)(nil)
	_ domain.StanceClassifier = (*stance.MockClassifier)(nil)
)
