package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/etfolio/backend/src/config"
	"github.com/username/etfolio/backend/src/database"
	"github.com/username/etfolio/backend/src/handlers"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":     true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Cookie")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("etfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	datasetCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	sessionStore := handlers.NewSessionStore(config.Cfg.SessionTTL)

	marketService := services.NewMarketService(config.Cfg.MarketAPIBaseURL, config.Cfg.MarketAPITimeout)
	refreshService := services.NewRefreshService(
		database.DB, marketService, config.Cfg.SnapshotPath, config.Cfg.Instruments)
	analyzerService := services.NewAnalyzerService(config.Cfg.SnapshotPath, datasetCache)

	if err := refreshService.Schedule(config.Cfg.RefreshCron); err != nil {
		stdlog.Fatalf("Failed to schedule refresh job: %v", err)
	}
	defer refreshService.Stop()

	if config.Cfg.RefreshOnStart {
		go refreshService.Run(context.Background())
	}

	analyzerHandler := handlers.NewAnalyzerHandler(analyzerService)
	portfolioHandler := handlers.NewPortfolioHandler(analyzerService)
	projectionHandler := handlers.NewProjectionHandler()
	statusHandler := handlers.NewStatusHandler(analyzerService, refreshService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "etfolio backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionStore.Middleware)

		r.Get("/status", statusHandler.HandleGetStatus)

		r.Get("/etfs", analyzerHandler.HandleListETFs)
		r.Get("/etfs/frequency-groups", analyzerHandler.HandleFrequencyGroups)
		r.Get("/etfs/search", analyzerHandler.HandleSearch)
		r.Get("/etfs/{code}", analyzerHandler.HandleGetETF)

		r.Get("/portfolio", portfolioHandler.HandleGetPortfolio)
		r.Put("/portfolio/{code}", portfolioHandler.HandleSetQuantity)
		r.Delete("/portfolio/{code}", portfolioHandler.HandleRemoveETF)
		r.Get("/portfolio/summary", portfolioHandler.HandleGetSummary)

		r.Post("/projection", projectionHandler.HandleProject)
		r.Get("/projection", projectionHandler.HandleGetProjectionInput)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
