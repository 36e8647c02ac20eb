package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/modules/audit"
	"github.com/aristath/paper-trader/internal/modules/market"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
	"github.com/aristath/paper-trader/internal/modules/trading"
	"github.com/aristath/paper-trader/internal/modules/watchlist"
)

// Config holds server configuration and module handlers
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger

	Market    *market.Handlers
	Portfolio *portfolio.Handlers
	Trading   *trading.Handlers
	Watchlist *watchlist.Handlers
	Audit     *audit.Handlers
	System    *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", cfg.Market.HandleSearchStocks)
			r.Post("/", cfg.Market.HandleCreateStock)
			r.Get("/{symbol}", cfg.Market.HandleGetStock)
			r.Put("/{symbol}/quote", cfg.Market.HandleUpdateQuote)
			r.Get("/{symbol}/history", cfg.Market.HandleGetHistory)
			r.Get("/{symbol}/statistics", cfg.Market.HandleGetStatistics)
			r.Get("/{symbol}/indicators", cfg.Market.HandleGetIndicators)
		})

		r.Get("/market/status", cfg.Market.HandleMarketStatus)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Trading.HandleGetOrders)
			r.Post("/", cfg.Trading.HandleCreateOrder)
			r.Post("/process", cfg.Trading.HandleProcessPending)
			r.Get("/{id}", cfg.Trading.HandleGetOrder)
			r.Delete("/{id}", cfg.Trading.HandleCancelOrder)
			r.Post("/{id}/match", cfg.Trading.HandleExecuteMatch)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", cfg.Trading.HandleGetTrades)
			r.Get("/export", cfg.Trading.HandleExportTrades)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", cfg.Portfolio.HandleGetPortfolio)
			r.Get("/summary", cfg.Portfolio.HandleGetSummary)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", cfg.Watchlist.HandleList)
			r.Post("/", cfg.Watchlist.HandleAdd)
			r.Put("/{id}", cfg.Watchlist.HandleUpdateNotes)
			r.Delete("/{id}", cfg.Watchlist.HandleRemove)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", cfg.Audit.HandleListRecent)
			r.Get("/{entityType}/{entityID}", cfg.Audit.HandleListByEntity)
		})

		r.Get("/system/status", cfg.System.HandleSystemStatus)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
