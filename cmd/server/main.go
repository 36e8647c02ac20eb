package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/paper-trader/internal/config"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/events"
	"github.com/aristath/paper-trader/internal/modules/audit"
	"github.com/aristath/paper-trader/internal/modules/market"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
	"github.com/aristath/paper-trader/internal/modules/trading"
	"github.com/aristath/paper-trader/internal/modules/trading/jobs"
	"github.com/aristath/paper-trader/internal/modules/watchlist"
	"github.com/aristath/paper-trader/internal/scheduler"
	"github.com/aristath/paper-trader/internal/server"
	"github.com/aristath/paper-trader/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Paper Trader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Initialize schemas
	if err := initSchemas(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schemas")
	}

	// Event bus
	bus := events.NewBus()
	eventManager := events.NewManager(bus, log)

	// Market module
	marketHours := market.NewMarketHours(log)
	marketService := market.NewService(
		market.NewStockRepository(db.Conn(), log),
		market.NewHistoryRepository(db.Conn(), log),
		marketHours,
		eventManager,
		log,
	)

	// Portfolio module
	portfolioService := portfolio.NewService(
		portfolio.NewPositionRepository(db.Conn(), log),
		cfg.DiscountRate,
		log,
	)

	// Audit module
	auditRepo := audit.NewRepository(db.Conn(), log)
	auditService := audit.NewService(auditRepo, log)
	defer auditService.Close()

	// Trading module
	tradingService := trading.NewService(
		db.Conn(),
		trading.NewOrderRepository(db.Conn(), log),
		trading.NewTradeRepository(db.Conn(), log),
		portfolioService,
		marketService,
		marketHours,
		auditService,
		eventManager,
		cfg.DiscountRate,
		cfg.TradeLimit,
		time.Duration(cfg.DuplicateWindowSeconds)*time.Second,
		log,
	)

	// Watchlist module
	watchlistRepo := watchlist.NewRepository(db.Conn(), log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	sweepJob := jobs.NewPendingOrderSweep(tradingService, log)
	if err := sched.AddJob("@every 30s", sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep job")
	}
	sched.Start()
	defer sched.Stop()

	// Settle pending orders as soon as a fresh quote arrives.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trading.StartSweepListener(ctx, bus, tradingService, log)

	// Optional websocket quote feed
	if cfg.FeedURL != "" {
		feed := market.NewFeedClient(cfg.FeedURL, marketService, log)
		go feed.Run(ctx)
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Log:       log,
		Market:    market.NewHandlers(marketService, log),
		Portfolio: portfolio.NewHandlers(portfolioService, log),
		Trading:   trading.NewHandlers(tradingService, log),
		Watchlist: watchlist.NewHandlers(watchlistRepo, log),
		Audit:     audit.NewHandlers(auditRepo, log),
		System:    server.NewSystemHandlers(db.Conn(), marketHours, log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func initSchemas(db *database.DB) error {
	for _, initSchema := range []func(*sql.DB) error{
		market.InitSchema,
		portfolio.InitSchema,
		trading.InitSchema,
		watchlist.InitSchema,
		audit.InitSchema,
	} {
		if err := initSchema(db.Conn()); err != nil {
			return err
		}
	}
	return nil
}
