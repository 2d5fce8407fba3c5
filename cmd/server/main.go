package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kosh/internal/assistant"
	"kosh/internal/config"
	"kosh/internal/db"
	"kosh/internal/events"
	"kosh/internal/handlers"
	"kosh/internal/money"
	"kosh/internal/savings"
	"kosh/internal/services"
	"kosh/internal/store"
	"kosh/internal/websocket"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger("server")
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	withholdRate, err := money.ParseRate(cfg.TaxWithholdRate)
	if err != nil {
		logger.Error("invalid TAX_WITHHOLD_RATE", "value", cfg.TaxWithholdRate, "error", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	campaigns := store.NewCampaignStore(database)
	contributions := store.NewContributionStore(database)
	topups := store.NewTopUpStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub(cfg.Origins()...)

	publisher := events.Connect(logger, cfg.RabbitMQURL, cfg.LedgerEventsExchange)
	defer publisher.Close()

	var window savings.WithdrawalWindow = savings.ClosedWindow{}
	if cfg.TaxSeasonMonth != 0 {
		window = savings.SeasonalWindow{Month: time.Month(cfg.TaxSeasonMonth)}
	}
	ledger := services.NewLedgerService(txRunner, accounts, campaigns, contributions, topups, users, audit, hub, publisher, window, withholdRate).
		WithLogger(logger)
	dashboard := services.NewDashboardService(accounts, campaigns, contributions, topups)

	var coach handlers.Coach
	if cfg.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiCoach(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("assistant disabled", "error", err)
		} else {
			coach = gemini
		}
	} else {
		logger.Info("no GEMINI_API_KEY configured, assistant disabled")
	}

	handler := handlers.New(txRunner, cfg, users, accounts, admin, audit, ledger, dashboard, coach, hub)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("kosh API listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
