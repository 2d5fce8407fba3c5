package main

import (
	"os"

	"kosh/internal/config"
	"kosh/internal/db"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger("migrate")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database schema is current")
}
