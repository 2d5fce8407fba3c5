package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kosh/internal/config"
	"kosh/internal/db"
	"kosh/internal/events"
	"kosh/internal/services"
	"kosh/internal/store"
)

func main() {
	once := flag.Bool("once", false, "publish due reminders once and exit")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.NewLogger("reminder-worker")
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	publisher := events.Connect(logger, cfg.RabbitMQURL, cfg.LedgerEventsExchange)
	defer publisher.Close()

	jobs := services.NewReminderJobs(store.NewCampaignStore(database), publisher, logger)
	if *once {
		sent, err := jobs.PublishDueReminders(context.Background())
		if err != nil {
			logger.Error("due reminder run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("due reminders published", "sent", sent)
		return
	}

	scheduler := services.NewScheduler(jobs, cfg.ReminderSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "schedule", cfg.ReminderSchedule, "error", err)
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	logger.Info("stopping reminder worker")
	select {
	case <-scheduler.Stop().Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for running jobs")
	}
}
