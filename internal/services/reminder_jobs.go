package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kosh/internal/events"
	"kosh/internal/models"
	"kosh/internal/money"
)

const reminderHorizon = 24 * time.Hour

type DueCampaignFinder interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Campaign, error)
}

// ReminderJobs announces contributions that fall due soon. It only reads
// campaigns and publishes events; due dates still roll over lazily inside
// Contribute.
type ReminderJobs struct {
	campaigns DueCampaignFinder
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReminderJobs(campaigns DueCampaignFinder, publisher events.Publisher, logger *slog.Logger) *ReminderJobs {
	return &ReminderJobs{
		campaigns: campaigns,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (j *ReminderJobs) WithClock(now func() time.Time) *ReminderJobs {
	j.now = now
	return j
}

// PublishDueReminders returns how many reminders went out.
func (j *ReminderJobs) PublishDueReminders(ctx context.Context) (int, error) {
	from := j.now().UTC()
	due, err := j.campaigns.ListDueBetween(ctx, from, from.Add(reminderHorizon))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range due {
		next := c.NextDueDate
		err := j.publisher.Publish(ctx, events.LedgerEvent{
			Type:        events.ContributionDue,
			UserID:      c.UserID,
			CampaignID:  c.ID,
			Amount:      money.Format(c.AmountPerContribution),
			NextDueDate: &next,
			OccurredAt:  from,
		})
		if err != nil {
			j.logger.Warn("failed to publish due reminder", "campaign_id", c.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// RunDueReminders is the cron entry point.
func (j *ReminderJobs) RunDueReminders() {
	j.logger.Info("starting due reminder job")
	sent, err := j.PublishDueReminders(context.Background())
	if err != nil {
		j.logger.Error("due reminder job failed", "error", err)
		return
	}
	j.logger.Info("due reminder job finished", "sent", sent)
}

type Scheduler struct {
	cron     *cron.Cron
	jobs     *ReminderJobs
	schedule string
	logger   *slog.Logger
}

func NewScheduler(jobs *ReminderJobs, schedule string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		jobs:     jobs,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the reminder job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.RunDueReminders); err != nil {
		return err
	}
	s.logger.Info("scheduled due reminder job", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Stop returns a context that is done once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
