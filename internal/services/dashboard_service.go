package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kosh/internal/models"
	"kosh/internal/savings"
)

const (
	DefaultTopUpPageSize = 5
	MaxTopUpPageSize     = 50
	dashboardTopUps      = 5
)

type AccountReader interface {
	Get(ctx context.Context, userID string) (models.Account, error)
}

type CampaignReader interface {
	GetActive(ctx context.Context, userID string) (models.Campaign, error)
	ListByUser(ctx context.Context, userID string) ([]models.Campaign, error)
	ListHistory(ctx context.Context, userID string) ([]models.Campaign, error)
	GetByID(ctx context.Context, campaignID string) (models.Campaign, error)
}

type ContributionReader interface {
	ListByCampaign(ctx context.Context, userID, campaignID string) ([]models.Contribution, error)
}

type TopUpReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WalletTopUp, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// DashboardService answers the read-only projections: health score, nudges,
// history. It never writes.
type DashboardService struct {
	accounts      AccountReader
	campaigns     CampaignReader
	contributions ContributionReader
	topups        TopUpReader
	now           func() time.Time
}

func NewDashboardService(accounts AccountReader, campaigns CampaignReader, contributions ContributionReader, topups TopUpReader) *DashboardService {
	return &DashboardService{
		accounts:      accounts,
		campaigns:     campaigns,
		contributions: contributions,
		topups:        topups,
		now:           time.Now,
	}
}

func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

type Dashboard struct {
	Account     models.Account       `json:"account"`
	Active      *models.Campaign     `json:"active_campaign"`
	History     []models.Campaign    `json:"history"`
	TopUps      []models.WalletTopUp `json:"recent_topups"`
	TopUpCount  int                  `json:"topup_count"`
	HealthScore int                  `json:"health_score"`
	Actions     []savings.Action     `json:"actions"`
}

// Dashboard loads every panel concurrently and fails as a whole if any
// lookup other than the optional active campaign fails.
func (s *DashboardService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var (
		out       Dashboard
		campaigns []models.Campaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		account, err := s.accounts.Get(gctx, userID)
		if err != nil {
			return notFoundOr(err, "load account")
		}
		out.Account = account
		return nil
	})
	g.Go(func() error {
		rows, err := s.campaigns.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("list campaigns: %w", err)
		}
		campaigns = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.topups.ListByUser(gctx, userID, dashboardTopUps, 0)
		if err != nil {
			return fmt.Errorf("list top-ups: %w", err)
		}
		out.TopUps = rows
		return nil
	})
	g.Go(func() error {
		count, err := s.topups.CountByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("count top-ups: %w", err)
		}
		out.TopUpCount = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	out.History = []models.Campaign{}
	for i := range campaigns {
		if campaigns[i].IsActive {
			active := campaigns[i]
			out.Active = &active
			continue
		}
		out.History = append(out.History, campaigns[i])
	}
	out.HealthScore = savings.HealthScore(campaigns)
	out.Actions = savings.Recommend(out.Account, out.Active, s.now())
	return out, nil
}

func (s *DashboardService) HealthScore(ctx context.Context, userID string) (int, error) {
	campaigns, err := s.campaigns.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list campaigns: %w", err)
	}
	return savings.HealthScore(campaigns), nil
}

func (s *DashboardService) Actions(ctx context.Context, userID string) ([]savings.Action, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "load account")
	}
	active, err := s.ActiveCampaign(ctx, userID)
	if err != nil {
		return nil, err
	}
	return savings.Recommend(account, active, s.now()), nil
}

// ActiveCampaign returns nil without error when the user has no active plan.
func (s *DashboardService) ActiveCampaign(ctx context.Context, userID string) (*models.Campaign, error) {
	c, err := s.campaigns.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active campaign: %w", err)
	}
	return &c, nil
}

func (s *DashboardService) History(ctx context.Context, userID string) ([]models.Campaign, error) {
	rows, err := s.campaigns.ListHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if rows == nil {
		rows = []models.Campaign{}
	}
	return rows, nil
}

func (s *DashboardService) Contributions(ctx context.Context, userID, campaignID string) ([]models.Contribution, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "load campaign")
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	rows, err := s.contributions.ListByCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	if rows == nil {
		rows = []models.Contribution{}
	}
	return rows, nil
}

type TopUpPage struct {
	TopUps     []models.WalletTopUp `json:"topups"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// TopUps pages through income history, newest first. Page numbers start at 1.
func (s *DashboardService) TopUps(ctx context.Context, userID string, page, limit int) (TopUpPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultTopUpPageSize
	}
	if limit > MaxTopUpPageSize {
		limit = MaxTopUpPageSize
	}
	var (
		rows  []models.WalletTopUp
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.topups.ListByUser(gctx, userID, limit, (page-1)*limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.topups.CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return TopUpPage{}, fmt.Errorf("list top-ups: %w", err)
	}
	if rows == nil {
		rows = []models.WalletTopUp{}
	}
	return TopUpPage{
		TopUps:     rows,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}
