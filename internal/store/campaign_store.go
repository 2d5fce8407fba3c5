package store

import (
	"context"
	"time"

	"kosh/internal/models"
)

type CampaignStore struct {
	db DB
}

func NewCampaignStore(db DB) *CampaignStore {
	return &CampaignStore{db: db}
}

const campaignColumns = `id, user_id, campaign_name, frequency, amount_per_contribution, total_amount,
		       amount_saved, start_date, end_date, next_due_date, is_active, payout_completed,
		       paid_out_at, on_time_contributions, total_contributions_due, created_at`

func (s *CampaignStore) Create(ctx context.Context, tx Execer, c models.Campaign) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, user_id, campaign_name, frequency, amount_per_contribution, total_amount,
		                       amount_saved, start_date, end_date, next_due_date, is_active,
		                       on_time_contributions, total_contributions_due)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		c.ID, c.UserID, c.CampaignName, c.Frequency, c.AmountPerContribution, c.TotalAmount,
		c.AmountSaved, c.StartDate, c.EndDate, c.NextDueDate, c.IsActive,
		c.OnTimeContributions, c.TotalContributionsDue,
	)
	return err
}

func (s *CampaignStore) HasActive(ctx context.Context, tx Getter, userID string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM campaigns WHERE user_id = $1 AND is_active)
	`, userID)
	return exists, err
}

func (s *CampaignStore) GetForUpdate(ctx context.Context, tx Getter, campaignID string) (models.Campaign, error) {
	var row models.Campaign
	err := tx.GetContext(ctx, &row, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1
		FOR UPDATE
	`, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}
	return row, nil
}

func (s *CampaignStore) GetActive(ctx context.Context, userID string) (models.Campaign, error) {
	var row models.Campaign
	err := s.db.GetContext(ctx, &row, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE user_id = $1 AND is_active
	`, userID)
	if err != nil {
		return models.Campaign{}, err
	}
	return row, nil
}

func (s *CampaignStore) GetByID(ctx context.Context, campaignID string) (models.Campaign, error) {
	var row models.Campaign
	err := s.db.GetContext(ctx, &row, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1
	`, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}
	return row, nil
}

// ListByUser returns every campaign the user owns, newest first.
func (s *CampaignStore) ListByUser(ctx context.Context, userID string) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CampaignStore) ListHistory(ctx context.Context, userID string) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE user_id = $1 AND NOT is_active
		ORDER BY end_date DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueBetween finds active campaigns whose next due date falls in [from, to).
func (s *CampaignStore) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE is_active AND next_due_date >= $1 AND next_due_date < $2
		ORDER BY next_due_date
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateProgress writes back the mutable fields of a campaign.
func (s *CampaignStore) UpdateProgress(ctx context.Context, tx Execer, c models.Campaign) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE campaigns
		SET amount_saved = $1,
		    next_due_date = $2,
		    is_active = $3,
		    payout_completed = $4,
		    paid_out_at = $5,
		    on_time_contributions = $6,
		    total_contributions_due = $7,
		    updated_at = NOW()
		WHERE id = $8
	`,
		c.AmountSaved, c.NextDueDate, c.IsActive, c.PayoutCompleted, c.PaidOutAt,
		c.OnTimeContributions, c.TotalContributionsDue, c.ID,
	))
}

func (s *CampaignStore) DeleteByUser(ctx context.Context, tx Execer, userID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `DELETE FROM campaigns WHERE user_id = $1`, userID))
}
