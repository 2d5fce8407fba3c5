package store

import (
	"context"

	"kosh/internal/models"
)

type ContributionStore struct {
	db DB
}

func NewContributionStore(db DB) *ContributionStore {
	return &ContributionStore{db: db}
}

func (s *ContributionStore) Create(ctx context.Context, tx Execer, c models.Contribution) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contributions (id, campaign_id, user_id, kind, amount, due_date, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.CampaignID, c.UserID, c.Kind, c.Amount, c.DueDate, c.PaidAt)
	return err
}

// ListByCampaign returns the journal of one campaign, oldest first. The
// user filter keeps other users' journals out of reach.
func (s *ContributionStore) ListByCampaign(ctx context.Context, userID, campaignID string) ([]models.Contribution, error) {
	var rows []models.Contribution
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, campaign_id, user_id, kind, amount, due_date, paid_at
		FROM contributions
		WHERE campaign_id = $1 AND user_id = $2
		ORDER BY paid_at ASC
	`, campaignID, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ContributionStore) DeleteByUser(ctx context.Context, tx Execer, userID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `DELETE FROM contributions WHERE user_id = $1`, userID))
}
