package store

import (
	"context"

	"kosh/internal/models"
)

const TopUpStatusSuccess = "success"

type TopUpStore struct {
	db DB
}

func NewTopUpStore(db DB) *TopUpStore {
	return &TopUpStore{db: db}
}

func (s *TopUpStore) Create(ctx context.Context, tx Execer, t models.WalletTopUp) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_topups (id, user_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.Amount, t.Status, t.CreatedAt)
	return err
}

func (s *TopUpStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WalletTopUp, error) {
	var rows []models.WalletTopUp
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, status, created_at
		FROM wallet_topups
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TopUpStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM wallet_topups WHERE user_id = $1`, userID)
	return count, err
}

func (s *TopUpStore) DeleteByUser(ctx context.Context, tx Execer, userID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `DELETE FROM wallet_topups WHERE user_id = $1`, userID))
}
