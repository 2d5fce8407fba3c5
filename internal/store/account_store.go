package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/models"
)

type AccountStore struct {
	db DB
}

type AccountWithUser struct {
	UserID        string          `db:"user_id" json:"user_id"`
	Name          *string         `db:"name" json:"name,omitempty"`
	Email         *string         `db:"email" json:"email,omitempty"`
	WalletBalance decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	TaxBalance    decimal.Decimal `db:"tax_balance" json:"tax_balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create opens an account with both balances at zero.
func (s *AccountStore) Create(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, wallet_balance, tax_balance)
		VALUES ($1, 0, 0)
	`, userID)
	return err
}

func (s *AccountStore) Get(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, wallet_balance, tax_balance, created_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// GetForUpdate locks the account row. Every ledger mutation takes this lock
// first, which serializes writers per user.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, wallet_balance, tax_balance, created_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalances(ctx context.Context, tx Execer, userID string, wallet, tax decimal.Decimal) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE accounts
		SET wallet_balance = $1, tax_balance = $2, updated_at = NOW()
		WHERE user_id = $3
	`, wallet, tax, userID))
}

func (s *AccountStore) Delete(ctx context.Context, tx Execer, userID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID))
}

func (s *AccountStore) ListAllWithUsers(ctx context.Context, limit, offset int) ([]AccountWithUser, error) {
	var rows []AccountWithUser
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.user_id, u.name, u.email, a.wallet_balance, a.tax_balance, a.created_at
		FROM accounts a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
