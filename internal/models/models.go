package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Account is the per-user pair of balances. Both stay non-negative.
type Account struct {
	UserID        string          `db:"user_id" json:"user_id"`
	WalletBalance decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	TaxBalance    decimal.Decimal `db:"tax_balance" json:"tax_balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi-weekly"
)

// Campaign is a fixed-schedule savings plan. At most one per user is active.
type Campaign struct {
	ID                    string          `db:"id" json:"id"`
	UserID                string          `db:"user_id" json:"user_id"`
	CampaignName          string          `db:"campaign_name" json:"campaign_name"`
	Frequency             Frequency       `db:"frequency" json:"frequency"`
	AmountPerContribution decimal.Decimal `db:"amount_per_contribution" json:"amount_per_contribution"`
	TotalAmount           decimal.Decimal `db:"total_amount" json:"total_amount"`
	AmountSaved           decimal.Decimal `db:"amount_saved" json:"amount_saved"`
	StartDate             time.Time       `db:"start_date" json:"start_date"`
	EndDate               time.Time       `db:"end_date" json:"end_date"`
	NextDueDate           time.Time       `db:"next_due_date" json:"next_due_date"`
	IsActive              bool            `db:"is_active" json:"is_active"`
	PayoutCompleted       bool            `db:"payout_completed" json:"payout_completed"`
	PaidOutAt             *time.Time      `db:"paid_out_at" json:"paid_out_at,omitempty"`
	OnTimeContributions   int             `db:"on_time_contributions" json:"on_time_contributions"`
	TotalContributionsDue int             `db:"total_contributions_due" json:"total_contributions_due"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

type ContributionKind string

const (
	ContributionInitial ContributionKind = "initial"
	ContributionRegular ContributionKind = "contribution"
	ContributionPayout  ContributionKind = "payout"
)

// Contribution is one journal line for money moving in or out of a campaign.
type Contribution struct {
	ID         string           `db:"id" json:"id"`
	CampaignID string           `db:"campaign_id" json:"campaign_id"`
	UserID     string           `db:"user_id" json:"user_id"`
	Kind       ContributionKind `db:"kind" json:"kind"`
	Amount     decimal.Decimal  `db:"amount" json:"amount"`
	DueDate    *time.Time       `db:"due_date" json:"due_date,omitempty"`
	PaidAt     time.Time        `db:"paid_at" json:"paid_at"`
}

type WalletTopUp struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
