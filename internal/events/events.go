package events

import (
	"context"
	"time"
)

const (
	CampaignCreated      = "campaign.created"
	ContributionRecorded = "contribution.recorded"
	CampaignCompleted    = "campaign.completed"
	PayoutCompleted      = "payout.completed"
	IncomeRegistered     = "income.registered"
	VaultReleased        = "vault.released"
	AccountDeleted       = "account.deleted"
	ContributionDue      = "contribution.due"
)

// LedgerEvent describes a committed change to a user's balances or plan.
// Amounts are fixed-point strings with two decimals.
type LedgerEvent struct {
	Type          string     `json:"type"`
	UserID        string     `json:"user_id"`
	CampaignID    string     `json:"campaign_id,omitempty"`
	Amount        string     `json:"amount,omitempty"`
	WalletBalance string     `json:"wallet_balance,omitempty"`
	TaxBalance    string     `json:"tax_balance,omitempty"`
	NextDueDate   *time.Time `json:"next_due_date,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Publisher delivers ledger events after the owning transaction commits.
// Delivery is best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}
