package savings

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/models"
)

type ActionType string

const (
	ActionCritical   ActionType = "critical"
	ActionUrgent     ActionType = "urgent"
	ActionInfo       ActionType = "info"
	ActionSuggestion ActionType = "suggestion"
)

type Action struct {
	ID     string     `json:"id"`
	Type   ActionType `json:"type"`
	Text   string     `json:"text"`
	Action string     `json:"action"`
}

var LowWalletThreshold = decimal.NewFromInt(20)

// Recommend derives the nudges shown on the dashboard. The wallet check and
// the campaign check are independent: the wallet item, when present, always
// comes first and at most one campaign item follows.
func Recommend(account models.Account, active *models.Campaign, now time.Time) []Action {
	actions := make([]Action, 0, 2)
	if account.WalletBalance.LessThan(LowWalletThreshold) {
		actions = append(actions, Action{
			ID:     "1",
			Type:   ActionCritical,
			Text:   "Wallet balance is low. Top up now!",
			Action: "top-up",
		})
	}

	if active == nil {
		return append(actions, Action{
			ID:     "4",
			Type:   ActionSuggestion,
			Text:   "Start a savings plan to boost your score.",
			Action: "create",
		})
	}

	days := DaysUntil(active.NextDueDate, now)
	if days <= 1 {
		return append(actions, Action{
			ID:     "2",
			Type:   ActionUrgent,
			Text:   fmt.Sprintf("Pay your %s contribution for %s.", active.Frequency, active.CampaignName),
			Action: "pay",
		})
	}
	return append(actions, Action{
		ID:     "3",
		Type:   ActionInfo,
		Text:   fmt.Sprintf("Next payment due in %d days.", days),
		Action: "wait",
	})
}

// DaysUntil counts whole days from now to due, truncated toward zero.
// Overdue dates give zero or a negative count.
func DaysUntil(due, now time.Time) int {
	return int(due.Sub(now).Hours() / 24)
}
