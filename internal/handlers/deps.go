package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"kosh/internal/assistant"
	"kosh/internal/models"
	"kosh/internal/savings"
	"kosh/internal/services"
	"kosh/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, name, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	UpdateName(ctx context.Context, tx store.Execer, userID, name string) (int64, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, userID string) error
	Get(ctx context.Context, userID string) (models.Account, error)
	ListAllWithUsers(ctx context.Context, limit, offset int) ([]store.AccountWithUser, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type LedgerService interface {
	CreateCampaign(ctx context.Context, req services.CreateCampaignRequest) (services.Outcome, error)
	Contribute(ctx context.Context, userID, campaignID string, amountPaid decimal.Decimal) (services.Outcome, error)
	Payout(ctx context.Context, userID, campaignID string) (services.Outcome, error)
	DeleteAccount(ctx context.Context, userID string) error
	RegisterIncome(ctx context.Context, userID string, amount decimal.Decimal) (services.IncomeResult, error)
	WithdrawTaxVault(ctx context.Context, userID string) (models.Account, decimal.Decimal, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, userID string) (services.Dashboard, error)
	Actions(ctx context.Context, userID string) ([]savings.Action, error)
	ActiveCampaign(ctx context.Context, userID string) (*models.Campaign, error)
	History(ctx context.Context, userID string) ([]models.Campaign, error)
	Contributions(ctx context.Context, userID, campaignID string) ([]models.Contribution, error)
	TopUps(ctx context.Context, userID string, page, limit int) (services.TopUpPage, error)
}

type Coach interface {
	Stream(ctx context.Context, req assistant.Request, emit func(chunk string) error) error
}
