package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"kosh/internal/assistant"
	"kosh/internal/auth"
	"kosh/internal/config"
	"kosh/internal/models"
	"kosh/internal/savings"
	"kosh/internal/services"
	"kosh/internal/store"
	"kosh/internal/websocket"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, name, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
	updateNameFn func(ctx context.Context, tx store.Execer, userID, name string) (int64, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, name, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, name, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) UpdateName(ctx context.Context, tx store.Execer, userID, name string) (int64, error) {
	if s.updateNameFn == nil {
		return 1, nil
	}
	return s.updateNameFn(ctx, tx, userID, name)
}

type stubAccountStore struct {
	createFn           func(ctx context.Context, tx store.Execer, userID string) error
	getFn              func(ctx context.Context, userID string) (models.Account, error)
	listAllWithUsersFn func(ctx context.Context, limit, offset int) ([]store.AccountWithUser, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, userID string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, userID)
}

func (s stubAccountStore) Get(ctx context.Context, userID string) (models.Account, error) {
	if s.getFn == nil {
		return models.Account{UserID: userID}, nil
	}
	return s.getFn(ctx, userID)
}

func (s stubAccountStore) ListAllWithUsers(ctx context.Context, limit, offset int) ([]store.AccountWithUser, error) {
	if s.listAllWithUsersFn == nil {
		return nil, nil
	}
	return s.listAllWithUsersFn(ctx, limit, offset)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn     func(ctx context.Context, userID, role string) (bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdminFn func(ctx context.Context) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context, _ store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return []models.AuditLog{}, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubLedger struct {
	createCampaignFn func(ctx context.Context, req services.CreateCampaignRequest) (services.Outcome, error)
	contributeFn     func(ctx context.Context, userID, campaignID string, amountPaid decimal.Decimal) (services.Outcome, error)
	payoutFn         func(ctx context.Context, userID, campaignID string) (services.Outcome, error)
	deleteAccountFn  func(ctx context.Context, userID string) error
	registerIncomeFn func(ctx context.Context, userID string, amount decimal.Decimal) (services.IncomeResult, error)
	withdrawTaxFn    func(ctx context.Context, userID string) (models.Account, decimal.Decimal, error)
}

func (s stubLedger) CreateCampaign(ctx context.Context, req services.CreateCampaignRequest) (services.Outcome, error) {
	if s.createCampaignFn == nil {
		return services.Outcome{}, nil
	}
	return s.createCampaignFn(ctx, req)
}

func (s stubLedger) Contribute(ctx context.Context, userID, campaignID string, amountPaid decimal.Decimal) (services.Outcome, error) {
	if s.contributeFn == nil {
		return services.Outcome{}, nil
	}
	return s.contributeFn(ctx, userID, campaignID, amountPaid)
}

func (s stubLedger) Payout(ctx context.Context, userID, campaignID string) (services.Outcome, error) {
	if s.payoutFn == nil {
		return services.Outcome{}, nil
	}
	return s.payoutFn(ctx, userID, campaignID)
}

func (s stubLedger) DeleteAccount(ctx context.Context, userID string) error {
	if s.deleteAccountFn == nil {
		return nil
	}
	return s.deleteAccountFn(ctx, userID)
}

func (s stubLedger) RegisterIncome(ctx context.Context, userID string, amount decimal.Decimal) (services.IncomeResult, error) {
	if s.registerIncomeFn == nil {
		return services.IncomeResult{}, nil
	}
	return s.registerIncomeFn(ctx, userID, amount)
}

func (s stubLedger) WithdrawTaxVault(ctx context.Context, userID string) (models.Account, decimal.Decimal, error) {
	if s.withdrawTaxFn == nil {
		return models.Account{}, decimal.Zero, nil
	}
	return s.withdrawTaxFn(ctx, userID)
}

type stubDashboard struct {
	dashboardFn     func(ctx context.Context, userID string) (services.Dashboard, error)
	actionsFn       func(ctx context.Context, userID string) ([]savings.Action, error)
	activeFn        func(ctx context.Context, userID string) (*models.Campaign, error)
	historyFn       func(ctx context.Context, userID string) ([]models.Campaign, error)
	contributionsFn func(ctx context.Context, userID, campaignID string) ([]models.Contribution, error)
	topUpsFn        func(ctx context.Context, userID string, page, limit int) (services.TopUpPage, error)
}

func (s stubDashboard) Dashboard(ctx context.Context, userID string) (services.Dashboard, error) {
	if s.dashboardFn == nil {
		return services.Dashboard{}, nil
	}
	return s.dashboardFn(ctx, userID)
}

func (s stubDashboard) Actions(ctx context.Context, userID string) ([]savings.Action, error) {
	if s.actionsFn == nil {
		return []savings.Action{}, nil
	}
	return s.actionsFn(ctx, userID)
}

func (s stubDashboard) ActiveCampaign(ctx context.Context, userID string) (*models.Campaign, error) {
	if s.activeFn == nil {
		return nil, nil
	}
	return s.activeFn(ctx, userID)
}

func (s stubDashboard) History(ctx context.Context, userID string) ([]models.Campaign, error) {
	if s.historyFn == nil {
		return []models.Campaign{}, nil
	}
	return s.historyFn(ctx, userID)
}

func (s stubDashboard) Contributions(ctx context.Context, userID, campaignID string) ([]models.Contribution, error) {
	if s.contributionsFn == nil {
		return []models.Contribution{}, nil
	}
	return s.contributionsFn(ctx, userID, campaignID)
}

func (s stubDashboard) TopUps(ctx context.Context, userID string, page, limit int) (services.TopUpPage, error) {
	if s.topUpsFn == nil {
		return services.TopUpPage{}, nil
	}
	return s.topUpsFn(ctx, userID, page, limit)
}

type stubCoach struct {
	streamFn func(ctx context.Context, req assistant.Request, emit func(string) error) error
}

func (s stubCoach) Stream(ctx context.Context, req assistant.Request, emit func(string) error) error {
	return s.streamFn(ctx, req, emit)
}

// testDeps holds the collaborators for newTestHandler; zero values fall back
// to permissive stubs.
type testDeps struct {
	txRunner  fakeTxRunner
	users     stubUserStore
	accounts  stubAccountStore
	admin     stubAdminStore
	audit     stubAuditStore
	ledger    stubLedger
	dashboard stubDashboard
	coach     Coach
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:          "test",
		Port:            "0",
		JWTSecret:       "secret",
		TokenTTL:        time.Minute,
		AllowedOrigins:  "*",
		TaxWithholdRate: "0.15",
	}
}

func newTestHandler(deps testDeps) *Handler {
	return New(deps.txRunner, testConfig(), deps.users, deps.accounts, deps.admin, deps.audit, deps.ledger, deps.dashboard, deps.coach, websocket.NewHub())
}

// serve routes req through the full router, authenticating as userID when
// it is not empty.
func serve(t *testing.T, h *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func dec(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", raw, err)
	}
	return value
}
