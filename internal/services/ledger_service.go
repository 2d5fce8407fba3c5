package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"kosh/internal/db"
	"kosh/internal/events"
	"kosh/internal/models"
	"kosh/internal/money"
	"kosh/internal/savings"
	"kosh/internal/store"
	"kosh/internal/websocket"
)

const minCampaignNameLength = 3

var minContribution = decimal.NewFromInt(1)

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Account, error)
	UpdateBalances(ctx context.Context, tx store.Execer, userID string, wallet, tax decimal.Decimal) (int64, error)
	Delete(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type CampaignStore interface {
	Create(ctx context.Context, tx store.Execer, c models.Campaign) error
	HasActive(ctx context.Context, tx store.Getter, userID string) (bool, error)
	GetForUpdate(ctx context.Context, tx store.Getter, campaignID string) (models.Campaign, error)
	UpdateProgress(ctx context.Context, tx store.Execer, c models.Campaign) (int64, error)
	DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type ContributionStore interface {
	Create(ctx context.Context, tx store.Execer, c models.Contribution) error
	DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type TopUpStore interface {
	Create(ctx context.Context, tx store.Execer, t models.WalletTopUp) error
	DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type UserStore interface {
	Delete(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type WalletHub interface {
	BroadcastWallet(userID string, update websocket.WalletUpdate)
}

// LedgerService is the only writer of balances and campaign progress. Every
// operation locks the caller's account row first, so mutations for one user
// run one at a time while different users proceed in parallel.
type LedgerService struct {
	txRunner      db.TxRunner
	accounts      AccountStore
	campaigns     CampaignStore
	contributions ContributionStore
	topups        TopUpStore
	users         UserStore
	audit         AuditStore
	hub           WalletHub
	publisher     events.Publisher
	window        savings.WithdrawalWindow
	withholdRate  decimal.Decimal
	now           func() time.Time
	logger        *slog.Logger
}

func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, campaigns CampaignStore, contributions ContributionStore, topups TopUpStore, users UserStore, audit AuditStore, hub WalletHub, publisher events.Publisher, window savings.WithdrawalWindow, withholdRate decimal.Decimal) *LedgerService {
	if window == nil {
		window = savings.ClosedWindow{}
	}
	if publisher == nil {
		publisher = events.FallbackPublisher{}
	}
	return &LedgerService{
		txRunner:      txRunner,
		accounts:      accounts,
		campaigns:     campaigns,
		contributions: contributions,
		topups:        topups,
		users:         users,
		audit:         audit,
		hub:           hub,
		publisher:     publisher,
		window:        window,
		withholdRate:  withholdRate,
		now:           time.Now,
		logger:        slog.Default(),
	}
}

// WithClock replaces the time source used for due dates and eligibility.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func (s *LedgerService) WithLogger(logger *slog.Logger) *LedgerService {
	s.logger = logger
	return s
}

// Outcome is the committed state after a ledger mutation.
type Outcome struct {
	Account  models.Account  `json:"account"`
	Campaign models.Campaign `json:"campaign"`
}

type CreateCampaignRequest struct {
	UserID                string
	CampaignName          string
	Frequency             string
	AmountPerContribution decimal.Decimal
	Duration              int
}

func (r CreateCampaignRequest) validate() (models.Frequency, error) {
	name := strings.TrimSpace(r.CampaignName)
	if utf8.RuneCountInString(name) < minCampaignNameLength {
		return "", fmt.Errorf("%w: campaign name must be at least %d characters", ErrInvalidInput, minCampaignNameLength)
	}
	freq, err := savings.ParseFrequency(r.Frequency)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if r.AmountPerContribution.LessThan(minContribution) || money.CheckPlaces(r.AmountPerContribution) != nil {
		return "", fmt.Errorf("%w: amount per contribution must be at least 1", ErrInvalidInput)
	}
	if r.Duration < 1 {
		return "", fmt.Errorf("%w: duration must be at least 1", ErrInvalidInput)
	}
	return freq, nil
}

// CreateCampaign starts a plan and pre-pays its first period from the wallet.
func (s *LedgerService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (Outcome, error) {
	freq, err := req.validate()
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, req.UserID)
		accountMissing := errors.Is(err, sql.ErrNoRows)
		if err != nil && !accountMissing {
			return fmt.Errorf("lock account: %w", err)
		}
		active, err := s.campaigns.HasActive(ctx, tx, req.UserID)
		if err != nil {
			return fmt.Errorf("check active campaign: %w", err)
		}
		if active {
			return ErrConflictActiveCampaign
		}
		if accountMissing {
			return ErrNotFound
		}
		if account.WalletBalance.LessThan(req.AmountPerContribution) {
			return ErrInsufficientFunds
		}

		now := s.now().UTC()
		endDate, nextDue := savings.Schedule(now, freq, req.Duration)
		campaign := models.Campaign{
			ID:                    uuid.NewString(),
			UserID:                req.UserID,
			CampaignName:          strings.TrimSpace(req.CampaignName),
			Frequency:             freq,
			AmountPerContribution: req.AmountPerContribution,
			TotalAmount:           req.AmountPerContribution.Mul(decimal.NewFromInt(int64(req.Duration))),
			AmountSaved:           req.AmountPerContribution,
			StartDate:             now,
			EndDate:               endDate,
			NextDueDate:           nextDue,
			IsActive:              true,
			OnTimeContributions:   1,
			TotalContributionsDue: 1,
			CreatedAt:             now,
		}
		account.WalletBalance = account.WalletBalance.Sub(req.AmountPerContribution)

		if err := s.campaigns.Create(ctx, tx, campaign); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrConflictActiveCampaign
			}
			return fmt.Errorf("insert campaign: %w", err)
		}
		if _, err := s.accounts.UpdateBalances(ctx, tx, req.UserID, account.WalletBalance, account.TaxBalance); err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		if err := s.journal(ctx, tx, campaign, models.ContributionInitial, req.AmountPerContribution, &now, now); err != nil {
			return err
		}
		if err := s.logAudit(ctx, tx, req.UserID, "campaign.create", "campaign", campaign.ID, map[string]string{
			"frequency": string(freq),
			"amount":    money.Format(req.AmountPerContribution),
			"duration":  fmt.Sprint(req.Duration),
		}); err != nil {
			return err
		}
		out = Outcome{Account: account, Campaign: campaign}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.notify(ctx, events.CampaignCreated, req.UserID, out.Account, out.Campaign, req.AmountPerContribution)
	return out, nil
}

// Contribute pays exactly one due period. Every accepted payment counts as
// on time; the journal keeps the due date for later late-payment analysis.
func (s *LedgerService) Contribute(ctx context.Context, userID, campaignID string, amountPaid decimal.Decimal) (Outcome, error) {
	var out Outcome
	var completed bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		campaign, err := s.lockOwnedCampaign(ctx, tx, userID, campaignID)
		if err != nil {
			return err
		}
		if !campaign.IsActive {
			return ErrPlanEnded
		}
		now := s.now().UTC()
		if now.Before(campaign.NextDueDate) {
			return ErrNotYetDue
		}
		if !amountPaid.Equal(campaign.AmountPerContribution) {
			return ErrInvalidAmount
		}
		if account.WalletBalance.LessThan(amountPaid) {
			return ErrInsufficientFunds
		}

		dueDate := campaign.NextDueDate
		account.WalletBalance = account.WalletBalance.Sub(amountPaid)
		campaign.AmountSaved = campaign.AmountSaved.Add(amountPaid)
		campaign.TotalContributionsDue++
		campaign.OnTimeContributions++
		campaign.NextDueDate = savings.Advance(campaign.NextDueDate, campaign.Frequency, 1)
		if campaign.AmountSaved.GreaterThanOrEqual(campaign.TotalAmount) {
			campaign.IsActive = false
			completed = true
		}

		if _, err := s.accounts.UpdateBalances(ctx, tx, userID, account.WalletBalance, account.TaxBalance); err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		if _, err := s.campaigns.UpdateProgress(ctx, tx, campaign); err != nil {
			return fmt.Errorf("update campaign: %w", err)
		}
		if err := s.journal(ctx, tx, campaign, models.ContributionRegular, amountPaid, &dueDate, now); err != nil {
			return err
		}
		if err := s.logAudit(ctx, tx, userID, "campaign.contribute", "campaign", campaign.ID, map[string]string{
			"amount":    money.Format(amountPaid),
			"completed": fmt.Sprint(completed),
		}); err != nil {
			return err
		}
		out = Outcome{Account: account, Campaign: campaign}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.notify(ctx, events.ContributionRecorded, userID, out.Account, out.Campaign, amountPaid)
	if completed {
		s.notify(ctx, events.CampaignCompleted, userID, out.Account, out.Campaign, out.Campaign.AmountSaved)
	}
	return out, nil
}

// Payout credits everything saved back to the wallet once the goal is met or
// the schedule has run out. A campaign pays out at most once.
func (s *LedgerService) Payout(ctx context.Context, userID, campaignID string) (Outcome, error) {
	var out Outcome
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		campaign, err := s.lockOwnedCampaign(ctx, tx, userID, campaignID)
		if err != nil {
			return err
		}
		if campaign.PayoutCompleted {
			return ErrAlreadyPaidOut
		}
		now := s.now().UTC()
		if campaign.IsActive && campaign.EndDate.After(now) {
			return ErrCampaignNotComplete
		}

		account.WalletBalance = account.WalletBalance.Add(campaign.AmountSaved)
		campaign.IsActive = false
		campaign.PayoutCompleted = true
		campaign.PaidOutAt = &now

		if _, err := s.accounts.UpdateBalances(ctx, tx, userID, account.WalletBalance, account.TaxBalance); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if _, err := s.campaigns.UpdateProgress(ctx, tx, campaign); err != nil {
			return fmt.Errorf("close campaign: %w", err)
		}
		if err := s.journal(ctx, tx, campaign, models.ContributionPayout, campaign.AmountSaved, nil, now); err != nil {
			return err
		}
		if err := s.logAudit(ctx, tx, userID, "campaign.payout", "campaign", campaign.ID, map[string]string{
			"amount": money.Format(campaign.AmountSaved),
		}); err != nil {
			return err
		}
		out = Outcome{Account: account, Campaign: campaign}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.notify(ctx, events.PayoutCompleted, userID, out.Account, out.Campaign, out.Campaign.AmountSaved)
	return out, nil
}

// DeleteAccount removes the user and everything they own in one transaction.
func (s *LedgerService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.lockAccount(ctx, tx, userID); err != nil {
			return err
		}
		active, err := s.campaigns.HasActive(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("check active campaign: %w", err)
		}
		if active {
			return ErrActiveCampaignExists
		}
		steps := []struct {
			what string
			run  func(context.Context, store.Execer, string) (int64, error)
		}{
			{"top-ups", s.topups.DeleteByUser},
			{"contributions", s.contributions.DeleteByUser},
			{"campaigns", s.campaigns.DeleteByUser},
			{"account", s.accounts.Delete},
			{"user", s.users.Delete},
		}
		for _, step := range steps {
			if _, err := step.run(ctx, tx, userID); err != nil {
				return fmt.Errorf("delete %s: %w", step.what, err)
			}
		}
		return s.logAudit(ctx, tx, userID, "account.delete", "user", userID, nil)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.LedgerEvent{Type: events.AccountDeleted, UserID: userID, OccurredAt: s.now().UTC()})
	return nil
}

type IncomeResult struct {
	Account  models.Account     `json:"account"`
	TopUp    models.WalletTopUp `json:"top_up"`
	Withheld decimal.Decimal    `json:"withheld"`
}

// RegisterIncome credits the wallet. When a withholding rate is configured
// that share goes to the tax vault instead; the top-up keeps the full amount.
func (s *LedgerService) RegisterIncome(ctx context.Context, userID string, amount decimal.Decimal) (IncomeResult, error) {
	if !amount.IsPositive() || money.CheckPlaces(amount) != nil {
		return IncomeResult{}, fmt.Errorf("%w: amount must be positive with at most two decimals", ErrInvalidInput)
	}
	var out IncomeResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		net, withheld := money.Split(amount, s.withholdRate)
		account.WalletBalance = account.WalletBalance.Add(net)
		account.TaxBalance = account.TaxBalance.Add(withheld)
		topUp := models.WalletTopUp{
			ID:        uuid.NewString(),
			UserID:    userID,
			Amount:    amount,
			Status:    store.TopUpStatusSuccess,
			CreatedAt: s.now().UTC(),
		}
		if _, err := s.accounts.UpdateBalances(ctx, tx, userID, account.WalletBalance, account.TaxBalance); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if err := s.topups.Create(ctx, tx, topUp); err != nil {
			return fmt.Errorf("record top-up: %w", err)
		}
		if err := s.logAudit(ctx, tx, userID, "wallet.income", "wallet_topup", topUp.ID, map[string]string{
			"amount":   money.Format(amount),
			"withheld": money.Format(withheld),
		}); err != nil {
			return err
		}
		out = IncomeResult{Account: account, TopUp: topUp, Withheld: withheld}
		return nil
	})
	if err != nil {
		return IncomeResult{}, err
	}
	s.notify(ctx, events.IncomeRegistered, userID, out.Account, models.Campaign{}, amount)
	return out, nil
}

// WithdrawTaxVault moves the whole vault into the wallet while the
// withdrawal window is open.
func (s *LedgerService) WithdrawTaxVault(ctx context.Context, userID string) (models.Account, decimal.Decimal, error) {
	var account models.Account
	var released decimal.Decimal
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !account.TaxBalance.IsPositive() {
			return ErrEmptyVault
		}
		if !s.window.Open(s.now()) {
			return ErrVaultLocked
		}
		released = account.TaxBalance
		account.WalletBalance = account.WalletBalance.Add(released)
		account.TaxBalance = decimal.Zero
		if _, err := s.accounts.UpdateBalances(ctx, tx, userID, account.WalletBalance, account.TaxBalance); err != nil {
			return fmt.Errorf("release vault: %w", err)
		}
		return s.logAudit(ctx, tx, userID, "vault.withdraw", "account", userID, map[string]string{
			"amount": money.Format(released),
		})
	})
	if err != nil {
		return models.Account{}, decimal.Zero, err
	}
	s.notify(ctx, events.VaultReleased, userID, account, models.Campaign{}, released)
	return account, released, nil
}

func (s *LedgerService) lockAccount(ctx context.Context, tx *sqlx.Tx, userID string) (models.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("lock account: %w", err)
	}
	return account, nil
}

func (s *LedgerService) lockOwnedCampaign(ctx context.Context, tx *sqlx.Tx, userID, campaignID string) (models.Campaign, error) {
	campaign, err := s.campaigns.GetForUpdate(ctx, tx, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Campaign{}, ErrNotFound
		}
		return models.Campaign{}, fmt.Errorf("lock campaign: %w", err)
	}
	if campaign.UserID != userID {
		return models.Campaign{}, ErrForbidden
	}
	return campaign, nil
}

func (s *LedgerService) journal(ctx context.Context, tx *sqlx.Tx, c models.Campaign, kind models.ContributionKind, amount decimal.Decimal, due *time.Time, paidAt time.Time) error {
	err := s.contributions.Create(ctx, tx, models.Contribution{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		UserID:     c.UserID,
		Kind:       kind,
		Amount:     amount,
		DueDate:    due,
		PaidAt:     paidAt,
	})
	if err != nil {
		return fmt.Errorf("journal %s: %w", kind, err)
	}
	return nil
}

func (s *LedgerService) logAudit(ctx context.Context, tx *sqlx.Tx, actorID, action, entityType, entityID string, data map[string]string) error {
	payload := "{}"
	if len(data) > 0 {
		raw, _ := json.Marshal(data)
		payload = string(raw)
	}
	if err := s.audit.Log(ctx, tx, actorID, action, entityType, entityID, payload); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// notify runs after commit. Neither the socket push nor the event can undo
// the mutation, so failures are only logged.
func (s *LedgerService) notify(ctx context.Context, eventType, userID string, account models.Account, campaign models.Campaign, amount decimal.Decimal) {
	if s.hub != nil {
		s.hub.BroadcastWallet(userID, websocket.WalletUpdate{
			Event:         eventType,
			WalletBalance: money.Format(account.WalletBalance),
			TaxBalance:    money.Format(account.TaxBalance),
			CampaignID:    campaign.ID,
		})
	}
	event := events.LedgerEvent{
		Type:          eventType,
		UserID:        userID,
		CampaignID:    campaign.ID,
		Amount:        money.Format(amount),
		WalletBalance: money.Format(account.WalletBalance),
		TaxBalance:    money.Format(account.TaxBalance),
		OccurredAt:    s.now().UTC(),
	}
	if campaign.IsActive {
		next := campaign.NextDueDate
		event.NextDueDate = &next
	}
	s.publish(ctx, event)
}

func (s *LedgerService) publish(ctx context.Context, event events.LedgerEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "ledger event not published", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}
