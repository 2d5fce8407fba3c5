package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"kosh/internal/events"
	"kosh/internal/models"
	"kosh/internal/store"
	"kosh/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// memLedger backs every store the ledger needs with maps. Its tx runner
// snapshots the maps and restores them when the closure fails, which gives
// tests the same all-or-nothing view a database transaction would.
type memLedger struct {
	mu            sync.Mutex
	accounts      map[string]models.Account
	users         map[string]bool
	campaigns     map[string]models.Campaign
	contributions []models.Contribution
	topups        []models.WalletTopUp
	audits        []string
	failOn        map[string]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:  map[string]models.Account{},
		users:     map[string]bool{},
		campaigns: map[string]models.Campaign{},
		failOn:    map[string]error{},
	}
}

func (m *memLedger) addAccount(userID, wallet, tax string) {
	m.accounts[userID] = models.Account{
		UserID:        userID,
		WalletBalance: decimal.RequireFromString(wallet),
		TaxBalance:    decimal.RequireFromString(tax),
	}
	m.users[userID] = true
}

func (m *memLedger) wallet(userID string) decimal.Decimal {
	return m.accounts[userID].WalletBalance
}

type memSnapshot struct {
	accounts      map[string]models.Account
	users         map[string]bool
	campaigns     map[string]models.Campaign
	contributions []models.Contribution
	topups        []models.WalletTopUp
	audits        []string
}

func (m *memLedger) snapshot() memSnapshot {
	snap := memSnapshot{
		accounts:      map[string]models.Account{},
		users:         map[string]bool{},
		campaigns:     map[string]models.Campaign{},
		contributions: append([]models.Contribution(nil), m.contributions...),
		topups:        append([]models.WalletTopUp(nil), m.topups...),
		audits:        append([]string(nil), m.audits...),
	}
	for k, v := range m.accounts {
		snap.accounts[k] = v
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	for k, v := range m.campaigns {
		snap.campaigns[k] = v
	}
	return snap
}

func (m *memLedger) restore(snap memSnapshot) {
	m.accounts = snap.accounts
	m.users = snap.users
	m.campaigns = snap.campaigns
	m.contributions = snap.contributions
	m.topups = snap.topups
	m.audits = snap.audits
}

func (m *memLedger) fail(op string) error {
	return m.failOn[op]
}

type memTxRunner struct{ m *memLedger }

func (r memTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	snap := r.m.snapshot()
	if err := fn(nil); err != nil {
		r.m.restore(snap)
		return err
	}
	return nil
}

type memAccounts struct{ m *memLedger }

func (s memAccounts) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Account, error) {
	acc, ok := s.m.accounts[userID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return acc, nil
}

func (s memAccounts) UpdateBalances(ctx context.Context, tx store.Execer, userID string, wallet, tax decimal.Decimal) (int64, error) {
	if err := s.m.fail("accounts.update"); err != nil {
		return 0, err
	}
	if wallet.IsNegative() || tax.IsNegative() {
		return 0, &pq.Error{Code: "23514"}
	}
	acc := s.m.accounts[userID]
	acc.WalletBalance, acc.TaxBalance = wallet, tax
	s.m.accounts[userID] = acc
	return 1, nil
}

func (s memAccounts) Delete(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	if err := s.m.fail("accounts.delete"); err != nil {
		return 0, err
	}
	delete(s.m.accounts, userID)
	return 1, nil
}

type memCampaigns struct{ m *memLedger }

func (s memCampaigns) Create(ctx context.Context, tx store.Execer, c models.Campaign) error {
	if err := s.m.fail("campaigns.create"); err != nil {
		return err
	}
	for _, existing := range s.m.campaigns {
		if existing.UserID == c.UserID && existing.IsActive && c.IsActive {
			return &pq.Error{Code: "23505"}
		}
	}
	s.m.campaigns[c.ID] = c
	return nil
}

func (s memCampaigns) HasActive(ctx context.Context, tx store.Getter, userID string) (bool, error) {
	for _, c := range s.m.campaigns {
		if c.UserID == userID && c.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s memCampaigns) GetForUpdate(ctx context.Context, tx store.Getter, campaignID string) (models.Campaign, error) {
	c, ok := s.m.campaigns[campaignID]
	if !ok {
		return models.Campaign{}, sql.ErrNoRows
	}
	return c, nil
}

func (s memCampaigns) UpdateProgress(ctx context.Context, tx store.Execer, c models.Campaign) (int64, error) {
	if err := s.m.fail("campaigns.update"); err != nil {
		return 0, err
	}
	s.m.campaigns[c.ID] = c
	return 1, nil
}

func (s memCampaigns) DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	var n int64
	for id, c := range s.m.campaigns {
		if c.UserID == userID {
			delete(s.m.campaigns, id)
			n++
		}
	}
	return n, nil
}

type memContributions struct{ m *memLedger }

func (s memContributions) Create(ctx context.Context, tx store.Execer, c models.Contribution) error {
	if err := s.m.fail("contributions.create"); err != nil {
		return err
	}
	s.m.contributions = append(s.m.contributions, c)
	return nil
}

func (s memContributions) DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	kept := s.m.contributions[:0]
	for _, c := range s.m.contributions {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	n := int64(len(s.m.contributions) - len(kept))
	s.m.contributions = kept
	return n, nil
}

type memTopUps struct{ m *memLedger }

func (s memTopUps) Create(ctx context.Context, tx store.Execer, t models.WalletTopUp) error {
	s.m.topups = append(s.m.topups, t)
	return nil
}

func (s memTopUps) DeleteByUser(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	var kept []models.WalletTopUp
	for _, t := range s.m.topups {
		if t.UserID != userID {
			kept = append(kept, t)
		}
	}
	n := int64(len(s.m.topups) - len(kept))
	s.m.topups = kept
	return n, nil
}

type memUsers struct{ m *memLedger }

func (s memUsers) Delete(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	if err := s.m.fail("users.delete"); err != nil {
		return 0, err
	}
	delete(s.m.users, userID)
	return 1, nil
}

type memAudit struct{ m *memLedger }

func (s memAudit) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	s.m.audits = append(s.m.audits, action)
	return nil
}

type recordingHub struct {
	mu      sync.Mutex
	updates []websocket.WalletUpdate
}

func (h *recordingHub) BroadcastWallet(userID string, update websocket.WalletUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixedWindow bool

func (w fixedWindow) Open(time.Time) bool { return bool(w) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errBoom = errors.New("boom")

type ledgerFixture struct {
	mem     *memLedger
	hub     *recordingHub
	pub     *recordingPublisher
	clock   *clock
	service *LedgerService
}

func newLedgerFixture(window bool, rate string) *ledgerFixture {
	mem := newMemLedger()
	f := &ledgerFixture{
		mem:   mem,
		hub:   &recordingHub{},
		pub:   &recordingPublisher{},
		clock: &clock{t: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)},
	}
	f.service = NewLedgerService(
		memTxRunner{mem},
		memAccounts{mem},
		memCampaigns{mem},
		memContributions{mem},
		memTopUps{mem},
		memUsers{mem},
		memAudit{mem},
		f.hub,
		f.pub,
		fixedWindow(window),
		decimal.RequireFromString(rate),
	).WithClock(f.clock.now)
	return f
}
