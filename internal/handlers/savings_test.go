package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"kosh/internal/models"
	"kosh/internal/services"
)

func TestCreateCampaignForwardsRequest(t *testing.T) {
	var got services.CreateCampaignRequest
	h := newTestHandler(testDeps{
		ledger: stubLedger{
			createCampaignFn: func(_ context.Context, req services.CreateCampaignRequest) (services.Outcome, error) {
				got = req
				return services.Outcome{
					Account:  models.Account{UserID: req.UserID, WalletBalance: dec(t, "80")},
					Campaign: models.Campaign{ID: "c-1", CampaignName: req.CampaignName},
				}, nil
			},
		},
	})
	body := `{"campaign_name":"Laptop","frequency":"weekly","amount_per_contribution":"20","duration":4}`
	rr := serve(t, h, http.MethodPost, "/savings", body, "user-1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "user-1" || got.Frequency != "weekly" || got.Duration != 4 || !got.AmountPerContribution.Equal(dec(t, "20")) {
		t.Fatalf("unexpected request %+v", got)
	}
	var outcome services.Outcome
	if err := json.NewDecoder(rr.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Campaign.ID != "c-1" || !outcome.Account.WalletBalance.Equal(dec(t, "80")) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestLedgerErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{services.ErrNotYetDue, http.StatusBadRequest, "not_yet_due"},
		{services.ErrPlanEnded, http.StatusBadRequest, "plan_ended"},
		{services.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
		{services.ErrCampaignNotComplete, http.StatusBadRequest, "campaign_not_complete"},
		{services.ErrEmptyVault, http.StatusBadRequest, "empty_vault"},
		{services.ErrActiveCampaignExists, http.StatusBadRequest, "active_campaign_exists"},
		{services.ErrNotFound, http.StatusNotFound, "not_found"},
		{services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{services.ErrVaultLocked, http.StatusForbidden, "vault_locked"},
		{services.ErrConflictActiveCampaign, http.StatusConflict, "active_campaign_conflict"},
		{services.ErrAlreadyPaidOut, http.StatusConflict, "already_paid_out"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			wrapped := fmt.Errorf("%w: detail", tc.err)
			h := newTestHandler(testDeps{
				ledger: stubLedger{
					contributeFn: func(context.Context, string, string, decimal.Decimal) (services.Outcome, error) {
						return services.Outcome{}, wrapped
					},
				},
			})
			rr := serve(t, h, http.MethodPatch, "/savings/c-1/contribute", `{"amount_paid":"20"}`, "user-1")
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var payload map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload["error"] != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, payload["error"])
			}
		})
	}
}

func TestUnexpectedLedgerErrorHidesDetail(t *testing.T) {
	h := newTestHandler(testDeps{
		ledger: stubLedger{
			payoutFn: func(context.Context, string, string) (services.Outcome, error) {
				return services.Outcome{}, fmt.Errorf("pq: connection reset")
			},
		},
	})
	rr := serve(t, h, http.MethodPatch, "/savings/c-1/payout", "", "user-1")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var payload map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&payload)
	if payload["error"] != "unable to pay out campaign" || payload["detail"] != "" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestContributePassesCampaignAndAmount(t *testing.T) {
	h := newTestHandler(testDeps{
		ledger: stubLedger{
			contributeFn: func(_ context.Context, userID, campaignID string, amount decimal.Decimal) (services.Outcome, error) {
				if userID != "user-1" || campaignID != "c-9" || !amount.Equal(dec(t, "12.5")) {
					t.Fatalf("unexpected args %s %s %s", userID, campaignID, amount)
				}
				return services.Outcome{}, nil
			},
		},
	})
	rr := serve(t, h, http.MethodPatch, "/savings/c-9/contribute", `{"amount_paid":12.5}`, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := serve(t, h, http.MethodPatch, "/savings/c-9/contribute", `{"amount_paid":"abc"}`, "user-1"); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed amount, got %d", rr.Code)
	}
}

func TestActiveCampaignAbsent(t *testing.T) {
	h := newTestHandler(testDeps{})
	rr := serve(t, h, http.MethodGet, "/savings/active", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]*models.Campaign
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["campaign"] != nil {
		t.Fatalf("expected null campaign")
	}
}

func TestCampaignHistoryAndContributions(t *testing.T) {
	h := newTestHandler(testDeps{
		dashboard: stubDashboard{
			historyFn: func(context.Context, string) ([]models.Campaign, error) {
				return []models.Campaign{{ID: "old-2"}, {ID: "old-1"}}, nil
			},
			contributionsFn: func(_ context.Context, userID, campaignID string) ([]models.Contribution, error) {
				if campaignID != "c-1" {
					return nil, services.ErrForbidden
				}
				return []models.Contribution{{CampaignID: campaignID, Kind: models.ContributionInitial}}, nil
			},
		},
	})
	rr := serve(t, h, http.MethodGet, "/savings/history", "", "user-1")
	var history []models.Campaign
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil || len(history) != 2 || history[0].ID != "old-2" {
		t.Fatalf("unexpected history %v (%v)", history, err)
	}
	rr = serve(t, h, http.MethodGet, "/savings/c-1/contributions", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := serve(t, h, http.MethodGet, "/savings/c-2/contributions", "", "user-1"); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestSavingsRequiresAuth(t *testing.T) {
	h := newTestHandler(testDeps{})
	for _, route := range [][2]string{
		{http.MethodPost, "/savings"},
		{http.MethodGet, "/savings/active"},
		{http.MethodPatch, "/savings/c-1/contribute"},
		{http.MethodPatch, "/savings/c-1/payout"},
		{http.MethodGet, "/dashboard"},
		{http.MethodPost, "/wallet/income"},
		{http.MethodDelete, "/user"},
	} {
		if rr := serve(t, h, route[0], route[1], "", ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route[0], route[1], rr.Code)
		}
	}
}
