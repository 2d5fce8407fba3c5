package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"kosh/internal/models"
	"kosh/internal/services"
)

type createCampaignRequest struct {
	CampaignName          string          `json:"campaign_name"`
	Frequency             string          `json:"frequency"`
	AmountPerContribution decimal.Decimal `json:"amount_per_contribution"`
	Duration              int             `json:"duration"`
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := h.ledger.CreateCampaign(r.Context(), services.CreateCampaignRequest{
		UserID:                userID,
		CampaignName:          req.CampaignName,
		Frequency:             req.Frequency,
		AmountPerContribution: req.AmountPerContribution,
		Duration:              req.Duration,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to create campaign")
		return
	}
	respondJSON(w, http.StatusCreated, outcome)
}

func (h *Handler) ActiveCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	campaign, err := h.dashboard.ActiveCampaign(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load active campaign")
		return
	}
	respondJSON(w, http.StatusOK, map[string]*models.Campaign{"campaign": campaign})
}

func (h *Handler) CampaignHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	history, err := h.dashboard.History(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load campaign history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

type contributeRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req contributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := h.ledger.Contribute(r.Context(), userID, chi.URLParam(r, "id"), req.AmountPaid)
	if err != nil {
		respondServiceError(w, r, err, "unable to record contribution")
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	outcome, err := h.ledger.Payout(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "unable to pay out campaign")
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (h *Handler) Contributions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rows, err := h.dashboard.Contributions(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "unable to load contributions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
