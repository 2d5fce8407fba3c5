package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kosh/internal/services"
)

type incomeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) RegisterIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req incomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.ledger.RegisterIncome(r.Context(), userID, req.Amount)
	if err != nil {
		respondServiceError(w, r, err, "unable to register income")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListTopUps(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), services.DefaultTopUpPageSize)
	result, err := h.dashboard.TopUps(r.Context(), userID, page, limit)
	if err != nil {
		respondServiceError(w, r, err, "unable to load top-ups")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
