package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kosh/internal/middleware"
	"kosh/internal/services"
)

const maxBodyBytes = 8 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps ledger rejections onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without leaking detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), fallback, "path", r.URL.Path, "error", err)
		respondError(w, status, fallback)
		return
	}
	respondJSON(w, status, map[string]string{"error": code, "detail": err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, services.ErrNotYetDue):
		return http.StatusBadRequest, "not_yet_due"
	case errors.Is(err, services.ErrPlanEnded):
		return http.StatusBadRequest, "plan_ended"
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, services.ErrCampaignNotComplete):
		return http.StatusBadRequest, "campaign_not_complete"
	case errors.Is(err, services.ErrEmptyVault):
		return http.StatusBadRequest, "empty_vault"
	case errors.Is(err, services.ErrActiveCampaignExists):
		return http.StatusBadRequest, "active_campaign_exists"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrVaultLocked):
		return http.StatusForbidden, "vault_locked"
	case errors.Is(err, services.ErrConflictActiveCampaign):
		return http.StatusConflict, "active_campaign_conflict"
	case errors.Is(err, services.ErrAlreadyPaidOut):
		return http.StatusConflict, "already_paid_out"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
