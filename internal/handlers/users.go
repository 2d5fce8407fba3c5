package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"kosh/internal/models"
	"kosh/internal/validator"
)

type userDetails struct {
	User    models.User    `json:"user"`
	Account models.Account `json:"account"`
}

func (h *Handler) UserDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, userDetails{User: user, Account: account})
}

type updateUserRequest struct {
	Name        *string          `json:"name"`
	WalletTopUp *decimal.Decimal `json:"wallet_top_up"`
}

// UpdateUser renames the user and, when wallet_top_up is positive, records
// it as income. Both inputs are validated before anything is written.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == nil && req.WalletTopUp == nil {
		respondError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
		if err := validator.ValidateName(*req.Name); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.WalletTopUp != nil && req.WalletTopUp.IsNegative() {
		respondError(w, http.StatusBadRequest, "wallet_top_up must be positive")
		return
	}

	if req.Name != nil {
		err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
			affected, err := h.users.UpdateName(r.Context(), tx, userID, *req.Name)
			if err != nil {
				return err
			}
			if affected == 0 {
				return sql.ErrNoRows
			}
			data, _ := json.Marshal(map[string]string{"name": *req.Name})
			return h.audit.Log(r.Context(), tx, userID, "update_name", "user", userID, string(data))
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(w, http.StatusNotFound, "user not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "unable to update user")
			return
		}
	}

	var income any
	if req.WalletTopUp != nil && req.WalletTopUp.IsPositive() {
		result, err := h.ledger.RegisterIncome(r.Context(), userID, *req.WalletTopUp)
		if err != nil {
			respondServiceError(w, r, err, "unable to register income")
			return
		}
		income = result
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"account": account,
		"income":  income,
	})
}

func (h *Handler) WithdrawTax(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	account, released, err := h.ledger.WithdrawTaxVault(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to withdraw tax vault")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account":  account,
		"released": released,
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteAccount(r.Context(), userID); err != nil {
		respondServiceError(w, r, err, "unable to delete account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
