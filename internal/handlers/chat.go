package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"kosh/internal/assistant"
)

type chatRequest struct {
	History []assistant.Message `json:"history"`
	Message string              `json:"message"`
	Image   string              `json:"image,omitempty"`
}

// Chat streams the coach's reply as plain text. The ledger snapshot is
// built server-side; clients cannot supply their own numbers.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.coach == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant unavailable")
		return
	}
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	coachReq := assistant.Request{History: req.History, Message: req.Message}
	if err := coachReq.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Image != "" {
		image, err := assistant.ParseDataURL(req.Image)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		coachReq.Image = image
	}
	dashboard, err := h.dashboard.Dashboard(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load financial snapshot")
		return
	}
	snapshot := assistant.Snapshot{
		HealthScore:   dashboard.HealthScore,
		WalletBalance: dashboard.Account.WalletBalance,
		TaxBalance:    dashboard.Account.TaxBalance,
		WithholdRate:  h.withholdRate,
	}
	for _, c := range dashboard.History {
		if c.AmountSaved.GreaterThanOrEqual(c.TotalAmount) {
			snapshot.CompletedCampaigns = append(snapshot.CompletedCampaigns, assistant.CompletedCampaign{
				Name:        c.CampaignName,
				AmountSaved: c.AmountSaved,
			})
		}
	}
	coachReq.Snapshot = snapshot

	flusher, _ := w.(http.Flusher)
	started := false
	err = h.coach.Stream(r.Context(), coachReq, func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil && !started {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		slog.ErrorContext(r.Context(), "assistant stream failed", "user_id", userID, "error", err)
		if !started {
			respondError(w, http.StatusBadGateway, "assistant failed")
		}
	}
}
