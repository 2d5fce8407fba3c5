package handlers

import "net/http"

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	dashboard, err := h.dashboard.Dashboard(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	actions, err := h.dashboard.Actions(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to build actions")
		return
	}
	respondJSON(w, http.StatusOK, actions)
}
