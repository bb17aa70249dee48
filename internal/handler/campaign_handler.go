// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// CampaignHandler serves read-side progress endpoints.
type CampaignHandler struct {
	Service *service.CampaignService
}

// GetCampaignProgress returns a campaign with its per-status recipient counts.
func (h *CampaignHandler) GetCampaignProgress(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	progress, err := h.Service.GetCampaignProgress(id)
	if err != nil {
		var notFound *apperrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}
