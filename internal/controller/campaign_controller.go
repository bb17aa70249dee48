// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// CampaignController exposes the lifecycle operations the surrounding system
// drives the pipeline with.
type CampaignController struct {
	CampaignService *service.CampaignService
}

func campaignID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeErr(w http.ResponseWriter, err error) {
	var notFound *apperrors.ErrCampaignNotFound
	var badState *apperrors.ErrInvalidCampaignState
	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &badState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TriggerDispatch enqueues every pending recipient of the campaign.
func (c *CampaignController) TriggerDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.CampaignService.TriggerDispatch(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := c.CampaignService.Pause(id); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"campaign_id": id, "status": "paused"})
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	enqueued, err := c.CampaignService.Resume(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"campaign_id":         id,
		"status":              "sending",
		"recipients_enqueued": enqueued,
	})
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := c.CampaignService.Cancel(id); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"campaign_id": id, "status": "canceled"})
}

// PersonalizedPreview renders the campaign content for one user without
// sending anything.
func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		UserID     int64  `json:"user_id"`
		TemplateID *int64 `json:"template_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.CampaignService.RenderPreview(id, body.UserID, body.TemplateID)
	if err != nil {
		writeErr(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"rendered_message": rendered,
		"user_id":          body.UserID,
	})
}
