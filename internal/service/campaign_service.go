// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

// CampaignService is the operational surface the surrounding system drives
// the pipeline through: trigger dispatch, apply lifecycle transitions, read
// progress, preview content. Campaign authoring lives elsewhere.
type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
	UserRepo      repository.UserRepositoryInterface
	Queue         queue.Queue
	Log           zerolog.Logger
}

// Result struct for TriggerDispatch
type TriggerDispatchResult struct {
	CampaignID     int64                `json:"campaign_id"`
	RecipientsSent int                  `json:"recipients_enqueued"`
	Status         model.CampaignStatus `json:"status"`
}

type CampaignProgress struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	Status         model.CampaignStatus `json:"status"`
	ScheduleAt     *time.Time           `json:"schedule_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      *time.Time           `json:"updated_at,omitempty"`
	Stats          map[string]int       `json:"stats"`
}

// TriggerDispatch enqueues every pending recipient of the campaign now,
// bypassing the schedule. The A/B configuration is validated up front so a
// malformed config is rejected before any message is queued.
func (s *CampaignService) TriggerDispatch(ctx context.Context, campaignID int64) (*TriggerDispatchResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	switch campaign.Status {
	case model.CampaignStatusQueued, model.CampaignStatusScheduled, model.CampaignStatusSending:
		// dispatchable
	default:
		return nil, apperrors.NewInvalidCampaignState(campaignID, string(campaign.Status))
	}

	if res := ValidateABConfig(campaign.AB); !res.OK {
		return nil, fmt.Errorf("invalid ab config: %s", res.Error())
	}

	enqueued, err := s.enqueuePending(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	status := campaign.Status
	if status != model.CampaignStatusSending {
		if err := s.CampaignRepo.PromoteToSending(campaignID); err != nil {
			return nil, err
		}
		status = model.CampaignStatusSending
	}

	s.Log.Info().Int64("campaign_id", campaignID).Int("recipients", enqueued).Msg("dispatch triggered")
	return &TriggerDispatchResult{
		CampaignID:     campaignID,
		RecipientsSent: enqueued,
		Status:         status,
	}, nil
}

// Pause stops new claims; recipients already processing finish on their own.
func (s *CampaignService) Pause(campaignID int64) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	switch campaign.Status {
	case model.CampaignStatusQueued, model.CampaignStatusScheduled, model.CampaignStatusSending:
		return s.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusPaused)
	default:
		return apperrors.NewInvalidCampaignState(campaignID, string(campaign.Status))
	}
}

// Resume moves a paused campaign back to sending and re-enqueues whatever is
// still pending.
func (s *CampaignService) Resume(ctx context.Context, campaignID int64) (int, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != model.CampaignStatusPaused {
		return 0, apperrors.NewInvalidCampaignState(campaignID, string(campaign.Status))
	}
	if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusSending); err != nil {
		return 0, err
	}
	return s.enqueuePending(ctx, campaignID)
}

// Cancel permanently stops the campaign. Pending recipients stay pending;
// nothing will ever claim them.
func (s *CampaignService) Cancel(campaignID int64) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status.Terminal() {
		return apperrors.NewInvalidCampaignState(campaignID, string(campaign.Status))
	}
	return s.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusCanceled)
}

// FailCampaign is the circuit breaker for a stuck campaign: when a dispatch
// job exhausts its retry budget, every not-yet-terminal recipient is failed
// with the reason and the campaign itself is marked failed, so recipients
// cannot sit in pending forever.
func (s *CampaignService) FailCampaign(campaignID int64, reason string) error {
	failed, err := s.RecipientRepo.FailAllActive(campaignID, reason)
	if err != nil {
		return err
	}
	if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusFailed); err != nil {
		return err
	}
	s.Log.Error().
		Int64("campaign_id", campaignID).
		Int64("recipients_failed", failed).
		Str("reason", reason).
		Msg("campaign failed")
	return nil
}

// GetCampaignProgress returns the campaign with per-status recipient counts.
func (s *CampaignService) GetCampaignProgress(campaignID int64) (*CampaignProgress, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.RecipientRepo.CountsByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignProgress{
		ID:             campaign.ID,
		Name:           campaign.Name,
		DeliveryMethod: campaign.DeliveryMethod,
		Status:         campaign.Status,
		ScheduleAt:     campaign.ScheduleAt,
		CreatedAt:      campaign.CreatedAt,
		UpdatedAt:      campaign.UpdatedAt,
		Stats:          stats,
	}, nil
}

// RenderPreview renders the campaign's content for one user without sending
// anything. When the user's recipient row already carries a variant
// assignment the preview uses it, so the preview matches what would actually
// go out.
func (s *CampaignService) RenderPreview(campaignID, userID int64, templateID *int64) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}

	user, err := s.UserRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperrors.NewUserNotFound(userID)
	}

	effective := campaign.TemplateID
	if templateID != nil {
		effective = *templateID
	}

	tmpl, err := s.TemplateRepo.GetByID(effective)
	if err != nil {
		return "", err
	}

	return RenderTemplate(tmpl, user), nil
}

func (s *CampaignService) enqueuePending(ctx context.Context, campaignID int64) (int, error) {
	ids, err := s.RecipientRepo.ListPendingIDs(campaignID)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, id := range ids {
		job := queue.DispatchJob{
			Kind:        queue.JobKindDispatch,
			CampaignID:  campaignID,
			RecipientID: id,
		}
		if err := s.Queue.Publish(ctx, job); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}
