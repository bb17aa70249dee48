// internal/service/completion.go
package service

import (
	"errors"

	"github.com/rs/zerolog"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

// CompletionTracker derives campaign status from aggregate recipient state.
// The check is intentionally racy under concurrency: campaign status is an
// observability signal, not a gate for recipient-level correctness, and the
// dispatcher re-checks pause/cancel before every claim.
type CompletionTracker struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	Log           zerolog.Logger
}

// Recompute runs after every terminal or dropped recipient outcome. Zero
// recipients still in pending/processing means the campaign is done;
// repeated zero-counts simply re-write the same value.
func (t *CompletionTracker) Recompute(campaignID int64) error {
	active, total, err := t.RecipientRepo.CountActive(campaignID)
	if err != nil {
		return err
	}
	if total == 0 {
		// Recipient set not materialized yet; nothing to derive.
		return nil
	}

	campaign, err := t.CampaignRepo.GetByID(campaignID)
	if err != nil {
		var notFound *apperrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	if active == 0 {
		if campaign.Status.Stopped() && campaign.Status != model.CampaignStatusPaused {
			// canceled/failed stays as-is
			return nil
		}
		if campaign.Status == model.CampaignStatusCompleted {
			return nil
		}
		if err := t.CampaignRepo.UpdateStatus(campaignID, model.CampaignStatusCompleted); err != nil {
			return err
		}
		t.Log.Info().Int64("campaign_id", campaignID).Int("recipients", total).Msg("campaign completed")
		return nil
	}

	if campaign.Status == model.CampaignStatusQueued || campaign.Status == model.CampaignStatusScheduled {
		return t.CampaignRepo.PromoteToSending(campaignID)
	}
	return nil
}
