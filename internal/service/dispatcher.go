// internal/service/dispatcher.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
	"github.com/unclebandit/campaign-dispatch/internal/transport"
)

// Dispatcher processes one work item start-to-finish: claim the recipient,
// resolve template and variant, render, deliver, record the outcome. A pool
// of dispatchers shares the queue; the recipient claim is the only
// synchronization between them.
type Dispatcher struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
	UserRepo      repository.UserRepositoryInterface

	Transports transport.Registry
	Variants   *VariantSelector
	Tracker    *CompletionTracker

	// Limiter caps outbound sends pool-wide; rate-limit responses from the
	// transport fail the job and lean on queue redelivery instead of an
	// in-worker sleep.
	Limiter     *rate.Limiter
	SendTimeout time.Duration

	Log zerolog.Logger
}

// Handle runs the full pipeline for one work item. A nil return acknowledges
// the job; an error asks the queue for redelivery. Recipient-level failures
// are recorded on the row and acknowledged: the recipient is terminal, so
// redelivering would be a no-op.
func (d *Dispatcher) Handle(ctx context.Context, job queue.DispatchJob) error {
	log := d.Log.With().
		Int64("campaign_id", job.CampaignID).
		Int64("recipient_id", job.RecipientID).
		Logger()

	// 1. Unrecognized or malformed work items are logged and dropped.
	if res := job.Validate(); !res.OK {
		log.Warn().Str("kind", job.Kind).Str("problems", res.Error()).Msg("dropping invalid job")
		return nil
	}

	// 2. A missing campaign means there is nothing left to update.
	campaign, err := d.CampaignRepo.GetByID(job.CampaignID)
	if err != nil {
		var notFound *apperrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			log.Warn().Msg("campaign gone, dropping job")
			return nil
		}
		return err
	}

	// 3. Soft stop: paused/canceled/failed campaigns accept no new claims.
	if campaign.Status.Stopped() {
		log.Debug().Str("status", string(campaign.Status)).Msg("campaign stopped, dropping job")
		return nil
	}

	// 4. Best-effort promotion; correctness does not depend on it.
	if campaign.Status == model.CampaignStatusQueued || campaign.Status == model.CampaignStatusScheduled {
		if err := d.CampaignRepo.PromoteToSending(campaign.ID); err != nil {
			log.Warn().Err(err).Msg("promote to sending failed")
		}
	}

	// 9. Every outcome past this point concludes with a completion check.
	defer func() {
		if err := d.Tracker.Recompute(campaign.ID); err != nil {
			log.Warn().Err(err).Msg("completion check failed")
		}
	}()

	// 5. The claim gates entry: losing the race is a no-op, not an error.
	rec, err := d.RecipientRepo.Claim(campaign.ID, job.RecipientID)
	if err != nil {
		return err
	}
	if rec == nil {
		log.Debug().Msg("recipient already claimed or terminal, dropping job")
		return nil
	}

	// 6. Load the dispatch target.
	user, err := d.UserRepo.GetByID(rec.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return d.failRecipient(log, rec, "user not found")
	}

	// 7. Effective template: the persisted variant wins over the default.
	tmpl, failReason, err := d.resolveTemplate(campaign, rec)
	if err != nil {
		return err
	}
	if failReason != "" {
		return d.failRecipient(log, rec, failReason)
	}

	// 8. Deliver.
	client, ok := d.Transports.Get(campaign.DeliveryMethod)
	if !ok {
		return d.failRecipient(log, rec, apperrors.NewUnsupportedMethod(string(campaign.DeliveryMethod)).Error())
	}

	channelID := user.ChannelID(campaign.DeliveryMethod)
	if channelID == "" {
		return d.failRecipient(log, rec, "no channel id")
	}

	text := RenderTemplate(tmpl, user)

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	sendCtx := ctx
	if d.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.SendTimeout)
		defer cancel()
	}

	externalID, err := client.Send(sendCtx, channelID, text)
	if err != nil {
		var rl *transport.RateLimitError
		if errors.As(err, &rl) {
			log.Warn().Dur("retry_after", rl.RetryAfter).Msg("transport rate limited")
		}
		return d.failRecipient(log, rec, err.Error())
	}

	if err := d.RecipientRepo.MarkSent(rec.ID, externalID); err != nil {
		return err
	}
	log.Info().Str("external_message_id", externalID).Msg("message sent")
	return nil
}

// resolveTemplate picks the recipient's persisted variant template when one
// is assigned, assigns one first when A/B testing calls for it, and falls
// back to the campaign default otherwise. failReason is non-empty when the
// recipient should be failed rather than retried.
func (d *Dispatcher) resolveTemplate(campaign *model.Campaign, rec *model.Recipient) (*model.Template, string, error) {
	templateID := campaign.TemplateID

	switch {
	case rec.VariantTemplateID != nil:
		templateID = *rec.VariantTemplateID
	case campaign.AB.Enabled:
		if v := d.Variants.Select(campaign.AB); v != nil {
			if err := d.RecipientRepo.AssignVariant(rec.ID, v.TemplateID); err != nil {
				return nil, "", err
			}
			rec.VariantTemplateID = &v.TemplateID
			templateID = v.TemplateID
		}
	}

	tmpl, err := d.TemplateRepo.GetByID(templateID)
	if err != nil {
		var notFound *apperrors.ErrTemplateNotFound
		if errors.As(err, &notFound) {
			return nil, "template not found", nil
		}
		return nil, "", err
	}
	return tmpl, "", nil
}

func (d *Dispatcher) failRecipient(log zerolog.Logger, rec *model.Recipient, reason string) error {
	if err := d.RecipientRepo.MarkFailed(rec.ID, reason); err != nil {
		return err
	}
	log.Warn().Str("reason", reason).Msg("recipient failed")
	return nil
}
