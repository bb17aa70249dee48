// internal/service/scheduler.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

// Scheduler finds due campaigns on a fixed interval and enqueues one work
// item per pending recipient. Overlapping runs are fine: enqueuing a
// recipient twice is harmless because the claim makes the second attempt a
// no-op.
type Scheduler struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	Queue         queue.Queue
	Log           zerolog.Logger
}

const dueCampaignBatch = 100

// RunOnce performs a single scheduler pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	campaigns, err := s.CampaignRepo.ListDue(time.Now().UTC(), dueCampaignBatch)
	if err != nil {
		s.Log.Error().Err(err).Msg("list due campaigns failed")
		return
	}
	if len(campaigns) == 0 {
		return
	}
	s.Log.Info().Int("count", len(campaigns)).Msg("due campaigns found")

	for _, c := range campaigns {
		enqueued, err := s.enqueueCampaign(ctx, c.ID)
		if err != nil {
			s.Log.Error().Err(err).Int64("campaign_id", c.ID).Msg("enqueue campaign failed")
			continue
		}
		if enqueued > 0 {
			s.Log.Info().Int64("campaign_id", c.ID).Int("recipients", enqueued).Msg("campaign enqueued")
		}
	}
}

func (s *Scheduler) enqueueCampaign(ctx context.Context, campaignID int64) (int, error) {
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
