package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// JobKindDispatch is the only work-item kind this pipeline recognizes.
// Items with any other kind are logged and dropped without side effects.
const JobKindDispatch = "campaign.dispatch"

// DispatchJob is the internal queue contract: one work item per recipient.
type DispatchJob struct {
	Kind        string `json:"kind" validate:"required"`
	CampaignID  int64  `json:"campaign_id" validate:"required,gt=0"`
	RecipientID int64  `json:"recipient_id" validate:"required,gt=0"`
}

// ValidationResult is a structured accept/reject outcome for an inbound
// work item.
type ValidationResult struct {
	OK       bool
	Problems []string
}

func (v ValidationResult) Error() string {
	return strings.Join(v.Problems, "; ")
}

var validate = validator.New()

// Validate checks the job before it is accepted for processing.
func (j DispatchJob) Validate() ValidationResult {
	res := ValidationResult{OK: true}
	if err := validate.Struct(j); err != nil {
		res.OK = false
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				res.Problems = append(res.Problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
		} else {
			res.Problems = append(res.Problems, err.Error())
		}
		return res
	}
	if j.Kind != JobKindDispatch {
		res.OK = false
		res.Problems = append(res.Problems, fmt.Sprintf("unrecognized job kind %q", j.Kind))
	}
	return res
}

// Queue is the durable work queue the scheduler and the operational API
// publish to.
type Queue interface {
	Publish(ctx context.Context, job DispatchJob) error
}

// Handler processes one work item start-to-finish.
type Handler func(ctx context.Context, job DispatchJob) error

// InMemoryQueue is an in-process queue with retry, used by tests and
// single-process runs. The durable production path is RabbitMQ.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   []Handler
	maxRetries int
	log        zerolog.Logger

	wg sync.WaitGroup
}

func NewInMemoryQueue(log zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{maxRetries: 3, log: log}
}

// Publish hands the job to every subscribed handler on its own goroutine.
func (q *InMemoryQueue) Publish(ctx context.Context, job DispatchJob) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for queue")
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go func(h Handler) {
			defer q.wg.Done()
			q.processJob(ctx, h, job)
		}(handler)
	}
	return nil
}

// processJob handles retries with backoff, mirroring broker redelivery.
func (q *InMemoryQueue) processJob(ctx context.Context, handler Handler, job DispatchJob) {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, job)
		if err == nil {
			return // ACK
		}
		if attempt >= q.maxRetries {
			q.log.Error().Err(err).
				Int64("campaign_id", job.CampaignID).
				Int64("recipient_id", job.RecipientID).
				Int("attempts", attempt+1).
				Msg("job permanently failed")
			return
		}
		q.log.Warn().Err(err).
			Int64("recipient_id", job.RecipientID).
			Int("attempt", attempt+1).
			Msg("job failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
}

// Subscribe adds a handler for published jobs.
func (q *InMemoryQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Wait blocks until all in-flight jobs finish. Test helper.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
