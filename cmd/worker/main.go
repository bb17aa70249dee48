// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/db"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
	"github.com/unclebandit/campaign-dispatch/internal/service"
	"github.com/unclebandit/campaign-dispatch/internal/transport"
)

func main() {
	// Load .env; OS environment still applies when absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, "worker")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	q, err := queue.DialRabbitMQ(cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		log.Fatal().Err(err).Msg("queue connection failed")
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}

	transports, err := buildTransports(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("transport setup failed")
	}

	tracker := &service.CompletionTracker{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		Log:           log,
	}

	dispatcher := &service.Dispatcher{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		TemplateRepo:  templateRepo,
		UserRepo:      userRepo,
		Transports:    transports,
		Variants:      service.NewVariantSelector(),
		Tracker:       tracker,
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		SendTimeout:   cfg.SendTimeout,
		Log:           log,
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		TemplateRepo:  templateRepo,
		UserRepo:      userRepo,
		Queue:         q,
		Log:           log,
	}

	scheduler := &service.Scheduler{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		Queue:         q,
		Log:           log,
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", cfg.SchedulerInterval)
	if _, err := c.AddFunc(spec, func() { scheduler.RunOnce(ctx) }); err != nil {
		log.Fatal().Err(err).Msg("scheduler registration failed")
	}
	c.Start()
	defer c.Stop()
	scheduler.RunOnce(ctx)

	msgs, err := q.Consume()
	if err != nil {
		log.Fatal().Err(err).Msg("consumer registration failed")
	}

	log.Info().
		Int("workers", cfg.Workers).
		Float64("rate_per_sec", cfg.RatePerSec).
		Msg("worker running, waiting for jobs")

	done := make(chan struct{})
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			consume(ctx, msgs, q, dispatcher, campaignService, cfg.MaxJobRetries, log)
			done <- struct{}{}
		}()
	}

	<-ctx.Done()
	for i := 0; i < cfg.Workers; i++ {
		<-done
	}
}

func buildTransports(cfg *config.Config, log zerolog.Logger) (transport.Registry, error) {
	transports := transport.Registry{}

	if cfg.TelegramToken != "" {
		tg, err := transport.NewTelegram(cfg.TelegramToken, cfg.SendTimeout)
		if err != nil {
			return nil, err
		}
		transports[model.DeliveryMethodBot] = tg
	}
	if cfg.SMS.BaseURL != "" {
		transports[model.DeliveryMethodSMS] = transport.NewSMSGateway(
			cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.Sender, cfg.SendTimeout,
		)
	}
	if len(transports) == 0 {
		log.Warn().Msg("no transports configured, every send will fail as unsupported")
	}
	return transports, nil
}

// consume pulls deliveries until the channel closes. Each job is processed
// start-to-finish; a handler error republishes with an incremented retry
// count until the budget runs out, at which point the campaign's circuit
// breaker trips.
func consume(
	ctx context.Context,
	msgs <-chan amqp.Delivery,
	q *queue.RabbitMQ,
	dispatcher *service.Dispatcher,
	campaigns *service.CampaignService,
	maxRetries int,
	log zerolog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			handleDelivery(ctx, d, q, dispatcher, campaigns, maxRetries, log)
		}
	}
}

func handleDelivery(
	ctx context.Context,
	d amqp.Delivery,
	q *queue.RabbitMQ,
	dispatcher *service.Dispatcher,
	campaigns *service.CampaignService,
	maxRetries int,
	log zerolog.Logger,
) {
	var job queue.DispatchJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Warn().Err(err).Msg("invalid job payload, dropping")
		d.Ack(false)
		return
	}

	err := dispatcher.Handle(ctx, job)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := queue.RetryCount(d)
	if retries < maxRetries {
		if pubErr := q.Republish(job, retries+1); pubErr != nil {
			log.Error().Err(pubErr).Int64("recipient_id", job.RecipientID).Msg("republish failed")
			d.Nack(false, true) // fall back to broker redelivery
			return
		}
		log.Warn().Err(err).
			Int64("recipient_id", job.RecipientID).
			Int("retry", retries+1).
			Msg("job failed, requeued")
		d.Ack(false)
		return
	}

	// Retry budget exhausted: trip the campaign circuit breaker so nothing
	// stays stuck in pending.
	reason := fmt.Sprintf("dispatch job exhausted retry budget: %v", err)
	if failErr := campaigns.FailCampaign(job.CampaignID, reason); failErr != nil {
		log.Error().Err(failErr).Int64("campaign_id", job.CampaignID).Msg("circuit breaker failed")
	}
	d.Ack(false)
}
