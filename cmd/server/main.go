// cmd/server/main.go
package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/controller"
	"github.com/unclebandit/campaign-dispatch/internal/db"
	"github.com/unclebandit/campaign-dispatch/internal/handler"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

func main() {
	// Load .env; OS environment still applies when absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, "server")

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

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		TemplateRepo:  templateRepo,
		UserRepo:      userRepo,
		Queue:         q,
		Log:           log,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	campaignHandler := &handler.CampaignHandler{
		Service: campaignService,
	}

	r := chi.NewRouter()

	// Campaign lifecycle routes
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignProgress)
	r.Post("/campaigns/{id}/dispatch", campaignController.TriggerDispatch)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server running")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
