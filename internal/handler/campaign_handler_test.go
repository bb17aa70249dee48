package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/handler"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

type stubCampaigns struct{ byID map[int64]*model.Campaign }

func (s *stubCampaigns) GetByID(id int64) (*model.Campaign, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (s *stubCampaigns) ListDue(time.Time, int) ([]*model.Campaign, error) { return nil, nil }
func (s *stubCampaigns) UpdateStatus(int64, model.CampaignStatus) error    { return nil }
func (s *stubCampaigns) PromoteToSending(int64) error                      { return nil }

type stubRecipients struct{ stats map[string]int }

func (s *stubRecipients) Claim(int64, int64) (*model.Recipient, error) { return nil, nil }
func (s *stubRecipients) GetByID(int64) (*model.Recipient, error)      { return nil, nil }
func (s *stubRecipients) AssignVariant(int64, int64) error             { return nil }
func (s *stubRecipients) MarkSent(int64, string) error                 { return nil }
func (s *stubRecipients) MarkFailed(int64, string) error               { return nil }
func (s *stubRecipients) ListPendingIDs(int64) ([]int64, error)        { return nil, nil }
func (s *stubRecipients) CountActive(int64) (int, int, error)          { return 0, 0, nil }
func (s *stubRecipients) FailAllActive(int64, string) (int64, error)   { return 0, nil }
func (s *stubRecipients) CountsByStatus(int64) (map[string]int, error) { return s.stats, nil }

type noopQueue struct{}

func (noopQueue) Publish(context.Context, queue.DispatchJob) error { return nil }

func newProgressRouter(campaigns *stubCampaigns, recipients *stubRecipients) *chi.Mux {
	h := &handler.CampaignHandler{Service: &service.CampaignService{
		CampaignRepo:  campaigns,
		RecipientRepo: recipients,
		Queue:         noopQueue{},
		Log:           zerolog.Nop(),
	}}
	r := chi.NewRouter()
	r.Get("/campaigns/{id}", h.GetCampaignProgress)
	return r
}

func TestGetCampaignProgressEndpoint(t *testing.T) {
	campaigns := &stubCampaigns{byID: map[int64]*model.Campaign{
		1: {ID: 1, Name: "promo", DeliveryMethod: model.DeliveryMethodBot, Status: model.CampaignStatusSending},
	}}
	recipients := &stubRecipients{stats: map[string]int{"sent": 2, "pending": 1, "total": 3}}
	router := newProgressRouter(campaigns, recipients)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var progress service.CampaignProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, "promo", progress.Name)
	assert.Equal(t, model.CampaignStatusSending, progress.Status)
	assert.Equal(t, 3, progress.Stats["total"])
	assert.Equal(t, 2, progress.Stats["sent"])
}

func TestGetCampaignProgressNotFound(t *testing.T) {
	router := newProgressRouter(&stubCampaigns{byID: map[int64]*model.Campaign{}}, &stubRecipients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCampaignProgressBadID(t *testing.T) {
	router := newProgressRouter(&stubCampaigns{byID: map[int64]*model.Campaign{}}, &stubRecipients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/xyz", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
