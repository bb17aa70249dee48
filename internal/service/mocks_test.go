package service_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

// In-memory repositories shared by the service tests. All maps are guarded
// by a mutex so the claim-race tests exercise real concurrency.

type campaignStore struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
}

func newCampaignStore(campaigns ...*model.Campaign) *campaignStore {
	s := &campaignStore{campaigns: map[int64]*model.Campaign{}}
	for _, c := range campaigns {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *campaignStore) GetByID(id int64) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (s *campaignStore) ListDue(now time.Time, limit int) ([]*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := []*model.Campaign{}
	for _, c := range s.campaigns {
		if c.Due(now) && len(due) < limit {
			cp := *c
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (s *campaignStore) UpdateStatus(campaignID int64, status model.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (s *campaignStore) PromoteToSending(campaignID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if ok && (c.Status == model.CampaignStatusQueued || c.Status == model.CampaignStatusScheduled) {
		c.Status = model.CampaignStatusSending
	}
	return nil
}

func (s *campaignStore) status(id int64) model.CampaignStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaigns[id].Status
}

type recipientStore struct {
	mu         sync.Mutex
	recipients map[int64]*model.Recipient
}

func newRecipientStore(recipients ...*model.Recipient) *recipientStore {
	s := &recipientStore{recipients: map[int64]*model.Recipient{}}
	for _, r := range recipients {
		if r.Status == "" {
			r.Status = model.RecipientStatusPending
		}
		s.recipients[r.ID] = r
	}
	return s
}

func (s *recipientStore) Claim(campaignID, recipientID int64) (*model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipients[recipientID]
	if !ok || r.CampaignID != campaignID || r.Status != model.RecipientStatusPending {
		return nil, nil
	}
	r.Status = model.RecipientStatusProcessing
	cp := *r
	return &cp, nil
}

func (s *recipientStore) GetByID(id int64) (*model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipients[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *recipientStore) AssignVariant(recipientID, templateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recipients[recipientID]; ok && r.VariantTemplateID == nil {
		r.VariantTemplateID = &templateID
	}
	return nil
}

func (s *recipientStore) MarkSent(recipientID int64, externalMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recipients[recipientID]; ok && r.Status == model.RecipientStatusProcessing {
		now := time.Now()
		r.Status = model.RecipientStatusSent
		r.ExternalMessageID = &externalMessageID
		r.SentAt = &now
		r.Error = nil
	}
	return nil
}

func (s *recipientStore) MarkFailed(recipientID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recipients[recipientID]; ok && !r.Status.Terminal() {
		r.Status = model.RecipientStatusFailed
		r.Error = &reason
	}
	return nil
}

func (s *recipientStore) ListPendingIDs(campaignID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []int64{}
	for _, r := range s.recipients {
		if r.CampaignID == campaignID && r.Status == model.RecipientStatusPending {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (s *recipientStore) CountActive(campaignID int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, total := 0, 0
	for _, r := range s.recipients {
		if r.CampaignID != campaignID {
			continue
		}
		total++
		if !r.Status.Terminal() {
			active++
		}
	}
	return active, total, nil
}

func (s *recipientStore) CountsByStatus(campaignID int64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[string]int{"total": 0}
	for _, r := range s.recipients {
		if r.CampaignID != campaignID {
			continue
		}
		stats[string(r.Status)]++
		stats["total"]++
	}
	return stats, nil
}

func (s *recipientStore) FailAllActive(campaignID int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed int64
	for _, r := range s.recipients {
		if r.CampaignID == campaignID && !r.Status.Terminal() {
			r.Status = model.RecipientStatusFailed
			r.Error = &reason
			failed++
		}
	}
	return failed, nil
}

func (s *recipientStore) status(id int64) model.RecipientStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipients[id].Status
}

func (s *recipientStore) errorText(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.recipients[id].Error; e != nil {
		return *e
	}
	return ""
}

type templateStore struct {
	templates map[int64]*model.Template
}

func newTemplateStore(templates ...*model.Template) *templateStore {
	s := &templateStore{templates: map[int64]*model.Template{}}
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return s
}

func (s *templateStore) GetByID(id int64) (*model.Template, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, apperrors.NewTemplateNotFound(id)
	}
	return t, nil
}

type userStore struct {
	users map[int64]*model.User
}

func newUserStore(users ...*model.User) *userStore {
	s := &userStore{users: map[int64]*model.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) GetByID(id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

// fakeTransport records every send and can be told to fail.
type fakeTransport struct {
	mu    sync.Mutex
	sends []fakeSend
	fail  error
}

type fakeSend struct {
	ChannelID string
	Text      string
}

func (f *fakeTransport) Send(_ context.Context, channelID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.sends = append(f.sends, fakeSend{ChannelID: channelID, Text: text})
	return "ext-" + strconv.Itoa(len(f.sends)), nil
}

func (f *fakeTransport) sent() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSend(nil), f.sends...)
}

// recordQueue captures published jobs without delivering them anywhere.
type recordQueue struct {
	mu   sync.Mutex
	jobs []queue.DispatchJob
}

func (q *recordQueue) Publish(_ context.Context, job queue.DispatchJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordQueue) published() []queue.DispatchJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.DispatchJob(nil), q.jobs...)
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

// Interface checks keep the mocks honest.
var (
	_ repository.CampaignRepositoryInterface  = (*campaignStore)(nil)
	_ repository.RecipientRepositoryInterface = (*recipientStore)(nil)
	_ repository.TemplateRepositoryInterface  = (*templateStore)(nil)
	_ repository.UserRepositoryInterface      = (*userStore)(nil)
	_ queue.Queue                             = (*recordQueue)(nil)
)
