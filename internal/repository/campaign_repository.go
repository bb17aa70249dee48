package repository

import (
	"database/sql"
	"time"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(id int64) (*model.Campaign, error)
	ListDue(now time.Time, limit int) ([]*model.Campaign, error)
	UpdateStatus(campaignID int64, status model.CampaignStatus) error
	PromoteToSending(campaignID int64) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, template_id, delivery_method, status, ab_config, schedule_at, created_at, updated_at`

func (r *CampaignRepository) GetByID(id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.TemplateID, &c.DeliveryMethod, &c.Status,
		&c.AB, &c.ScheduleAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

// ListDue returns campaigns eligible for dispatch: still queued/scheduled
// with a schedule time that is absent or already passed.
func (r *CampaignRepository) ListDue(now time.Time, limit int) ([]*model.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status IN ('queued', 'scheduled')
          AND (schedule_at IS NULL OR schedule_at <= $1)
        ORDER BY id
        LIMIT $2
    `
	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.TemplateID, &c.DeliveryMethod, &c.Status,
			&c.AB, &c.ScheduleAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(campaignID int64, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

// PromoteToSending moves a campaign out of queued/scheduled. Best-effort: a
// campaign already sending, paused or terminal is left untouched.
func (r *CampaignRepository) PromoteToSending(campaignID int64) error {
	query := `
        UPDATE campaigns SET status='sending', updated_at=NOW()
        WHERE id=$1 AND status IN ('queued', 'scheduled')
    `
	_, err := r.DB.Exec(query, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
