package repository

import (
	"database/sql"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type RecipientRepositoryInterface interface {
	// Claim atomically transitions a recipient from pending to processing and
	// returns the updated row. A nil recipient with nil error means the row was
	// already claimed or terminal; callers treat that as a no-op.
	Claim(campaignID, recipientID int64) (*model.Recipient, error)

	GetByID(id int64) (*model.Recipient, error)
	AssignVariant(recipientID, templateID int64) error
	MarkSent(recipientID int64, externalMessageID string) error
	MarkFailed(recipientID int64, reason string) error
	ListPendingIDs(campaignID int64) ([]int64, error)
	CountActive(campaignID int64) (active int, total int, err error)
	CountsByStatus(campaignID int64) (map[string]int, error)
	FailAllActive(campaignID int64, reason string) (int64, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, campaign_id, user_id, variant_template_id, external_message_id, status, sent_at, delivered_at, read_at, error, created_at, updated_at`

func scanRecipient(row *sql.Row) (*model.Recipient, error) {
	var rec model.Recipient
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.UserID, &rec.VariantTemplateID,
		&rec.ExternalMessageID, &rec.Status, &rec.SentAt, &rec.DeliveredAt,
		&rec.ReadAt, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Claim is the single synchronization primitive of the pipeline: the
// conditional UPDATE matches at most one row, and only when the recipient is
// still pending. Two dispatchers racing on the same job see exactly one
// returned row between them.
func (r *RecipientRepository) Claim(campaignID, recipientID int64) (*model.Recipient, error) {
	query := `
        UPDATE recipients
        SET status='processing', updated_at=NOW()
        WHERE id=$1 AND campaign_id=$2 AND status='pending'
        RETURNING ` + recipientColumns

	rec, err := scanRecipient(r.DB.QueryRow(query, recipientID, campaignID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // already claimed or terminal
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) GetByID(id int64) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id=$1`
	rec, err := scanRecipient(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// AssignVariant persists the chosen variant template so later retries render
// identical content. Write-once: an already assigned variant is never
// re-rolled.
func (r *RecipientRepository) AssignVariant(recipientID, templateID int64) error {
	query := `
        UPDATE recipients SET variant_template_id=$1, updated_at=NOW()
        WHERE id=$2 AND variant_template_id IS NULL
    `
	_, err := r.DB.Exec(query, templateID, recipientID)
	return err
}

func (r *RecipientRepository) MarkSent(recipientID int64, externalMessageID string) error {
	query := `
        UPDATE recipients
        SET status='sent', external_message_id=$1, sent_at=NOW(), error=NULL, updated_at=NOW()
        WHERE id=$2 AND status='processing'
    `
	_, err := r.DB.Exec(query, externalMessageID, recipientID)
	return err
}

func (r *RecipientRepository) MarkFailed(recipientID int64, reason string) error {
	query := `
        UPDATE recipients SET status='failed', error=$1, updated_at=NOW()
        WHERE id=$2 AND status IN ('pending', 'processing')
    `
	_, err := r.DB.Exec(query, reason, recipientID)
	return err
}

func (r *RecipientRepository) ListPendingIDs(campaignID int64) ([]int64, error) {
	query := `SELECT id FROM recipients WHERE campaign_id=$1 AND status='pending' ORDER BY id`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActive counts recipients still in pending/processing alongside the
// campaign's total. Zero active over a nonzero total means the campaign is
// done.
func (r *RecipientRepository) CountActive(campaignID int64) (int, int, error) {
	query := `
        SELECT COUNT(*) FILTER (WHERE status IN ('pending', 'processing')), COUNT(*)
        FROM recipients WHERE campaign_id=$1
    `
	var active, total int
	if err := r.DB.QueryRow(query, campaignID).Scan(&active, &total); err != nil {
		return 0, 0, err
	}
	return active, total, nil
}

func (r *RecipientRepository) CountsByStatus(campaignID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM recipients WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":      0,
		"pending":    0,
		"processing": 0,
		"sent":       0,
		"delivered":  0,
		"read":       0,
		"failed":     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

// FailAllActive is the circuit breaker for a stuck campaign: every recipient
// not yet terminal is failed with the given reason. Returns the number of
// rows affected.
func (r *RecipientRepository) FailAllActive(campaignID int64, reason string) (int64, error) {
	query := `
        UPDATE recipients SET status='failed', error=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status IN ('pending', 'processing')
    `
	res, err := r.DB.Exec(query, reason, campaignID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
