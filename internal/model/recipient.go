// internal/model/recipient.go
package model

import "time"

// RecipientStatus tracks one (campaign, user) pairing from pending through a
// terminal delivery outcome. Status only moves forward: pending → processing
// → {sent|failed|blocked|unsubscribed}. "delivered" and "read" are advanced
// later by the receipt path, which lives outside this pipeline.
type RecipientStatus string

const (
	RecipientStatusPending      RecipientStatus = "pending"
	RecipientStatusProcessing   RecipientStatus = "processing"
	RecipientStatusSent         RecipientStatus = "sent"
	RecipientStatusDelivered    RecipientStatus = "delivered"
	RecipientStatusRead         RecipientStatus = "read"
	RecipientStatusFailed       RecipientStatus = "failed"
	RecipientStatusBlocked      RecipientStatus = "blocked"
	RecipientStatusUnsubscribed RecipientStatus = "unsubscribed"
)

// Terminal reports whether the recipient needs no further dispatch work.
func (s RecipientStatus) Terminal() bool {
	return s != RecipientStatusPending && s != RecipientStatusProcessing
}

// Recipient is created once per (campaign, user) pair before dispatch begins
// and is never re-created. VariantTemplateID is assigned once and persisted so
// a retry renders identical content.
type Recipient struct {
	ID                int64           `db:"id" json:"id"`
	CampaignID        int64           `db:"campaign_id" json:"campaign_id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	VariantTemplateID *int64          `db:"variant_template_id" json:"variant_template_id,omitempty"`
	ExternalMessageID *string         `db:"external_message_id" json:"external_message_id,omitempty"`
	Status            RecipientStatus `db:"status" json:"status"`
	SentAt            *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt            *time.Time      `db:"read_at" json:"read_at,omitempty"`
	Error             *string         `db:"error" json:"error,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}
