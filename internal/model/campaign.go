// internal/model/campaign.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CampaignStatus is the coarse lifecycle of a campaign. It is a derived
// signal; per-recipient rows are the source of truth for individual
// delivery outcomes.
type CampaignStatus string

const (
	CampaignStatusQueued    CampaignStatus = "queued"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
	CampaignStatusCanceled  CampaignStatus = "canceled"
)

// Stopped reports whether no new recipient of this campaign may be claimed.
// Recipients already in processing are allowed to finish.
func (s CampaignStatus) Stopped() bool {
	return s == CampaignStatusPaused || s == CampaignStatusCanceled || s == CampaignStatusFailed
}

// Terminal reports whether the campaign can never dispatch again.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusFailed || s == CampaignStatusCanceled
}

// DeliveryMethod selects the transport a campaign's messages go out on.
type DeliveryMethod string

const (
	DeliveryMethodBot DeliveryMethod = "bot"
	DeliveryMethodApp DeliveryMethod = "app"
	DeliveryMethodSMS DeliveryMethod = "sms"
)

// Variant is one arm of an A/B test: an alternate template plus the share
// of recipients (in percent) it should receive.
type Variant struct {
	Name       string  `json:"name"`
	TemplateID int64   `json:"template_id"`
	Percentage float64 `json:"percentage"`
}

// ABConfig is a campaign's A/B testing configuration, stored as JSONB.
type ABConfig struct {
	Enabled  bool      `json:"enabled"`
	Variants []Variant `json:"variants,omitempty"`
}

func (c ABConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ABConfig) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ABConfig{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("ab_config: cannot scan %T", src)
	}
}

type Campaign struct {
	ID             int64          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	TemplateID     int64          `db:"template_id" json:"template_id"`
	DeliveryMethod DeliveryMethod `db:"delivery_method" json:"delivery_method"`
	Status         CampaignStatus `db:"status" json:"status"`
	AB             ABConfig       `db:"ab_config" json:"ab_config"`
	ScheduleAt     *time.Time     `db:"schedule_at" json:"schedule_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// Due reports whether the campaign is eligible for dispatch at t: it is
// still queued/scheduled and its schedule time, if any, has passed.
func (c *Campaign) Due(t time.Time) bool {
	if c.Status != CampaignStatusQueued && c.Status != CampaignStatusScheduled {
		return false
	}
	return c.ScheduleAt == nil || !c.ScheduleAt.After(t)
}
