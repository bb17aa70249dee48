// internal/model/template.go
package model

import (
	"time"

	"github.com/lib/pq"
)

type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusArchived TemplateStatus = "archived"
)

// Template is a message body with {{field}} placeholders plus the explicit
// whitelist of variable names it may substitute. Content is immutable during
// a campaign's run; the persisted variant assignment pins it per recipient.
type Template struct {
	ID        int64          `db:"id" json:"id"`
	Body      string         `db:"body" json:"body"`
	Variables pq.StringArray `db:"variables" json:"variables"`
	Status    TemplateStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
