// internal/model/user.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attrs holds free-form user fields referenced by template variables,
// stored as JSONB.
type Attrs map[string]string

func (a Attrs) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

func (a *Attrs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Attrs{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("attrs: cannot scan %T", src)
	}
}

// User is a dispatch target owned by the surrounding system. ChatID is the
// channel identifier for chat delivery, Phone for SMS; a recipient whose user
// lacks the identifier for the campaign's method cannot be dispatched.
type User struct {
	ID        int64   `db:"id" json:"id"`
	ChatID    *string `db:"chat_id" json:"chat_id,omitempty"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Attrs     Attrs   `db:"attrs" json:"attrs"`
}

// Field returns the user's value for a template variable name. Unknown
// names resolve to the empty string.
func (u *User) Field(name string) string {
	switch name {
	case "first_name":
		return u.FirstName
	case "last_name":
		return u.LastName
	case "phone":
		if u.Phone != nil {
			return *u.Phone
		}
		return ""
	}
	return u.Attrs[name]
}

// ChannelID returns the identifier a message is addressed to for the given
// delivery method, or empty when the user has none.
func (u *User) ChannelID(method DeliveryMethod) string {
	switch method {
	case DeliveryMethodBot, DeliveryMethodApp:
		if u.ChatID != nil {
			return *u.ChatID
		}
	case DeliveryMethodSMS:
		if u.Phone != nil {
			return *u.Phone
		}
	}
	return ""
}
