// internal/apperrors/errors.go
package apperrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrTemplateNotFound struct {
	TemplateID int64
}

func (e *ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("template with ID %d not found", e.TemplateID)
}

func NewTemplateNotFound(id int64) error {
	return &ErrTemplateNotFound{TemplateID: id}
}

type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user with ID %d not found", e.UserID)
}

func NewUserNotFound(id int64) error {
	return &ErrUserNotFound{UserID: id}
}

// ErrUnsupportedMethod is returned when a campaign names a delivery method
// no transport is registered for.
type ErrUnsupportedMethod struct {
	Method string
}

func (e *ErrUnsupportedMethod) Error() string {
	return fmt.Sprintf("unsupported delivery method: %s", e.Method)
}

func NewUnsupportedMethod(method string) error {
	return &ErrUnsupportedMethod{Method: method}
}

// ErrInvalidCampaignState is returned when an operation is not allowed in
// the campaign's current lifecycle status.
type ErrInvalidCampaignState struct {
	CampaignID int64
	Status     string
}

func (e *ErrInvalidCampaignState) Error() string {
	return fmt.Sprintf("operation not allowed for campaign %d in status: %s", e.CampaignID, e.Status)
}

func NewInvalidCampaignState(id int64, status string) error {
	return &ErrInvalidCampaignState{CampaignID: id, Status: status}
}
