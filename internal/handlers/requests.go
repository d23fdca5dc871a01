package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// AnnouncementRequest is the body of announcement create and update calls.
// An empty message is rejected by the broadcaster, not here, so clients get
// the EmptyMessage kind.
type AnnouncementRequest struct {
	Message string `json:"message"`
}

// HistoryParams addresses one conversation.
type HistoryParams struct {
	GymID         string `param:"gymId" validate:"required"`
	CounterpartID string `param:"counterpartId" validate:"required"`
}

// EventsQuery pages the audit log.
type EventsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}
