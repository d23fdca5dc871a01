package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/middleware"
)

// ErrorResponse is the standard format for API error responses. Code is the
// domain error kind.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusOf maps a domain error kind to its HTTP status.
func StatusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindBadRequest, domain.KindInvalidParticipants, domain.KindEmptyMessage:
		return http.StatusBadRequest
	case domain.KindForbidden, domain.KindNotInGym:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorResponse. Internal failures are logged and
// their details withheld from the client.
func Error(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(domain.KindBadRequest), Message: err.Error()})
	}

	kind := domain.KindOf(err)
	status := StatusOf(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		middleware.FromContext(c.Request().Context()).Error("Request failed", "error", err)
		msg = "internal error"
	}
	return c.JSON(status, ErrorResponse{Code: string(kind), Message: msg})
}

// HTTPErrorHandler renders echo errors in the ErrorResponse format.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, ErrorResponse{Code: http.StatusText(he.Code), Message: msg})
		return
	}
	_ = Error(c, err)
}

// Caller returns the authenticated identity or an echo 401 error.
func Caller(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// Bind binds and validates the request into v.
func Bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return err
	}
	return c.Validate(v)
}
