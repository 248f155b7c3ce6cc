package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// respondError maps a domain error onto the HTTP surface. Unknown errors
// come back as 500 without leaking internals.
func respondError(c echo.Context, err error) error {
	code := domain.GetErrorCode(err)
	status := http.StatusInternalServerError
	message := "an internal error occurred"

	switch code {
	case domain.ErrCodeNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case domain.ErrCodeValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case domain.ErrCodeAlreadyAssigned, domain.ErrCodeConflict:
		status = http.StatusConflict
		message = err.Error()
	case domain.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
		message = "authentication required"
	case domain.ErrCodeForbidden:
		status = http.StatusForbidden
		message = err.Error()
	}

	return c.JSON(status, models.ErrorResponse{Error: code, Message: message})
}

// bindAndValidate decodes the request body and runs the struct validators.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}
