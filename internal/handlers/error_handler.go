package handlers

import (
	"errors"
	"time"

	"inventory/internal/models"
	"inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Status    int                 `json:"status"`
	Error     string              `json:"error"`
	Message   string              `json:"message"`
	Path      string              `json:"path"`
	Errors    []models.FieldError `json:"errors,omitempty"`
}

// ErrorHandler is the app-wide fallback for unmatched routes and failed
// handlers. It keeps the status carried by the error and defaults to 500.
// Details of unexpected failures are logged, never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := utils.StatusMessage(code)
	var fieldErrors []models.FieldError

	var validationErr *models.ValidationError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &validationErr):
		code = fiber.StatusBadRequest
		message = "Validation failed"
		fieldErrors = validationErr.Errors
	case errors.Is(err, models.ErrNotFound):
		code = fiber.StatusNotFound
		message = err.Error()
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request failed")
	}

	return c.Status(code).JSON(ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    code,
		Error:     utils.StatusMessage(code),
		Message:   message,
		Path:      c.Path(),
		Errors:    fieldErrors,
	})
}
