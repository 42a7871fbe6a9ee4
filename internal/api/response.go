package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/learntrack/internal/progress"
)

// success writes the standard success envelope.
func success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// failure writes the standard error envelope.
func failure(c *fiber.Ctx, code int, message string, details any) error {
	body := fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
	}
	if details != nil {
		body["errors"] = details
	}
	return c.Status(code).JSON(body)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, progress.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, progress.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, progress.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error returned by a handler.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make(map[string]string, len(ve))
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
			return failure(c, fiber.StatusBadRequest, "validation failed", fields)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return failure(c, fe.Code, fe.Message, nil)
		}

		code := statusFor(err)
		if code == fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
			return failure(c, code, "internal error", nil)
		}
		return failure(c, code, err.Error(), nil)
	}
}
