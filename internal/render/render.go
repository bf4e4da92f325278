package render

import (
	"errors"
	"time"

	"backend-lanewatch/pkg/e"

	"github.com/gofiber/fiber/v2"
)

const dataAccessMessage = "A data access error occurred. Please contact support."

type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Error writes err as an ErrorResponse. Persistence faults are reported
// without their cause so storage details never reach the client.
func Error(c *fiber.Ctx, err error) error {
	status, message := classify(err)
	return c.Status(status).JSON(ErrorResponse{
		Status:    status,
		Error:     statusText(status),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// ErrorHandler plugs Error into fiber.Config.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Error(c, err)
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	var ve *e.ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, e.ErrDataAccess):
		// a store fault may also carry a driver-derived sentinel; it stays opaque
		return fiber.StatusInternalServerError, dataAccessMessage
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Error()
	case errors.Is(err, e.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, e.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, e.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	default:
		return fiber.StatusInternalServerError, "An unexpected error occurred."
	}
}

func statusText(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "Bad Request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusNotFound:
		return "Resource Not Found"
	case fiber.StatusConflict:
		return "Conflict"
	case fiber.StatusTooManyRequests:
		return "Too Many Requests"
	default:
		return "Internal Server Error"
	}
}
