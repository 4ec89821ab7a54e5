package api

import (
	"errors"

	"habitd/internal/habit"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler maps domain errors onto HTTP responses. Unexpected errors are
// logged and answered with a generic message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			verr     *habit.ValidationError
			nerr     *habit.NotFoundError
			conflict *habit.ConflictError
			ferr     *fiber.Error
		)
		switch {
		case errors.As(err, &verr):
			logger.Debug("Validation failed", zap.String("path", c.Path()), zap.String("field", verr.Field), zap.String("reason", verr.Message))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error(), "field": verr.Field})
		case errors.As(err, &nerr):
			logger.Debug("Not found", zap.String("path", c.Path()), zap.String("resource", nerr.Resource))
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nerr.Resource + " not found"})
		case errors.As(err, &conflict):
			logger.Error("Update rolled back", zap.String("op", conflict.Op), zap.Error(conflict.Err))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "update failed, no changes were applied"})
		case errors.As(err, &ferr):
			return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
		}

		logger.Error("Unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
