package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ailms/lms/backend/utils"
)

// ErrorHandler renders errors that escape the handlers in the same shape as handler errors.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.Error(c, fe.Code, fe.Message)
		}
		logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return utils.InternalServerError(c)
	}
}
