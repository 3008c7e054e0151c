package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ailms/lms/backend/policy"
	"github.com/ailms/lms/backend/utils"
)

const actorKey = "actor"

func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := utils.ExtractActorFromToken(c, secret)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// RoleMiddleware lets through only actors holding one of roles. Must run after AuthMiddleware.
func RoleMiddleware(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !policy.RequireRole(actor, roles...).Allowed() {
			return utils.Forbidden(c, "Forbidden - insufficient role")
		}
		return c.Next()
	}
}

// ActorFrom returns the caller stored by AuthMiddleware.
func ActorFrom(c *fiber.Ctx) (policy.Actor, bool) {
	actor, ok := c.Locals(actorKey).(policy.Actor)
	return actor, ok
}
