package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey      = "user_id"
	CtxWarehouseIDKey = "warehouse_id"
)

// JWTMiddleware requires a valid bearer token and stores the acting user in
// the request locals.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxWarehouseIDKey, claims.WarehouseID)
		return c.Next()
	}
}

// ActingUser returns the authenticated user id, if the request carried one.
func ActingUser(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals(CtxUserIDKey).(uint)
	return uid, ok && uid != 0
}
