package middleware

import (
	"strings"

	"github.com/bettask/backend/internal/auth"
	"github.com/bettask/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const CtxService = "service"

// ServiceAuthMiddleware guards the internal API. Every caller is another
// service (the bridge, an operator tool), never an end user; end users
// only ever reach us through the bridge webhook.
func ServiceAuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxService, claims.Service)
		return c.Next()
	}
}

func GetService(c *fiber.Ctx) string {
	s, _ := c.Locals(CtxService).(string)
	return s
}
