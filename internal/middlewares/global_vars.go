package middlewares

import "github.com/gofiber/fiber/v2"

// InjectGlobalVars exposes deploy-wide template variables to every request.
func InjectGlobalVars(vars fiber.Map) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for key, val := range vars {
			c.Locals(key, val)
		}
		return c.Next()
	}
}
