package middlewares

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the last resort for errors no handler turned into a
// protocol response. The body carries the error message for diagnostics;
// OAuth protocol errors never reach this path.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code == fiber.StatusInternalServerError {
		slog.Error("unhandled error", "path", ctx.Path(), "error", err)
	}
	return ctx.Status(code).SendString(err.Error())
}
