package handlers

import (
	"github.com/gofiber/fiber/v2"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"status": StatusSuccess,
		"data":   data,
	})
}

// failure reports an error through the envelope. Callers branch on "status", so
// component failures still answer 200 and only malformed requests use 4xx codes.
func failure(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{
		"status": StatusError,
		"error":  msg,
	})
}
