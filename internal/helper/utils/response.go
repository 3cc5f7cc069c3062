package utils

import "github.com/gofiber/fiber/v2"

func ResponseError(ctx *fiber.Ctx, status int, msg string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

// ResponseInternal adds a short diagnostic label to a 500 envelope.
func ResponseInternal(ctx *fiber.Ctx, msg, diagnostic string) error {
	body := fiber.Map{
		"success": false,
		"message": msg,
	}
	if diagnostic != "" {
		body["error"] = diagnostic
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(body)
}

// ResponseSuccess merges fields into {"success": true}.
func ResponseSuccess(ctx *fiber.Ctx, status int, fields fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return ctx.Status(status).JSON(body)
}

func ResponseMessage(ctx *fiber.Ctx, status int, msg string) error {
	return ResponseSuccess(ctx, status, fiber.Map{"message": msg})
}
