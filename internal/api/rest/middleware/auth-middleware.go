package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
)

const (
	MsgTokenMissing = "Akses ditolak. Token tidak ditemukan"
	MsgTokenInvalid = "Token tidak valid"
	MsgTokenExpired = "Token sudah kedaluwarsa"
)

// AuthMiddleware accepts "Authorization: Bearer <jwt>" and falls back to the
// access_token cookie. Verified claims are stored under helper.LocalsUser.
func AuthMiddleware(auth helper.Auth) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(ctx.Get(fiber.HeaderAuthorization))
		if tokenStr == "" {
			tokenStr = strings.TrimSpace(ctx.Cookies("access_token"))
		}

		claims, err := auth.VerifyToken(tokenStr)
		if err != nil {
			switch {
			case errors.Is(err, helper.ErrMissingToken):
				return utils.ResponseError(ctx, fiber.StatusUnauthorized, MsgTokenMissing)
			case errors.Is(err, helper.ErrTokenExpired):
				return utils.ResponseError(ctx, fiber.StatusUnauthorized, MsgTokenExpired)
			default:
				return utils.ResponseError(ctx, fiber.StatusUnauthorized, MsgTokenInvalid)
			}
		}

		ctx.Locals(helper.LocalsUser, claims)
		return ctx.Next()
	}
}
