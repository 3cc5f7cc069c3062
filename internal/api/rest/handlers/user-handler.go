package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api/rest/middleware"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/services"
)

const (
	MsgInvalidBody = "Data yang dikirim tidak valid"

	MsgRegistered      = "Registrasi berhasil. Silakan verifikasi email Anda."
	MsgLoggedIn        = "Login berhasil"
	MsgVerified        = "Email berhasil diverifikasi"
	MsgVerifyResent    = "Email verifikasi telah dikirim ulang"
	MsgResetSent       = "Email reset password telah dikirim"
	MsgPasswordChanged = "Password berhasil diubah"
	MsgProfileUpdated  = "Profil berhasil diperbarui"
	MsgAvatarUpdated   = "Foto profil berhasil diperbarui"
)

type UserHandler struct {
	svc  services.UserService
	auth helper.Auth
	log  logging.Logger
}

func NewUserHandler(svc services.UserService, auth helper.Auth, log logging.Logger) *UserHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &UserHandler{svc: svc, auth: auth, log: log}
}

func (h *UserHandler) SetupRoutes(app *fiber.App) {
	auth := app.Group("/api/auth")

	// Public
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/verify-email/:token", h.VerifyEmail)
	auth.Post("/resend-verification", h.ResendVerification)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password/:token", h.ResetPassword)

	// Authenticated
	authed := middleware.AuthMiddleware(h.auth)
	auth.Get("/me", authed, h.Me)
	auth.Put("/update-profile", authed, h.UpdateProfile)
	auth.Put("/change-password", authed, h.ChangePassword)
	auth.Put("/avatar", authed, h.UpdateAvatar)

	// Admin (role checked by the service against the stored account)
	auth.Get("/reference-code", authed, h.ReferenceCode)
	auth.Get("/warga", authed, h.Residents)
}

func (h *UserHandler) Register(ctx *fiber.Ctx) error {
	var requestBody dto.RegisterRequest
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	result, err := h.svc.Register(ctx.UserContext(), requestBody)
	if err != nil {
		return h.fail(ctx, err)
	}

	body := fiber.Map{
		"message": MsgRegistered,
		"token":   result.Token,
		"user":    result.User,
	}
	if result.Note != "" {
		body["note"] = result.Note
	}
	return utils.ResponseSuccess(ctx, fiber.StatusCreated, body)
}

func (h *UserHandler) Login(ctx *fiber.Ctx) error {
	var requestBody dto.UserLogin
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	result, err := h.svc.Login(ctx.UserContext(), requestBody)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"message": MsgLoggedIn,
		"token":   result.Token,
		"user":    result.User,
	})
}

func (h *UserHandler) VerifyEmail(ctx *fiber.Ctx) error {
	if err := h.svc.VerifyEmail(ctx.UserContext(), ctx.Params("token")); err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseMessage(ctx, fiber.StatusOK, MsgVerified)
}

func (h *UserHandler) ResendVerification(ctx *fiber.Ctx) error {
	var requestBody dto.EmailRequest
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	note, err := h.svc.ResendVerification(ctx.UserContext(), requestBody)
	if err != nil {
		return h.fail(ctx, err)
	}
	return messageWithNote(ctx, MsgVerifyResent, note)
}

func (h *UserHandler) ForgotPassword(ctx *fiber.Ctx) error {
	var requestBody dto.EmailRequest
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	note, err := h.svc.ForgotPassword(ctx.UserContext(), requestBody)
	if err != nil {
		return h.fail(ctx, err)
	}
	return messageWithNote(ctx, MsgResetSent, note)
}

func (h *UserHandler) ResetPassword(ctx *fiber.Ctx) error {
	var requestBody dto.ResetPasswordRequest
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	if err := h.svc.ResetPassword(ctx.UserContext(), ctx.Params("token"), requestBody); err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseMessage(ctx, fiber.StatusOK, MsgPasswordChanged)
}

func (h *UserHandler) Me(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	profile, err := h.svc.GetProfile(ctx.UserContext(), user.UserID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{"data": profile})
}

func (h *UserHandler) UpdateProfile(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	var requestBody dto.UpdateUserProfile
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	profile, err := h.svc.UpdateProfile(ctx.UserContext(), user.UserID, requestBody)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"message": MsgProfileUpdated,
		"data":    profile,
	})
}

func (h *UserHandler) ChangePassword(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	var requestBody dto.ChangePasswordRequest
	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgInvalidBody)
	}

	if err := h.svc.ChangePassword(ctx.UserContext(), user.UserID, requestBody); err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseMessage(ctx, fiber.StatusOK, MsgPasswordChanged)
}

func (h *UserHandler) ReferenceCode(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	code, err := h.svc.GetReferralCode(ctx.UserContext(), user.UserID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{"kode_referensi": code})
}

func (h *UserHandler) Residents(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	residents, err := h.svc.ListReferredResidents(ctx.UserContext(), user.UserID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"count": len(residents),
		"data":  residents,
	})
}

func messageWithNote(ctx *fiber.Ctx, msg, note string) error {
	body := fiber.Map{"message": msg}
	if note != "" {
		body["note"] = note
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, body)
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidOrExpired:
		return fiber.StatusBadRequest
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *UserHandler) fail(ctx *fiber.Ctx, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal("Terjadi kesalahan pada server", "unexpected", err)
	}

	if de.Kind == domain.KindInternal {
		h.log.Error(ctx.UserContext(), "request failed",
			"path", ctx.Path(),
			"request_id", ctx.GetRespHeader(fiber.HeaderXRequestID),
			"diagnostic", de.Diagnostic,
			"error", de.Err)
		return utils.ResponseInternal(ctx, de.Message, de.Diagnostic)
	}
	return utils.ResponseError(ctx, StatusFor(de.Kind), de.Message)
}
