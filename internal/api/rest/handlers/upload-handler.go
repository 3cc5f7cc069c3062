package handlers

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api/rest/middleware"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	pkgutils "github.com/ihzhatamamy/indah-bermasyarakat-be/pkg/utils"
)

const (
	avatarMaxSize = 5 * 1024 * 1024 // 5MB

	MsgAvatarRequired = "File avatar wajib diunggah"
	MsgAvatarType     = "Hanya file jpg/jpeg/png/webp yang diperbolehkan"
	MsgAvatarTooLarge = "Ukuran file terlalu besar (maks 5MB)"
)

var allowedAvatarExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// PUT /api/auth/avatar
// form-data: avatar=<image>
func (h *UserHandler) UpdateAvatar(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, middleware.MsgTokenMissing)
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgAvatarRequired)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExt[ext] {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgAvatarType)
	}
	if file.Size > avatarMaxSize {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgAvatarTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return utils.ResponseInternal(ctx, "Tidak dapat membaca file", "upload_read_failed")
	}
	defer f.Close()

	// file.Size is client supplied
	data, err := pkgutils.ReadAllLimit(f, avatarMaxSize)
	if err != nil {
		if errors.Is(err, pkgutils.ErrFileTooLarge) {
			return utils.ResponseError(ctx, fiber.StatusBadRequest, MsgAvatarTooLarge)
		}
		return utils.ResponseInternal(ctx, "Tidak dapat membaca file", "upload_read_failed")
	}

	profile, err := h.svc.UpdateAvatar(ctx.UserContext(), user.UserID, data)
	if err != nil {
		return h.fail(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"message": MsgAvatarUpdated,
		"data":    profile,
	})
}
