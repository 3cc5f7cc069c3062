package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/templates"
	pkgutils "github.com/ihzhatamamy/indah-bermasyarakat-be/pkg/utils"
)

const (
	MsgEmailTaken          = "Email sudah terdaftar"
	MsgInvalidReferral     = "Kode referensi tidak valid"
	MsgBadCredentials      = "Email atau password salah"
	MsgVerifyTokenInvalid  = "Token verifikasi tidak valid atau sudah kedaluwarsa"
	MsgEmailNotRegistered  = "Email tidak terdaftar"
	MsgAlreadyVerified     = "Email sudah diverifikasi"
	MsgResetTokenInvalid   = "Token reset password tidak valid atau sudah kedaluwarsa"
	MsgUserNotFound        = "User tidak ditemukan"
	MsgWrongPassword       = "Password saat ini salah"
	MsgReferralAdminOnly   = "Hanya admin yang dapat mengakses kode referensi"
	MsgResidentsAdminOnly  = "Hanya admin yang dapat mengakses daftar warga"
	MsgInvalidImage        = "File gambar tidak valid (jpg/png/webp)"
	NoteVerificationFailed = "Email verifikasi gagal dikirim. Silakan minta kirim ulang."
	NoteResetFailed        = "Email reset password gagal dikirim. Silakan coba lagi."
)

// referral code attempts before giving up on collisions
const referralCodeAttempts = 5

const (
	avatarFolder   = "indah-bermasyarakat/avatars"
	avatarMaxWidth = 512
)

type UserService interface {
	// Auth
	Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResult, error)
	Login(ctx context.Context, input dto.UserLogin) (*dto.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, input dto.EmailRequest) (note string, err error)
	ForgotPassword(ctx context.Context, input dto.EmailRequest) (note string, err error)
	ResetPassword(ctx context.Context, token string, input dto.ResetPasswordRequest) error

	// Profile
	GetProfile(ctx context.Context, userID uint) (*dto.UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uint, input dto.UpdateUserProfile) (*dto.UserProfileResponse, error)
	ChangePassword(ctx context.Context, userID uint, input dto.ChangePasswordRequest) error
	UpdateAvatar(ctx context.Context, userID uint, image []byte) (*dto.UserProfileResponse, error)

	// Referral
	GetReferralCode(ctx context.Context, userID uint) (string, error)
	ListReferredResidents(ctx context.Context, userID uint) ([]dto.ResidentSummary, error)
}

type UserServiceDeps struct {
	Users         repository.UserRepository
	Audit         repository.AuditLogRepository
	Auth          helper.Auth
	Hasher        *helper.Hasher
	Tokens        *TokenManager
	Notifications *NotificationService
	Broadcaster   interfaces.Broadcaster
	Uploader      interfaces.Uploader
	Log           logging.Logger

	// optional, defaults to utils.GenerateReferralCode
	ReferralCode func() string
}

type userService struct {
	repo     repository.UserRepository
	audit    repository.AuditLogRepository
	auth     helper.Auth
	hasher   *helper.Hasher
	tokens   *TokenManager
	notify   *NotificationService
	hub      interfaces.Broadcaster
	uploader interfaces.Uploader
	log      logging.Logger
	genCode  func() string
}

func NewUserService(d UserServiceDeps) UserService {
	s := &userService{
		repo:     d.Users,
		audit:    d.Audit,
		auth:     d.Auth,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		notify:   d.Notifications,
		hub:      d.Broadcaster,
		uploader: d.Uploader,
		log:      d.Log,
		genCode:  d.ReferralCode,
	}
	if s.genCode == nil {
		s.genCode = utils.GenerateReferralCode
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

// AUTH

func (u *userService) Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResult, error) {
	const failMsg = "Terjadi kesalahan saat registrasi"

	input.Name = strings.TrimSpace(input.Name)
	input.Email = utils.NormalizeEmail(input.Email)
	if msg := helper.ValidateStruct(input); msg != "" {
		return nil, domain.NewError(domain.KindValidation, msg)
	}
	role, ok := domain.NormalizeRole(strings.TrimSpace(input.Role))
	if !ok {
		return nil, domain.NewError(domain.KindValidation, "Role tidak valid")
	}
	email := input.Email

	if _, err := u.repo.FindUserByEmail(ctx, email); err == nil {
		return nil, domain.NewError(domain.KindConflict, MsgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}

	// referral is resolved before anything is written
	var referringAdminID *uint
	code := strings.TrimSpace(input.ReferenceCode)
	if role == domain.RoleResident && code != "" {
		admin, err := u.repo.FindUserByReferralCode(ctx, code)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NewError(domain.KindValidation, MsgInvalidReferral)
		case err != nil:
			return nil, domain.Internal(failMsg, "store_unavailable", err)
		case !admin.IsAdmin():
			return nil, domain.NewError(domain.KindValidation, MsgInvalidReferral)
		}
		referringAdminID = &admin.ID
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.Internal(failMsg, "hash_failed", err)
	}
	tok, err := u.tokens.NewVerificationToken()
	if err != nil {
		return nil, domain.Internal(failMsg, "token_generation_failed", err)
	}

	user := &domain.User{
		Name:                     input.Name,
		Email:                    email,
		PasswordHash:             hash,
		Phone:                    nonEmpty(input.Phone),
		Address:                  nonEmpty(input.Address),
		Role:                     role,
		ReferringAdminID:         referringAdminID,
		VerificationToken:        &tok.Hash,
		VerificationTokenExpires: &tok.Expires,
	}
	if err := u.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, domain.NewError(domain.KindConflict, MsgEmailTaken)
		}
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}

	token, err := u.auth.GenerateToken(user)
	if err != nil {
		return nil, domain.Internal(failMsg, "token_sign_failed", err)
	}

	result := &dto.AuthResult{Token: token, User: toSummary(user)}
	if err := u.notify.SendVerification(ctx, user, tok, templates.HumanDuration(u.tokens.VerifyTTL()), false); err != nil {
		result.Note = NoteVerificationFailed
	}

	if referringAdminID != nil && u.hub != nil {
		u.hub.NotifyUser(*referringAdminID, "resident_registered", dto.ResidentSummary{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Phone:     user.Phone,
			Address:   user.Address,
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		})
	}

	u.log.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return result, nil
}

func (u *userService) Login(ctx context.Context, input dto.UserLogin) (*dto.AuthResult, error) {
	input.Email = utils.NormalizeEmail(input.Email)
	if msg := helper.ValidateStruct(input); msg != "" {
		return nil, domain.NewError(domain.KindValidation, msg)
	}

	user, err := u.repo.FindUserByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Internal("Terjadi kesalahan saat login", "store_unavailable", err)
		}
		u.hasher.CompareDummy(input.Password)
		return nil, domain.NewError(domain.KindUnauthorized, MsgBadCredentials)
	}
	if !u.hasher.Compare(input.Password, user.PasswordHash) {
		return nil, domain.NewError(domain.KindUnauthorized, MsgBadCredentials)
	}

	token, err := u.auth.GenerateToken(user)
	if err != nil {
		return nil, domain.Internal("Terjadi kesalahan saat login", "token_sign_failed", err)
	}
	return &dto.AuthResult{Token: token, User: toSummary(user)}, nil
}

func (u *userService) VerifyEmail(ctx context.Context, token string) error {
	user, err := u.tokens.ConsumeVerification(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrTokenInvalidOrExpired) {
			return domain.NewError(domain.KindInvalidOrExpired, MsgVerifyTokenInvalid)
		}
		return domain.Internal("Terjadi kesalahan saat verifikasi email", "store_unavailable", err)
	}

	u.record(ctx, user.ID, domain.AuditEmailVerified, nil)
	if u.hub != nil {
		u.hub.NotifyUser(user.ID, "email_verified", map[string]any{"id": user.ID, "is_verified": true})
	}
	return nil
}

func (u *userService) ResendVerification(ctx context.Context, input dto.EmailRequest) (string, error) {
	const failMsg = "Terjadi kesalahan saat mengirim ulang email verifikasi"

	input.Email = utils.NormalizeEmail(input.Email)
	if msg := helper.ValidateStruct(input); msg != "" {
		return "", domain.NewError(domain.KindValidation, msg)
	}
	user, err := u.repo.FindUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.NewError(domain.KindNotFound, MsgEmailNotRegistered)
		}
		return "", domain.Internal(failMsg, "store_unavailable", err)
	}
	if user.IsVerified() {
		return "", domain.NewError(domain.KindConflict, MsgAlreadyVerified)
	}

	tok, err := u.tokens.ReissueVerification(ctx, user.ID)
	if err != nil {
		return "", domain.Internal(failMsg, "store_unavailable", err)
	}
	if err := u.notify.SendVerification(ctx, user, tok, templates.HumanDuration(u.tokens.VerifyTTL()), true); err != nil {
		return NoteVerificationFailed, nil
	}
	return "", nil
}

func (u *userService) ForgotPassword(ctx context.Context, input dto.EmailRequest) (string, error) {
	const failMsg = "Terjadi kesalahan saat memproses permintaan reset password"

	input.Email = utils.NormalizeEmail(input.Email)
	if msg := helper.ValidateStruct(input); msg != "" {
		return "", domain.NewError(domain.KindValidation, msg)
	}
	user, err := u.repo.FindUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.NewError(domain.KindNotFound, MsgEmailNotRegistered)
		}
		return "", domain.Internal(failMsg, "store_unavailable", err)
	}

	tok, err := u.tokens.IssueReset(ctx, user.ID)
	if err != nil {
		return "", domain.Internal(failMsg, "store_unavailable", err)
	}
	if err := u.notify.SendPasswordReset(ctx, user, tok, templates.HumanDuration(u.tokens.ResetTTL())); err != nil {
		return NoteResetFailed, nil
	}
	return "", nil
}

func (u *userService) ResetPassword(ctx context.Context, token string, input dto.ResetPasswordRequest) error {
	const failMsg = "Terjadi kesalahan saat reset password"

	if msg := helper.ValidateStruct(input); msg != "" {
		return domain.NewError(domain.KindValidation, msg)
	}
	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return domain.Internal(failMsg, "hash_failed", err)
	}

	user, err := u.tokens.CompleteReset(ctx, strings.TrimSpace(token), hash)
	if err != nil {
		if errors.Is(err, ErrTokenInvalidOrExpired) {
			return domain.NewError(domain.KindInvalidOrExpired, MsgResetTokenInvalid)
		}
		return domain.Internal(failMsg, "store_unavailable", err)
	}

	u.record(ctx, user.ID, domain.AuditPasswordReset, nil)
	return nil
}

// PROFILE

func (u *userService) GetProfile(ctx context.Context, userID uint) (*dto.UserProfileResponse, error) {
	user, err := u.loadUser(ctx, userID, "Terjadi kesalahan saat mengambil profil")
	if err != nil {
		return nil, err
	}
	return u.profileOf(ctx, user), nil
}

func (u *userService) UpdateProfile(ctx context.Context, userID uint, input dto.UpdateUserProfile) (*dto.UserProfileResponse, error) {
	const failMsg = "Terjadi kesalahan saat memperbarui profil"

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}
	if msg := helper.ValidateStruct(input); msg != "" {
		return nil, domain.NewError(domain.KindValidation, msg)
	}

	fields := map[string]any{}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.Phone != nil {
		fields["phone"] = nonEmpty(input.Phone)
	}
	if input.Address != nil {
		fields["address"] = nonEmpty(input.Address)
	}

	if err := u.repo.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, MsgUserNotFound)
		}
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}
	if len(fields) > 0 {
		u.record(ctx, userID, domain.AuditProfileUpdated, nil)
	}

	user, err := u.loadUser(ctx, userID, failMsg)
	if err != nil {
		return nil, err
	}
	return u.profileOf(ctx, user), nil
}

func (u *userService) ChangePassword(ctx context.Context, userID uint, input dto.ChangePasswordRequest) error {
	const failMsg = "Terjadi kesalahan saat mengubah password"

	if msg := helper.ValidateStruct(input); msg != "" {
		return domain.NewError(domain.KindValidation, msg)
	}
	user, err := u.loadUser(ctx, userID, failMsg)
	if err != nil {
		return err
	}
	if !u.hasher.Compare(input.CurrentPassword, user.PasswordHash) {
		return domain.NewError(domain.KindUnauthorized, MsgWrongPassword)
	}

	hash, err := u.hasher.Hash(input.NewPassword)
	if err != nil {
		return domain.Internal(failMsg, "hash_failed", err)
	}
	if err := u.repo.UpdateFields(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return domain.Internal(failMsg, "store_unavailable", err)
	}

	u.record(ctx, userID, domain.AuditPasswordChanged, nil)
	return nil
}

func (u *userService) UpdateAvatar(ctx context.Context, userID uint, image []byte) (*dto.UserProfileResponse, error) {
	const failMsg = "Terjadi kesalahan saat mengunggah foto profil"

	if u.uploader == nil {
		return nil, domain.Internal(failMsg, "upload_not_configured", nil)
	}
	if _, err := u.loadUser(ctx, userID, failMsg); err != nil {
		return nil, err
	}

	jpg, err := pkgutils.NormalizeToJPG(image, avatarMaxWidth, 85)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, MsgInvalidImage)
	}
	url, err := u.uploader.UploadBytes(ctx, avatarFolder, fmt.Sprintf("user_%d", userID), jpg)
	if err != nil {
		return nil, domain.Internal(failMsg, "upload_failed", err)
	}
	if err := u.repo.UpdateFields(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}

	user, err := u.loadUser(ctx, userID, failMsg)
	if err != nil {
		return nil, err
	}
	return u.profileOf(ctx, user), nil
}

// REFERRAL

func (u *userService) GetReferralCode(ctx context.Context, userID uint) (string, error) {
	const failMsg = "Terjadi kesalahan saat mengambil kode referensi"

	user, err := u.loadUser(ctx, userID, failMsg)
	if err != nil {
		return "", err
	}
	if !user.IsAdmin() {
		return "", domain.NewError(domain.KindForbidden, MsgReferralAdminOnly)
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for attempt := 1; attempt <= referralCodeAttempts; attempt++ {
		candidate := u.genCode()
		code, err := u.repo.AssignReferralCode(ctx, userID, candidate)
		if errors.Is(err, repository.ErrDuplicateKey) {
			u.log.Warn(ctx, "referral code collision", "attempt", attempt)
			continue
		}
		if err != nil {
			return "", domain.Internal(failMsg, "store_unavailable", err)
		}
		if code == candidate {
			note := code
			u.record(ctx, userID, domain.AuditReferralCodeIssued, &note)
		}
		return code, nil
	}
	return "", domain.Internal(failMsg, "referral_code_exhausted", nil)
}

func (u *userService) ListReferredResidents(ctx context.Context, userID uint) ([]dto.ResidentSummary, error) {
	const failMsg = "Terjadi kesalahan saat mengambil daftar warga"

	user, err := u.loadUser(ctx, userID, failMsg)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domain.NewError(domain.KindForbidden, MsgResidentsAdminOnly)
	}

	residents, err := u.repo.ListResidentsByAdmin(ctx, userID)
	if err != nil {
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}
	out := make([]dto.ResidentSummary, 0, len(residents))
	for i := range residents {
		r := &residents[i]
		out = append(out, dto.ResidentSummary{
			ID:         r.ID,
			Name:       r.Name,
			Email:      r.Email,
			Phone:      r.Phone,
			Address:    r.Address,
			IsVerified: r.IsVerified(),
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// helpers

func (u *userService) loadUser(ctx context.Context, userID uint, failMsg string) (*domain.User, error) {
	user, err := u.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, MsgUserNotFound)
		}
		return nil, domain.Internal(failMsg, "store_unavailable", err)
	}
	return user, nil
}

func (u *userService) profileOf(ctx context.Context, user *domain.User) *dto.UserProfileResponse {
	p := &dto.UserProfileResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Phone:        user.Phone,
		Address:      user.Address,
		AvatarURL:    user.AvatarURL,
		Role:         user.Role,
		IsVerified:   user.IsVerified(),
		ReferralCode: user.ReferralCode,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
	if user.Role == domain.RoleResident && user.ReferringAdminID != nil {
		admin, err := u.repo.FindUserByID(ctx, *user.ReferringAdminID)
		if err == nil {
			p.ReferringAdmin = &dto.AdminRef{ID: admin.ID, Name: admin.Name}
		} else if !errors.Is(err, repository.ErrNotFound) {
			u.log.Warn(ctx, "referring admin lookup failed", "user_id", user.ID, "error", err)
		}
	}
	return p
}

// record writes an audit entry; failures are logged, never returned.
func (u *userService) record(ctx context.Context, userID uint, action string, note *string) {
	if u.audit == nil {
		return
	}
	err := u.audit.Create(ctx, &domain.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "user",
		EntityID: userID,
		Note:     note,
	})
	if err != nil {
		u.log.Error(ctx, "audit log failed", "action", action, "user_id", userID, "error", err)
	}
}

func toSummary(user *domain.User) dto.UserSummary {
	return dto.UserSummary{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		IsVerified: user.IsVerified(),
	}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
