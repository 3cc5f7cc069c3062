package repository

import (
	"context"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, userID uint) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	FindUserByVerificationToken(ctx context.Context, hash string) (*domain.User, error)
	FindUserByResetToken(ctx context.Context, hash string) (*domain.User, error)

	// UpdateFields applies a partial update keyed by column name.
	UpdateFields(ctx context.Context, userID uint, fields map[string]any) error
	// AssignReferralCode sets code only when the user has none and returns the
	// code that ends up stored.
	AssignReferralCode(ctx context.Context, userID uint, code string) (string, error)
	// ConsumeVerificationToken marks the email verified and clears the token,
	// but only while the stored token still equals hash.
	ConsumeVerificationToken(ctx context.Context, userID uint, hash string, at time.Time) error
	// CompletePasswordReset stores passwordHash and clears the reset fields,
	// but only while the stored reset token still equals hash.
	CompletePasswordReset(ctx context.Context, userID uint, hash, passwordHash string) error

	ListResidentsByAdmin(ctx context.Context, adminID uint) ([]domain.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user")
}

func (r *userRepository) FindUserByID(ctx context.Context, userID uint) (*domain.User, error) {
	return r.findOne(ctx, "find user by id", "id = ?", userID)
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find user by email", "email = ?", email)
}

func (r *userRepository) FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.findOne(ctx, "find user by referral code", "referral_code = ?", code)
}

func (r *userRepository) FindUserByVerificationToken(ctx context.Context, hash string) (*domain.User, error) {
	return r.findOne(ctx, "find user by verification token", "verification_token = ?", hash)
}

func (r *userRepository) FindUserByResetToken(ctx context.Context, hash string) (*domain.User, error) {
	return r.findOne(ctx, "find user by reset token", "reset_password_token = ?", hash)
}

func (r *userRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	if err := r.db.WithContext(ctx).Where(query, arg).First(user).Error; err != nil {
		return nil, translate(err, op)
	}
	return user, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, userID uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "update user")
	}
	return nil
}

func (r *userRepository) AssignReferralCode(ctx context.Context, userID uint, code string) (string, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND referral_code IS NULL", userID).
		Update("referral_code", code)
	if res.Error != nil {
		return "", translate(res.Error, "assign referral code")
	}
	if res.RowsAffected == 1 {
		return code, nil
	}

	// someone else got there first, or the user is gone
	user, err := r.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.ReferralCode == nil {
		return "", errors.New("assign referral code: no rows updated")
	}
	return *user.ReferralCode, nil
}

func (r *userRepository) ConsumeVerificationToken(ctx context.Context, userID uint, hash string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND verification_token = ?", userID, hash).
		Updates(map[string]any{
			"email_verified_at":          at,
			"verification_token":         nil,
			"verification_token_expires": nil,
		})
	if res.Error != nil {
		return translate(res.Error, "consume verification token")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "consume verification token")
	}
	return nil
}

func (r *userRepository) CompletePasswordReset(ctx context.Context, userID uint, hash, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reset_password_token = ?", userID, hash).
		Updates(map[string]any{
			"password_hash":          passwordHash,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	if res.Error != nil {
		return translate(res.Error, "complete password reset")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "complete password reset")
	}
	return nil
}

func (r *userRepository) ListResidentsByAdmin(ctx context.Context, adminID uint) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("referring_admin_id = ? AND role = ?", adminID, domain.RoleResident).
		Order("created_at DESC, id DESC").
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "list residents by admin")
	}
	return users, nil
}
