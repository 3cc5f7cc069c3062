package services

import (
	"context"
	"errors"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
)

var ErrTokenInvalidOrExpired = errors.New("token invalid or expired")

// IssuedToken is a freshly generated single-use token. Plain goes into the
// email link; Hash is what gets stored.
type IssuedToken struct {
	Plain   string
	Hash    string
	Expires time.Time
}

// TokenManager owns the email-verification and password-reset token
// lifecycles. Tokens are stored as sha256 hex and honored once.
type TokenManager struct {
	repo      repository.UserRepository
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewTokenManager(repo repository.UserRepository, verifyTTL, resetTTL time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{repo: repo, verifyTTL: verifyTTL, resetTTL: resetTTL, now: now}
}

func (m *TokenManager) VerifyTTL() time.Duration { return m.verifyTTL }
func (m *TokenManager) ResetTTL() time.Duration  { return m.resetTTL }

func (m *TokenManager) newToken(ttl time.Duration) (IssuedToken, error) {
	plain, err := utils.RandomToken(utils.TokenBytes)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Plain:   plain,
		Hash:    utils.Sha256Hex(plain),
		Expires: m.now().UTC().Add(ttl),
	}, nil
}

// NewVerificationToken generates a token for a user that is not stored yet.
func (m *TokenManager) NewVerificationToken() (IssuedToken, error) {
	return m.newToken(m.verifyTTL)
}

// ReissueVerification overwrites the user's verification token.
func (m *TokenManager) ReissueVerification(ctx context.Context, userID uint) (IssuedToken, error) {
	tok, err := m.newToken(m.verifyTTL)
	if err != nil {
		return IssuedToken{}, err
	}
	err = m.repo.UpdateFields(ctx, userID, map[string]any{
		"verification_token":         tok.Hash,
		"verification_token_expires": tok.Expires,
	})
	if err != nil {
		return IssuedToken{}, err
	}
	return tok, nil
}

// IssueReset overwrites any previous reset token for the user.
func (m *TokenManager) IssueReset(ctx context.Context, userID uint) (IssuedToken, error) {
	tok, err := m.newToken(m.resetTTL)
	if err != nil {
		return IssuedToken{}, err
	}
	err = m.repo.UpdateFields(ctx, userID, map[string]any{
		"reset_password_token":   tok.Hash,
		"reset_password_expires": tok.Expires,
	})
	if err != nil {
		return IssuedToken{}, err
	}
	return tok, nil
}

// ConsumeVerification marks the owner of plain as verified. A missing,
// expired or already used token yields ErrTokenInvalidOrExpired.
func (m *TokenManager) ConsumeVerification(ctx context.Context, plain string) (*domain.User, error) {
	if plain == "" {
		return nil, ErrTokenInvalidOrExpired
	}
	hash := utils.Sha256Hex(plain)

	user, err := m.repo.FindUserByVerificationToken(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	now := m.now().UTC()
	if user.VerificationTokenExpires != nil && !now.Before(*user.VerificationTokenExpires) {
		return nil, ErrTokenInvalidOrExpired
	}

	if err := m.repo.ConsumeVerificationToken(ctx, user.ID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	user.EmailVerifiedAt = &now
	user.VerificationToken = nil
	user.VerificationTokenExpires = nil
	return user, nil
}

// CompleteReset swaps in passwordHash for the owner of plain and clears the
// reset token.
func (m *TokenManager) CompleteReset(ctx context.Context, plain, passwordHash string) (*domain.User, error) {
	if plain == "" {
		return nil, ErrTokenInvalidOrExpired
	}
	hash := utils.Sha256Hex(plain)

	user, err := m.repo.FindUserByResetToken(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	if user.ResetPasswordExpires == nil || !m.now().UTC().Before(*user.ResetPasswordExpires) {
		return nil, ErrTokenInvalidOrExpired
	}

	if err := m.repo.CompletePasswordReset(ctx, user.ID, hash, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	user.PasswordHash = passwordHash
	user.ResetPasswordToken = nil
	user.ResetPasswordExpires = nil
	return user, nil
}
