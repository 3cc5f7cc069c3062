package helper

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// LocalsUser is the fiber locals key holding dto.Claims after auth middleware.
const LocalsUser = "user"

type Claims struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func SetupAuth(secret string, ttl time.Duration) Auth {
	return Auth{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of a that reads time from now.
func (a Auth) WithClock(now func() time.Time) Auth {
	a.now = now
	return a
}

func (a Auth) GenerateToken(user *domain.User) (string, error) {
	if user == nil || user.ID == 0 || user.Email == "" {
		return "", errors.New("required inputs are missing to generate token")
	}

	now := a.now()
	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.New("unable to sign the token")
	}
	return tokenStr, nil
}

func (a Auth) VerifyToken(tokenString string) (dto.Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return dto.Claims{}, ErrMissingToken
	}

	// support both "Bearer <token>" and "<token>"
	if strings.HasPrefix(strings.ToLower(tokenString), "bearer ") {
		tokenString = strings.TrimSpace(tokenString[len("bearer "):])
		if tokenString == "" {
			return dto.Claims{}, ErrMissingToken
		}
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dto.Claims{}, ErrTokenExpired
		}
		return dto.Claims{}, ErrInvalidToken
	}
	if claims.ID == 0 {
		return dto.Claims{}, ErrInvalidToken
	}

	out := dto.Claims{
		UserID: claims.ID,
		Email:  claims.Email,
		Role:   claims.Role,
		Exp:    claims.ExpiresAt.Unix(),
	}
	if claims.IssuedAt != nil {
		out.Iat = claims.IssuedAt.Unix()
	}
	return out, nil
}

func (a Auth) GetCurrentUser(ctx *fiber.Ctx) (dto.Claims, error) {
	claims, ok := ctx.Locals(LocalsUser).(dto.Claims)
	if !ok {
		return dto.Claims{}, errors.New("missing auth user in context")
	}
	return claims, nil
}
