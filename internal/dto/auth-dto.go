package dto

type RegisterRequest struct {
	Name          string  `json:"nama" validate:"required,min=3,max=50"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=6"`
	Phone         *string `json:"no_hp,omitempty"`
	Address       *string `json:"alamat,omitempty"`
	Role          string  `json:"role" validate:"omitempty,oneof=admin resident warga"`
	ReferenceCode string  `json:"kode_referensi,omitempty"`
}

type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UserSummary is the user block returned by register and login.
type UserSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"nama"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// AuthResult is what register and login hand back to the handler. Note is set
// when the account was saved but a notification could not be dispatched.
type AuthResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
	Note  string      `json:"note,omitempty"`
}

// Claims is the identity carried by a verified session token.
type Claims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Iat    int64  `json:"iat"`
	Exp    int64  `json:"exp"`
}
