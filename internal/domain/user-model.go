package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
)

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"type:varchar(50);not null" json:"nama"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Phone        *string `gorm:"type:varchar(30)" json:"no_hp,omitempty"`
	Address      *string `gorm:"type:text" json:"alamat,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	Role         string  `gorm:"type:varchar(20);not null;default:resident;index" json:"role"`

	// set only on residents, always points at an admin
	ReferringAdminID *uint `gorm:"index" json:"referring_admin_id,omitempty"`
	// set only on admins, generated lazily
	ReferralCode *string `gorm:"type:varchar(20);uniqueIndex" json:"kode_referensi,omitempty"`

	EmailVerifiedAt          *time.Time `json:"email_verified_at,omitempty"`
	VerificationToken        *string    `gorm:"type:char(64);uniqueIndex" json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	ResetPasswordToken       *string    `gorm:"type:char(64);index" json:"-"`
	ResetPasswordExpires     *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// NormalizeRole maps request input to a stored role. "warga" is the
// Indonesian alias for resident. Empty input defaults to resident.
func NormalizeRole(role string) (string, bool) {
	switch role {
	case "", RoleResident, "warga":
		return RoleResident, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}
