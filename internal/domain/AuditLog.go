package domain

import "time"

const (
	AuditEmailVerified      = "EMAIL_VERIFIED"
	AuditPasswordReset      = "PASSWORD_RESET"
	AuditPasswordChanged    = "PASSWORD_CHANGED"
	AuditProfileUpdated     = "PROFILE_UPDATED"
	AuditReferralCodeIssued = "REFERRAL_CODE_ISSUED"
)

// AuditLog records security-relevant changes to a user account.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"not null;index" json:"actor_id"`
	Action    string    `gorm:"type:varchar(100);not null" json:"action"`
	Entity    string    `gorm:"type:varchar(100);not null" json:"entity"`
	EntityID  uint      `gorm:"not null;index" json:"entity_id"`
	Note      *string   `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
