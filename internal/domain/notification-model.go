package domain

import "time"

const (
	NotificationVerifyEmail   = "verify_email"
	NotificationResetPassword = "reset_password"

	ChannelEmail = "email"

	NotificationPending = "pending"
	NotificationQueued  = "queued"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is the dispatch record written after an identity change.
// Its status tracks delivery independently of the user row.
type Notification struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Kind      string    `gorm:"type:varchar(30);not null" json:"kind"`
	Channel   string    `gorm:"type:varchar(20);not null;default:email" json:"channel"`
	Recipient string    `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject   string    `gorm:"type:varchar(255)" json:"subject"`
	Status    string    `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError *string   `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
