package models

import (
	"time"
)

// UserStats is the per-user aggregate mutated only by the data access layer.
// TotalPoints never goes negative: redemptions that exceed the balance are
// rejected, not clamped.
type UserStats struct {
	TasksCompleted   int `json:"tasksCompleted" gorm:"not null;default:0"`
	TotalPoints      int `json:"totalPoints" gorm:"not null;default:0"`
	VouchersRedeemed int `json:"vouchersRedeemed" gorm:"not null;default:0"`
}

// UserProfile is the identity-linked record, one per user id. The id is opaque
// and owned by the external identity provider; we never synthesize it.
type UserProfile struct {
	UID         string    `gorm:"primaryKey" json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	Stats       UserStats `gorm:"embedded" json:"stats"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName keeps the collection name aligned with the remote schema.
func (UserProfile) TableName() string {
	return "users"
}
