package models

import (
	"time"
)

// Task urgency tiers. The tier→points mapping lives in config, not here.
const (
	UrgencyNormal = "normal"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Task is a unit of work. It transitions from active to completed exactly once;
// completion moves it into the history view and credits its points to the
// owner's stats.
type Task struct {
	ID          string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Points      int        `gorm:"not null" json:"points"`
	Type        string     `json:"type"`
	Urgency     string     `json:"urgency"`
	UserID      string     `gorm:"index;not null" json:"userId"`
	Completed   bool       `gorm:"index;default:false" json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TaskFields carries the caller-supplied part of a task; id, owner and
// timestamps are assigned by whichever store persists it first.
type TaskFields struct {
	Title   string `json:"title"`
	Points  int    `json:"points"`
	Type    string `json:"type"`
	Urgency string `json:"urgency"`
}
