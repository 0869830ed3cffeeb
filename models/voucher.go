package models

import (
	"time"
)

// RedeemedVoucher is a receipt of a redemption. Created exactly once per
// successful redemption, immutable afterwards. The referenced catalog entry is
// configuration, not a persisted entity, so the title is snapshotted here.
type RedeemedVoucher struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	VoucherID  string    `gorm:"index" json:"voucherId"`
	Title      string    `json:"title"`
	Points     int       `gorm:"not null" json:"points"`
	UserID     string    `gorm:"index;not null" json:"userId"`
	RedeemedAt time.Time `json:"redeemedAt"`
}

// VoucherFields carries the caller-supplied part of a redemption receipt.
type VoucherFields struct {
	VoucherID string `json:"voucherId"`
	Title     string `json:"title"`
	Points    int    `json:"points"`
}
