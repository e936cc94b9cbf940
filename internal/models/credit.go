package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit is an account-level balance pool created by refund-to-credit flows.
// Future billing draws it down; it is never paid out in cash.
type Credit struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	RemainingAmount int64      `json:"remaining_amount"`
	IsActive        bool       `gorm:"default:true;index" json:"is_active"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
