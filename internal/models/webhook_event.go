package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent records every gateway webhook delivery before it is processed.
// The unique gateway event id makes redelivered events a no-op.
type WebhookEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID      string         `gorm:"size:64;not null;uniqueIndex" json:"event_id"`
	EventType    string         `gorm:"size:64;not null;index" json:"event_type"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Processed    bool           `gorm:"default:false;index" json:"processed"`
	ProcessError string         `gorm:"type:text" json:"process_error,omitempty"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
