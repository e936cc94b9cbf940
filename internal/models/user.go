package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password          string         `gorm:"not null" json:"-"`
	Name              string         `gorm:"size:100" json:"name"`
	Phone             string         `gorm:"size:20" json:"-"`
	Role              string         `gorm:"size:20;default:'user'" json:"role"`
	GatewayCustomerID *string        `gorm:"size:64;index" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}
