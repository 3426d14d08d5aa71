package model

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken renews exactly one access-token lineage. Rotation consumes it
// with a conditional update, mirroring AuthCode redemption.
type RefreshToken struct {
	ID          uint   `gorm:"primarykey,autoIncrement"`
	Token       string `gorm:"size:64;not null;uniqueIndex"`
	AccessToken string `gorm:"size:64;not null;index"`
	ExpiresAt   time.Time
	Revoked     bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == 0 {
		t.ID = GenerateID()
	}
	return nil
}
