package model

import (
	"time"

	"gorm.io/gorm"
)

// AuthCode is a single-use authorization code. Redemption flips Revoked with
// a conditional update so at most one redeemer wins.
type AuthCode struct {
	ID          uint   `gorm:"primarykey,autoIncrement"`
	Code        string `gorm:"size:64;not null;uniqueIndex"`
	ClientID    string `gorm:"size:64;not null;index"`
	UserID      string `gorm:"size:64;not null"`
	RedirectURI string `gorm:"size:1024;not null"`
	Scopes      string `gorm:"size:1024;not null"` // space-separated
	ExpiresAt   time.Time
	Revoked     bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (c *AuthCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = GenerateID()
	}
	return nil
}
