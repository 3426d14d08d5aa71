package model

import (
	"time"

	"gorm.io/gorm"
)

// AccessToken is an opaque bearer credential. UserID is empty for tokens
// minted through the client-credentials grant.
type AccessToken struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	Token     string `gorm:"size:64;not null;uniqueIndex"`
	ClientID  string `gorm:"size:64;not null;index"`
	UserID    string `gorm:"size:64;not null"`
	Scopes    string `gorm:"size:1024;not null"` // space-separated
	ExpiresAt time.Time
	Revoked   bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (t *AccessToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == 0 {
		t.ID = GenerateID()
	}
	return nil
}
