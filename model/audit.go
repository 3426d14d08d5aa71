package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditEvent records a consent decision or token issuance for operator review.
type AuditEvent struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	EventID   string `gorm:"size:36;not null;uniqueIndex"`
	UserID    string `gorm:"size:64"`
	ClientID  string `gorm:"size:64;not null;index"`
	EventType string `gorm:"size:32;not null;index"`
	Scopes    string `gorm:"size:1024"` // space-separated
	IP        string `gorm:"size:64"`
	UserAgent string `gorm:"size:256"`
	CreatedAt time.Time
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == 0 {
		e.ID = GenerateID()
	}
	return nil
}
