package model

import (
	"time"

	"gorm.io/gorm"
)

// Client is a registered third-party application. Rows are provisioned by an
// operator; the server only reads them.
type Client struct {
	ID           uint   `gorm:"primarykey,autoIncrement"`
	ClientID     string `gorm:"size:64;not null;uniqueIndex"`
	Secret       string `gorm:"size:128;not null"` // empty for public clients
	Name         string `gorm:"size:128;not null"`
	RedirectURIs string `gorm:"size:2048;not null"` // space-separated
	GrantTypes   string `gorm:"size:256;not null"`  // space-separated; empty allows all enabled grants
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = GenerateID()
	}
	return nil
}
