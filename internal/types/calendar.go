package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Calendar groups event series under a user. Every user gets a default
// calendar at registration; deleting a calendar soft-deletes it together
// with its series.
type Calendar struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"index;not null" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Color     string         `gorm:"not null" json:"color"`
	IsDefault bool           `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Calendar) TableName() string {
	return "calendars"
}

func (c *Calendar) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
