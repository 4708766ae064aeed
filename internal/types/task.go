package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskPriority orders tasks within a day. The zero-ish value is
// PriorityNone.
type TaskPriority string

const (
	PriorityNone   TaskPriority = "none"
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a to-do item, optionally scheduled by a due instant.
type Task struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"index;not null" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title     string         `gorm:"not null" json:"title"`
	Notes     string         `json:"notes"`
	DueAt     *time.Time     `gorm:"index" json:"due_at,omitempty"`
	AllDay    bool           `gorm:"not null;default:false" json:"all_day"`
	Priority  TaskPriority   `gorm:"not null;default:none" json:"priority"`
	DoneAt    *time.Time     `json:"done_at,omitempty"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Done reports whether the task is completed.
func (t *Task) Done() bool {
	return t.DoneAt != nil
}
