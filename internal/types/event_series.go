package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/recurrence"
)

// EventSeries is the stored event record: the anchor occurrence plus
// optional rule text and exception instants. A one-off event is simply
// a series with empty Recurrence. Occurrences are never stored; they
// are expanded from this record on demand.
type EventSeries struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CalendarID  uuid.UUID                   `gorm:"index;not null" json:"calendar_id"`
	Calendar    *Calendar                   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CalendarID;references:ID" json:"-"`
	UserID      uuid.UUID                   `gorm:"index;not null" json:"user_id"`
	User        *User                       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `json:"description"`
	Location    string                      `json:"location"`
	StartsAt    time.Time                   `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time                   `gorm:"not null" json:"ends_at"`
	AllDay      bool                        `gorm:"not null;default:false" json:"all_day"`
	Recurrence  string                      `json:"recurrence,omitempty"`
	Exceptions  datatypes.JSONSlice[string] `json:"exceptions,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	DeletedAt   gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (EventSeries) TableName() string {
	return "event_series"
}

func (e *EventSeries) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// RecurrenceSeries converts the stored row into the engine's value
// form, which is what expansion and edit resolution operate on.
func (e *EventSeries) RecurrenceSeries() recurrence.Series {
	return recurrence.Series{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		AnchorStart: e.StartsAt,
		AnchorEnd:   e.EndsAt,
		AllDay:      e.AllDay,
		Recurrence:  e.Recurrence,
		Exceptions:  []string(e.Exceptions),
	}
}

// IsRecurring reports whether the series carries rule text. Whether the
// text decodes is the engine's call, not this record's.
func (e *EventSeries) IsRecurring() bool {
	return e.Recurrence != ""
}
