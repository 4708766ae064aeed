package services

import (
	"bytes"
	"context"
	"io"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/ics"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/types"
)

// ImportReport summarizes an ICS import.
type ImportReport struct {
	Imported         int `json:"imported"`
	SkippedOverrides int `json:"skipped_overrides"`
	SkippedInvalid   int `json:"skipped_invalid"`
	SimplifiedRules  int `json:"simplified_rules"`
}

// ICSService moves calendars across the iCalendar boundary. Export and
// import are both one-way copies; nothing links the copies afterwards.
type ICSService interface {
	// Export renders every series of one calendar as an ICS document.
	Export(ctx context.Context, userID, calendarID uuid.UUID) (string, error)

	// Import creates a new series for every master VEVENT in the stream.
	Import(ctx context.Context, userID, calendarID uuid.UUID, r io.Reader) (*ImportReport, error)
}

type icsService struct {
	db           *gorm.DB
	log          *logger.Logger
	eventRepo    repos.EventRepo
	calendarRepo repos.CalendarRepo
}

func NewICSService(db *gorm.DB, log *logger.Logger, eventRepo repos.EventRepo, calendarRepo repos.CalendarRepo) ICSService {
	return &icsService{
		db:           db,
		log:          log.With("service", "ICSService"),
		eventRepo:    eventRepo,
		calendarRepo: calendarRepo,
	}
}

func (is *icsService) Export(ctx context.Context, userID, calendarID uuid.UUID) (string, error) {
	if _, err := is.calendarRepo.GetByID(ctx, nil, userID, calendarID); err != nil {
		return "", err
	}
	rows, err := is.eventRepo.ListByCalendar(ctx, nil, userID, calendarID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (is *icsService) Import(ctx context.Context, userID, calendarID uuid.UUID, r io.Reader) (*ImportReport, error) {
	if _, err := is.calendarRepo.GetByID(ctx, nil, userID, calendarID); err != nil {
		return nil, err
	}
	imported, stats, err := ics.Decode(r)
	if err != nil {
		return nil, err
	}

	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ev := range imported {
			title := ev.Title
			if title == "" {
				title = "Untitled"
			}
			row := &types.EventSeries{
				CalendarID:  calendarID,
				UserID:      userID,
				Title:       title,
				Description: ev.Description,
				Location:    ev.Location,
				StartsAt:    ev.StartsAt,
				EndsAt:      ev.EndsAt,
				AllDay:      ev.AllDay,
				Recurrence:  ev.Recurrence,
				Exceptions:  datatypes.JSONSlice[string](ev.Exceptions),
			}
			if err := is.eventRepo.Create(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		Imported:         stats.Events,
		SkippedOverrides: stats.SkippedOverrides,
		SkippedInvalid:   stats.SkippedInvalid,
		SimplifiedRules:  stats.SimplifiedRules,
	}
	is.log.Info("calendar imported", "calendar_id", calendarID,
		"imported", report.Imported, "skipped_overrides", report.SkippedOverrides,
		"skipped_invalid", report.SkippedInvalid, "simplified_rules", report.SimplifiedRules)
	return report, nil
}
