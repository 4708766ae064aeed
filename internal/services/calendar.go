package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/types"
)

// CalendarPatch is a partial calendar update.
type CalendarPatch struct {
	Name  *string
	Color *string
}

// CalendarService owns the per-user calendar list. Every user keeps exactly
// one default calendar at all times.
type CalendarService interface {
	Create(ctx context.Context, userID uuid.UUID, name, color string) (*types.Calendar, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Calendar, error)
	GetDefault(ctx context.Context, userID uuid.UUID) (*types.Calendar, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Calendar, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch CalendarPatch) (*types.Calendar, error)

	// SetDefault makes the given calendar the default, demoting the old one.
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*types.Calendar, error)

	// Delete removes a calendar and all events in it. The default calendar
	// cannot be deleted.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type calendarService struct {
	db           *gorm.DB
	log          *logger.Logger
	calendarRepo repos.CalendarRepo
	eventRepo    repos.EventRepo
}

func NewCalendarService(db *gorm.DB, log *logger.Logger, calendarRepo repos.CalendarRepo, eventRepo repos.EventRepo) CalendarService {
	return &calendarService{
		db:           db,
		log:          log.With("service", "CalendarService"),
		calendarRepo: calendarRepo,
		eventRepo:    eventRepo,
	}
}

func (cs *calendarService) Create(ctx context.Context, userID uuid.UUID, name, color string) (*types.Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrValidation)
	}
	if color == "" {
		color = "#6b7280"
	}
	cal := &types.Calendar{UserID: userID, Name: name, Color: color}
	if err := cs.calendarRepo.Create(ctx, nil, cal); err != nil {
		return nil, err
	}
	return cal, nil
}

func (cs *calendarService) Get(ctx context.Context, userID, id uuid.UUID) (*types.Calendar, error) {
	return cs.calendarRepo.GetByID(ctx, nil, userID, id)
}

func (cs *calendarService) GetDefault(ctx context.Context, userID uuid.UUID) (*types.Calendar, error) {
	return cs.calendarRepo.GetDefault(ctx, nil, userID)
}

func (cs *calendarService) List(ctx context.Context, userID uuid.UUID) ([]*types.Calendar, error) {
	return cs.calendarRepo.ListByUser(ctx, nil, userID)
}

func (cs *calendarService) Update(ctx context.Context, userID, id uuid.UUID, patch CalendarPatch) (*types.Calendar, error) {
	var updated *types.Calendar
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cal, err := cs.calendarRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: name", ErrValidation)
			}
			cal.Name = name
		}
		if patch.Color != nil {
			cal.Color = *patch.Color
		}
		if err := cs.calendarRepo.Update(ctx, tx, cal); err != nil {
			return err
		}
		updated = cal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (cs *calendarService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*types.Calendar, error) {
	var promoted *types.Calendar
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cal, err := cs.calendarRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if cal.IsDefault {
			promoted = cal
			return nil
		}
		current, err := cs.calendarRepo.GetDefault(ctx, tx, userID)
		switch {
		case err == nil:
			current.IsDefault = false
			if err := cs.calendarRepo.Update(ctx, tx, current); err != nil {
				return err
			}
		case errors.Is(err, repos.ErrNotFound):
			// no default yet, nothing to demote
		default:
			return err
		}
		cal.IsDefault = true
		if err := cs.calendarRepo.Update(ctx, tx, cal); err != nil {
			return err
		}
		promoted = cal
		return nil
	})
	if err != nil {
		return nil, err
	}
	cs.log.Info("default calendar changed", "user_id", userID, "calendar_id", id)
	return promoted, nil
}

func (cs *calendarService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cal, err := cs.calendarRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if cal.IsDefault {
			return fmt.Errorf("%w: the default calendar cannot be deleted", ErrValidation)
		}
		if err := cs.eventRepo.DeleteByCalendar(ctx, tx, userID, id); err != nil {
			return err
		}
		return cs.calendarRepo.Delete(ctx, tx, userID, id)
	})
}
