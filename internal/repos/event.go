package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

// EventRepo stores event series. Lookups are scoped to the owning user.
type EventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, series *types.EventSeries) error
	GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.EventSeries, error)
	// ListCandidatesForWindow returns the series that might produce an
	// occurrence in [windowStart, windowEnd). The SQL filter only
	// prunes what provably cannot intersect (one-off events outside
	// the window, any series anchored at or past the window end);
	// expansion decides the rest.
	ListCandidatesForWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, windowStart, windowEnd time.Time) ([]*types.EventSeries, error)
	ListByCalendar(ctx context.Context, tx *gorm.DB, userID, calendarID uuid.UUID) ([]*types.EventSeries, error)
	// ApplyChanges performs a partial update of the listed columns.
	ApplyChanges(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID, changes map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error
	DeleteByCalendar(ctx context.Context, tx *gorm.DB, userID, calendarID uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Create(ctx context.Context, tx *gorm.DB, series *types.EventSeries) error {
	return translate(conn(tx, r.db).WithContext(ctx).Create(series).Error)
}

func (r *eventRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.EventSeries, error) {
	var series types.EventSeries
	err := conn(tx, r.db).WithContext(ctx).
		First(&series, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &series, nil
}

func (r *eventRepo) ListCandidatesForWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, windowStart, windowEnd time.Time) ([]*types.EventSeries, error) {
	var series []*types.EventSeries
	err := conn(tx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Where("starts_at < ?", windowEnd).
		Where("recurrence <> '' OR ends_at > ?", windowStart).
		Order("starts_at ASC").
		Find(&series).Error
	if err != nil {
		return nil, translate(err)
	}
	return series, nil
}

func (r *eventRepo) ListByCalendar(ctx context.Context, tx *gorm.DB, userID, calendarID uuid.UUID) ([]*types.EventSeries, error) {
	var series []*types.EventSeries
	err := conn(tx, r.db).WithContext(ctx).
		Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		Order("starts_at ASC").
		Find(&series).Error
	if err != nil {
		return nil, translate(err)
	}
	return series, nil
}

func (r *eventRepo) ApplyChanges(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	result := conn(tx, r.db).WithContext(ctx).
		Model(&types.EventSeries{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(changes)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepo) Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
	result := conn(tx, r.db).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.EventSeries{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepo) DeleteByCalendar(ctx context.Context, tx *gorm.DB, userID, calendarID uuid.UUID) error {
	return translate(conn(tx, r.db).WithContext(ctx).
		Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		Delete(&types.EventSeries{}).Error)
}

func (r *eventRepo) PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	result := conn(tx, r.db).WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Delete(&types.EventSeries{})
	return result.RowsAffected, translate(result.Error)
}
