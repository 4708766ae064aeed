package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

// CalendarRepo stores calendars. All lookups are scoped to the owning
// user; a calendar belonging to someone else reads as ErrNotFound.
type CalendarRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cal *types.Calendar) error
	GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Calendar, error)
	GetDefault(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Calendar, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Calendar, error)
	Update(ctx context.Context, tx *gorm.DB, cal *types.Calendar) error
	Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type calendarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalendarRepo(db *gorm.DB, baseLog *logger.Logger) CalendarRepo {
	return &calendarRepo{db: db, log: baseLog.With("repo", "CalendarRepo")}
}

func (r *calendarRepo) Create(ctx context.Context, tx *gorm.DB, cal *types.Calendar) error {
	return translate(conn(tx, r.db).WithContext(ctx).Create(cal).Error)
}

func (r *calendarRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Calendar, error) {
	var cal types.Calendar
	err := conn(tx, r.db).WithContext(ctx).
		First(&cal, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cal, nil
}

func (r *calendarRepo) GetDefault(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Calendar, error) {
	var cal types.Calendar
	err := conn(tx, r.db).WithContext(ctx).
		First(&cal, "user_id = ? AND is_default = ?", userID, true).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cal, nil
}

func (r *calendarRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Calendar, error) {
	var cals []*types.Calendar
	err := conn(tx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&cals).Error
	if err != nil {
		return nil, translate(err)
	}
	return cals, nil
}

func (r *calendarRepo) Update(ctx context.Context, tx *gorm.DB, cal *types.Calendar) error {
	return translate(conn(tx, r.db).WithContext(ctx).Save(cal).Error)
}

func (r *calendarRepo) Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
	result := conn(tx, r.db).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Calendar{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *calendarRepo) PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	result := conn(tx, r.db).WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Delete(&types.Calendar{})
	return result.RowsAffected, translate(result.Error)
}
