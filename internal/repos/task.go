package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

// TaskFilter narrows a task listing. Nil fields mean "don't care".
type TaskFilter struct {
	Done    *bool
	DueFrom *time.Time // inclusive
	DueTo   *time.Time // exclusive
}

// TaskRepo stores tasks. Lookups are scoped to the owning user.
type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.Task) error
	GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Task, error)
	List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter TaskFilter) ([]*types.Task, error)
	Update(ctx context.Context, tx *gorm.DB, task *types.Task) error
	Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	return translate(conn(tx, r.db).WithContext(ctx).Create(task).Error)
}

func (r *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Task, error) {
	var task types.Task
	err := conn(tx, r.db).WithContext(ctx).
		First(&task, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *taskRepo) List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter TaskFilter) ([]*types.Task, error) {
	q := conn(tx, r.db).WithContext(ctx).Where("user_id = ?", userID)
	if filter.Done != nil {
		if *filter.Done {
			q = q.Where("done_at IS NOT NULL")
		} else {
			q = q.Where("done_at IS NULL")
		}
	}
	if filter.DueFrom != nil {
		q = q.Where("due_at >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		q = q.Where("due_at < ?", *filter.DueTo)
	}

	var tasks []*types.Task
	if err := q.Order("position ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (r *taskRepo) Update(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	return translate(conn(tx, r.db).WithContext(ctx).Save(task).Error)
}

func (r *taskRepo) Delete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
	result := conn(tx, r.db).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Task{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) PurgeDeletedBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	result := conn(tx, r.db).WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Delete(&types.Task{})
	return result.RowsAffected, translate(result.Error)
}
