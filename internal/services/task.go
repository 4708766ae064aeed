package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/quickadd"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/types"
)

// TaskInput carries the fields of a task creation request.
type TaskInput struct {
	Title    string
	Notes    string
	DueAt    *time.Time
	AllDay   bool
	Priority types.TaskPriority
}

// TaskPatch is a partial task update. ClearDue removes the due date; it wins
// over DueAt when both are set.
type TaskPatch struct {
	Title    *string
	Notes    *string
	DueAt    *time.Time
	ClearDue bool
	AllDay   *bool
	Priority *types.TaskPriority
}

// TaskService owns the task list.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, in TaskInput) (*types.Task, error)

	// QuickAdd parses a one-line capture in the user's timezone and stores
	// the resulting task.
	QuickAdd(ctx context.Context, userID uuid.UUID, text string) (*types.Task, error)

	Get(ctx context.Context, userID, id uuid.UUID) (*types.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter repos.TaskFilter) ([]*types.Task, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch TaskPatch) (*types.Task, error)

	// Complete stamps the task done at the given instant; Reopen clears it.
	// Both are idempotent. Toggle flips between the two states.
	Complete(ctx context.Context, userID, id uuid.UUID, at time.Time) (*types.Task, error)
	Reopen(ctx context.Context, userID, id uuid.UUID) (*types.Task, error)
	Toggle(ctx context.Context, userID, id uuid.UUID, at time.Time) (*types.Task, error)

	// Reorder rewrites the manual sort positions to match the given order.
	// Tasks not listed keep their positions.
	Reorder(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error

	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type taskService struct {
	db       *gorm.DB
	log      *logger.Logger
	taskRepo repos.TaskRepo
	userRepo repos.UserRepo
	now      func() time.Time
}

func NewTaskService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, userRepo repos.UserRepo) TaskService {
	return &taskService{
		db:       db,
		log:      log.With("service", "TaskService"),
		taskRepo: taskRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

func (ts *taskService) Create(ctx context.Context, userID uuid.UUID, in TaskInput) (*types.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title", ErrValidation)
	}
	priority := in.Priority
	if priority == "" {
		priority = types.PriorityNone
	}
	if !types.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: priority %q", ErrValidation, priority)
	}

	task := &types.Task{
		UserID:   userID,
		Title:    title,
		Notes:    in.Notes,
		DueAt:    in.DueAt,
		AllDay:   in.AllDay,
		Priority: priority,
	}
	if err := ts.taskRepo.Create(ctx, nil, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (ts *taskService) QuickAdd(ctx context.Context, userID uuid.UUID, text string) (*types.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text", ErrValidation)
	}

	loc := time.UTC
	if user, err := ts.userRepo.GetByID(ctx, nil, userID); err == nil {
		if l, lerr := time.LoadLocation(user.Timezone); lerr == nil {
			loc = l
		}
	}

	parsed := quickadd.Parse(text, ts.now(), loc)
	task, err := ts.Create(ctx, userID, TaskInput{
		Title:    parsed.Title,
		DueAt:    parsed.DueAt,
		AllDay:   parsed.AllDay,
		Priority: types.TaskPriority(parsed.Priority),
	})
	if err != nil {
		return nil, err
	}
	ts.log.Debug("quick add", "task_id", task.ID, "due_set", task.DueAt != nil)
	return task, nil
}

func (ts *taskService) Get(ctx context.Context, userID, id uuid.UUID) (*types.Task, error) {
	return ts.taskRepo.GetByID(ctx, nil, userID, id)
}

func (ts *taskService) List(ctx context.Context, userID uuid.UUID, filter repos.TaskFilter) ([]*types.Task, error) {
	return ts.taskRepo.List(ctx, nil, userID, filter)
}

func (ts *taskService) Update(ctx context.Context, userID, id uuid.UUID, patch TaskPatch) (*types.Task, error) {
	var updated *types.Task
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := ts.taskRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return fmt.Errorf("%w: title", ErrValidation)
			}
			task.Title = title
		}
		if patch.Notes != nil {
			task.Notes = *patch.Notes
		}
		if patch.ClearDue {
			task.DueAt = nil
			task.AllDay = false
		} else if patch.DueAt != nil {
			task.DueAt = patch.DueAt
		}
		if patch.AllDay != nil && !patch.ClearDue {
			task.AllDay = *patch.AllDay
		}
		if patch.Priority != nil {
			if !types.ValidPriority(*patch.Priority) {
				return fmt.Errorf("%w: priority %q", ErrValidation, *patch.Priority)
			}
			task.Priority = *patch.Priority
		}
		if err := ts.taskRepo.Update(ctx, tx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (ts *taskService) Complete(ctx context.Context, userID, id uuid.UUID, at time.Time) (*types.Task, error) {
	return ts.setDone(ctx, userID, id, &at)
}

func (ts *taskService) Reopen(ctx context.Context, userID, id uuid.UUID) (*types.Task, error) {
	return ts.setDone(ctx, userID, id, nil)
}

func (ts *taskService) Toggle(ctx context.Context, userID, id uuid.UUID, at time.Time) (*types.Task, error) {
	var updated *types.Task
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := ts.taskRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if task.Done() {
			task.DoneAt = nil
		} else {
			task.DoneAt = &at
		}
		if err := ts.taskRepo.Update(ctx, tx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (ts *taskService) setDone(ctx context.Context, userID, id uuid.UUID, at *time.Time) (*types.Task, error) {
	var updated *types.Task
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := ts.taskRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if task.Done() == (at != nil) {
			updated = task
			return nil
		}
		task.DoneAt = at
		if err := ts.taskRepo.Update(ctx, tx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (ts *taskService) Reorder(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			task, err := ts.taskRepo.GetByID(ctx, tx, userID, id)
			if err != nil {
				return err
			}
			if task.Position == i+1 {
				continue
			}
			task.Position = i + 1
			if err := ts.taskRepo.Update(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ts *taskService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return ts.taskRepo.Delete(ctx, nil, userID, id)
}
