// Package scheduler runs periodic background maintenance.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/repos"
)

// purgeAfter is how long soft-deleted rows linger before the janitor
// removes them for good.
const purgeAfter = 30 * 24 * time.Hour

// Janitor deletes expired refresh tokens and hard-deletes rows that were
// soft-deleted long enough ago.
type Janitor struct {
	cron *cron.Cron
	log  *logger.Logger

	tokenRepo    repos.TokenRepo
	eventRepo    repos.EventRepo
	calendarRepo repos.CalendarRepo
	taskRepo     repos.TaskRepo
}

func NewJanitor(log *logger.Logger, tokenRepo repos.TokenRepo, eventRepo repos.EventRepo, calendarRepo repos.CalendarRepo, taskRepo repos.TaskRepo) *Janitor {
	return &Janitor{
		cron:         cron.New(),
		log:          log.With("component", "janitor"),
		tokenRepo:    tokenRepo,
		eventRepo:    eventRepo,
		calendarRepo: calendarRepo,
		taskRepo:     taskRepo,
	}
}

// Start registers the cleanup job under the given cron spec and blocks
// until the context is cancelled.
func (j *Janitor) Start(ctx context.Context, spec string) error {
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		return fmt.Errorf("add cleanup job: %w", err)
	}
	j.cron.Start()
	j.log.Info("started", "spec", spec)

	<-ctx.Done()
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("stopped")
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	tokens, err := j.tokenRepo.DeleteExpired(ctx, nil, now)
	if err != nil {
		j.log.Error("expired token cleanup failed", "error", err)
	}

	cutoff := now.Add(-purgeAfter)
	var purged int64
	if n, err := j.eventRepo.PurgeDeletedBefore(ctx, nil, cutoff); err != nil {
		j.log.Error("event purge failed", "error", err)
	} else {
		purged += n
	}
	if n, err := j.calendarRepo.PurgeDeletedBefore(ctx, nil, cutoff); err != nil {
		j.log.Error("calendar purge failed", "error", err)
	} else {
		purged += n
	}
	if n, err := j.taskRepo.PurgeDeletedBefore(ctx, nil, cutoff); err != nil {
		j.log.Error("task purge failed", "error", err)
	} else {
		purged += n
	}

	j.log.Info("sweep done", "expired_tokens", tokens, "purged_rows", purged)
}
