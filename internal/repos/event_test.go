package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/db"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenForTest(logger.Nop())
	require.NoError(t, err)
	return gdb
}

// seedAccount creates a user with a calendar and returns both.
func seedAccount(t *testing.T, gdb *gorm.DB, email string) (*types.User, *types.Calendar) {
	t.Helper()
	ctx := context.Background()

	user := &types.User{Email: email, PasswordHash: "x", DisplayName: "Test", Timezone: "UTC"}
	require.NoError(t, NewUserRepo(gdb, logger.Nop()).Create(ctx, nil, user))

	cal := &types.Calendar{UserID: user.ID, Name: "Personal", Color: "#3b82f6", IsDefault: true}
	require.NoError(t, NewCalendarRepo(gdb, logger.Nop()).Create(ctx, nil, cal))

	return user, cal
}

func TestEventRepoCreateAndGet(t *testing.T) {
	gdb := newTestDB(t)
	user, cal := seedAccount(t, gdb, "alice@example.com")
	repo := NewEventRepo(gdb, logger.Nop())
	ctx := context.Background()

	series := &types.EventSeries{
		CalendarID: cal.ID,
		UserID:     user.ID,
		Title:      "Standup",
		StartsAt:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Recurrence: "FREQ=DAILY;INTERVAL=1",
		Exceptions: datatypes.JSONSlice[string]{"2024-01-03T09:00:00Z"},
	}
	require.NoError(t, repo.Create(ctx, nil, series))
	require.NotEqual(t, uuid.Nil, series.ID)

	got, err := repo.GetByID(ctx, nil, user.ID, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.Equal(t, "FREQ=DAILY;INTERVAL=1", got.Recurrence)
	assert.Equal(t, []string{"2024-01-03T09:00:00Z"}, []string(got.Exceptions))
	assert.WithinDuration(t, series.StartsAt, got.StartsAt, time.Second)
}

func TestEventRepoScopesByUser(t *testing.T) {
	gdb := newTestDB(t)
	alice, aliceCal := seedAccount(t, gdb, "alice@example.com")
	bob, _ := seedAccount(t, gdb, "bob@example.com")
	repo := NewEventRepo(gdb, logger.Nop())
	ctx := context.Background()

	series := &types.EventSeries{
		CalendarID: aliceCal.ID,
		UserID:     alice.ID,
		Title:      "Private",
		StartsAt:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, nil, series))

	_, err := repo.GetByID(ctx, nil, bob.ID, series.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Delete(ctx, nil, bob.ID, series.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepoListCandidatesForWindow(t *testing.T) {
	gdb := newTestDB(t)
	user, cal := seedAccount(t, gdb, "alice@example.com")
	repo := NewEventRepo(gdb, logger.Nop())
	ctx := context.Background()

	mk := func(title, rule string, start, end time.Time) {
		require.NoError(t, repo.Create(ctx, nil, &types.EventSeries{
			CalendarID: cal.ID,
			UserID:     user.ID,
			Title:      title,
			StartsAt:   start,
			EndsAt:     end,
			Recurrence: rule,
		}))
	}

	windowStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	// one-off inside the window
	mk("inside", "",
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	// one-off long over before the window
	mk("over", "",
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	// recurring series anchored long before the window still qualifies
	mk("weekly", "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	// anchored after the window end, cannot contribute anything
	mk("future", "FREQ=DAILY;INTERVAL=1",
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	candidates, err := repo.ListCandidatesForWindow(ctx, nil, user.ID, windowStart, windowEnd)
	require.NoError(t, err)

	titles := make([]string, 0, len(candidates))
	for _, c := range candidates {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"weekly", "inside"}, titles)
}

func TestEventRepoApplyChanges(t *testing.T) {
	gdb := newTestDB(t)
	user, cal := seedAccount(t, gdb, "alice@example.com")
	repo := NewEventRepo(gdb, logger.Nop())
	ctx := context.Background()

	series := &types.EventSeries{
		CalendarID: cal.ID,
		UserID:     user.ID,
		Title:      "Standup",
		StartsAt:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Recurrence: "FREQ=DAILY;INTERVAL=1",
	}
	require.NoError(t, repo.Create(ctx, nil, series))

	err := repo.ApplyChanges(ctx, nil, user.ID, series.ID, map[string]any{
		"title":      "Standup (new)",
		"exceptions": datatypes.JSONSlice[string]{"2024-01-02T09:00:00Z"},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, nil, user.ID, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup (new)", got.Title)
	assert.Equal(t, []string{"2024-01-02T09:00:00Z"}, []string(got.Exceptions))
	// untouched columns stay put
	assert.Equal(t, "FREQ=DAILY;INTERVAL=1", got.Recurrence)

	err = repo.ApplyChanges(ctx, nil, user.ID, uuid.New(), map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepoSoftDeleteAndPurge(t *testing.T) {
	gdb := newTestDB(t)
	user, cal := seedAccount(t, gdb, "alice@example.com")
	repo := NewEventRepo(gdb, logger.Nop())
	ctx := context.Background()

	series := &types.EventSeries{
		CalendarID: cal.ID,
		UserID:     user.ID,
		Title:      "Doomed",
		StartsAt:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, nil, series))
	require.NoError(t, repo.Delete(ctx, nil, user.ID, series.ID))

	_, err := repo.GetByID(ctx, nil, user.ID, series.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	purged, err := repo.PurgeDeletedBefore(ctx, nil, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}
