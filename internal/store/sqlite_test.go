package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/store"
	"github.com/nhle/lakeconsole/tests/testutil"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestUpsertAndGetPipelines(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	began := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	err := s.UpsertPipelines(ctx, []model.Pipeline{
		{ID: 1, BlueprintID: 7, Status: model.PipelineCompleted, BeganAt: ptrTime(began), FinishedAt: ptrTime(began.Add(time.Minute))},
		{ID: 2, BlueprintID: 7, Status: model.PipelineRunning, BeganAt: ptrTime(began.Add(time.Hour)), FinishedTasks: 1, TotalTasks: 4},
		{ID: 3, BlueprintID: 8, Status: model.PipelineFailed, Message: "boom"},
	})
	require.NoError(t, err)

	bp := 7
	got, err := s.GetPipelines(ctx, store.PipelineFilter{BlueprintID: &bp})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID, "newest first")
	assert.Equal(t, model.PipelineRunning, got[0].Status)
	assert.Nil(t, got[0].FinishedAt)
	require.NotNil(t, got[1].FinishedAt)
	assert.True(t, got[1].FinishedAt.Equal(began.Add(time.Minute)))
	assert.False(t, got[0].FetchedAt.IsZero())

	// a later poll replaces the row
	require.NoError(t, s.UpsertPipelines(ctx, []model.Pipeline{
		{ID: 2, BlueprintID: 7, Status: model.PipelineCompleted, FinishedTasks: 4, TotalTasks: 4},
	}))
	p, err := s.GetPipelineByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.PipelineCompleted, p.Status)
	assert.Equal(t, 4, p.FinishedTasks)
}

func TestGetPipelinesByStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertPipelines(ctx, []model.Pipeline{
		{ID: 1, BlueprintID: 1, Status: model.PipelineFailed},
		{ID: 2, BlueprintID: 1, Status: model.PipelineCompleted},
		{ID: 3, BlueprintID: 2, Status: model.PipelineFailed},
	}))

	failed := model.PipelineFailed
	got, err := s.GetPipelines(ctx, store.PipelineFilter{Status: &failed, SortBy: "id"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)

	got, err = s.GetPipelines(ctx, store.PipelineFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)
}

func TestGetPipelineByIDNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetPipelineByID(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrunePipelines(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	var batch []model.Pipeline
	for i := 1; i <= 5; i++ {
		batch = append(batch, model.Pipeline{ID: i, BlueprintID: 1, Status: model.PipelineCompleted})
	}
	batch = append(batch, model.Pipeline{ID: 6, BlueprintID: 2, Status: model.PipelineCompleted})
	require.NoError(t, s.UpsertPipelines(ctx, batch))

	require.NoError(t, s.PrunePipelines(ctx, 1, 2))

	all, err := s.GetPipelines(ctx, store.PipelineFilter{})
	require.NoError(t, err)
	var ids []int
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{6, 5, 4}, ids)
}

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		BlueprintID: 1, PipelineID: 10, Status: model.PipelineFailed, Message: "first",
		CreatedAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		BlueprintID: 1, PipelineID: 11, Status: model.PipelineCompleted, Message: "second",
	}))
	// duplicate pipeline/status is ignored
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		BlueprintID: 1, PipelineID: 11, Status: model.PipelineCompleted, Message: "again",
	}))

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "second", unread[0].Message)
	assert.Equal(t, model.PipelineFailed, unread[1].Status)
	assert.NotEmpty(t, unread[0].ID)

	require.NoError(t, s.MarkNotificationRead(ctx, unread[0].ID))
	unread, err = s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, s.MarkAllNotificationsRead(ctx))
	unread, err = s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := t.TempDir() + "/cache.db"

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertPipelines(context.Background(), []model.Pipeline{{ID: 1, BlueprintID: 1, Status: model.PipelineRunning}}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	p, err := s.GetPipelineByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.PipelineRunning, p.Status)
}
