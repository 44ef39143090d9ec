package store

import (
	"context"

	"github.com/nhle/lakeconsole/internal/model"
)

// PipelineFilter controls filtering, sorting, and pagination for cached
// pipeline queries.
type PipelineFilter struct {
	BlueprintID *int
	Status      *model.PipelineStatus
	SortBy      string // "id", "created_at", "began_at", "finished_at"
	SortDesc    bool
	Limit       int
	Offset      int
}

// Store is the local cache of backend read models: pipelines observed while
// polling, and notifications about pipelines that finished. Blueprints and
// scope configs are never stored here.
type Store interface {
	UpsertPipelines(ctx context.Context, pipelines []model.Pipeline) error
	GetPipelines(ctx context.Context, opts PipelineFilter) ([]model.Pipeline, error)
	GetPipelineByID(ctx context.Context, id int) (*model.Pipeline, error)
	PrunePipelines(ctx context.Context, blueprintID int, keep int) error

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error

	Close() error
}
