package store

import (
	"context"
	"time"

	"github.com/nhle/foodshare-desk/internal/model"
)

// ActivityFilter controls filtering and pagination for activity queries.
type ActivityFilter struct {
	Kind   *model.ActivityKind
	Limit  int
	Offset int
}

// Store defines the persistence interface for the local activity log.
type Store interface {
	RecordActivity(ctx context.Context, a model.Activity) error
	RecentActivity(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)
	PruneActivity(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
