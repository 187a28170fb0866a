package sources

import (
	"context"
	"time"

	"github.com/julianstephens/daychain/internal/cache"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/models"
)

// Cache query names.
const (
	QueryCommitments = "commitments"
	QueryTasks       = "tasks"
	QueryRoutines    = "routines"
)

// Cached wraps sources with a lookup cache keyed by (user, date, query). Task and
// routine lookups do not depend on a date and use an empty one.
type Cached struct {
	Cache      cache.Cache
	Commitment CommitmentSource
	Task       TaskSource
	Routine    RoutineSource
}

func NewCached(c cache.Cache, cs CommitmentSource, ts TaskSource, rs RoutineSource) *Cached {
	return &Cached{Cache: c, Commitment: cs, Task: ts, Routine: rs}
}

func (c *Cached) Commitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error) {
	key := cache.Key{UserID: userID, Date: from.Format(constants.DateFormat), Query: QueryCommitments}
	return cache.GetOrLoad(ctx, c.Cache, key, func(ctx context.Context) ([]models.Commitment, error) {
		return c.Commitment.Commitments(ctx, userID, from, to)
	})
}

func (c *Cached) PendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	key := cache.Key{UserID: userID, Query: QueryTasks}
	return cache.GetOrLoad(ctx, c.Cache, key, func(ctx context.Context) ([]models.Task, error) {
		return c.Task.PendingTasks(ctx, userID)
	})
}

func (c *Cached) ActiveRoutines(ctx context.Context, userID string) ([]models.Routine, error) {
	key := cache.Key{UserID: userID, Query: QueryRoutines}
	return cache.GetOrLoad(ctx, c.Cache, key, func(ctx context.Context) ([]models.Routine, error) {
		return c.Routine.ActiveRoutines(ctx, userID)
	})
}

// Invalidate drops the cached lookups for a user. date may be empty to keep cached
// commitments.
func (c *Cached) Invalidate(ctx context.Context, userID, date string) error {
	if c.Cache == nil {
		return nil
	}
	keys := []cache.Key{
		{UserID: userID, Query: QueryTasks},
		{UserID: userID, Query: QueryRoutines},
	}
	if date != "" {
		keys = append(keys, cache.Key{UserID: userID, Date: date, Query: QueryCommitments})
	}
	for _, k := range keys {
		if err := c.Cache.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
