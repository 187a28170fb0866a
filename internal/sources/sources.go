// Package sources defines the collaborators the plan builder reads from: commitments,
// tasks, routines and travel times. Every interface has a storage-backed implementation,
// and the lookups can be wrapped with a cache.
package sources

import (
	"context"
	"time"

	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/storage"
)

type CommitmentSource interface {
	// Commitments returns the user's commitments starting in [from, to).
	Commitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error)
}

type TaskSource interface {
	PendingTasks(ctx context.Context, userID string) ([]models.Task, error)
}

type RoutineSource interface {
	ActiveRoutines(ctx context.Context, userID string) ([]models.Routine, error)
}

// ExitTimeCalculator computes when to leave for each commitment.
type ExitTimeCalculator interface {
	Calculate(ctx context.Context, commitments []models.Commitment, currentLocation string) ([]models.ExitTime, error)
}

// Store reads every source from a storage provider.
type Store struct {
	Provider storage.Provider
}

func NewStore(p storage.Provider) *Store {
	return &Store{Provider: p}
}

func (s *Store) Commitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error) {
	return s.Provider.GetCommitments(ctx, userID, from, to)
}

func (s *Store) PendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	return s.Provider.GetPendingTasks(ctx, userID)
}

func (s *Store) ActiveRoutines(ctx context.Context, userID string) ([]models.Routine, error) {
	return s.Provider.GetRoutines(ctx, userID, true)
}

var (
	_ CommitmentSource = (*Store)(nil)
	_ TaskSource       = (*Store)(nil)
	_ RoutineSource    = (*Store)(nil)
)
