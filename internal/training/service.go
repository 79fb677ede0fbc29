// Package training loads a user's history from storage and runs the recovery
// estimator and overload recommender over it.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
)

// ErrUnknownMuscle is returned for a muscle name outside models.AllMuscles.
var ErrUnknownMuscle = errors.New("unknown muscle")

// HistoryReader reads workout history. *storage.DB and *storage.SQLite satisfy it.
type HistoryReader interface {
	// WorkoutHistory returns every set the user performed at or after since.
	WorkoutHistory(ctx context.Context, userID int, since time.Time) ([]models.WorkoutSet, error)
	// ExerciseHistory returns every set the user performed of one exercise.
	ExerciseHistory(ctx context.Context, userID int, exerciseID string) ([]models.WorkoutSet, error)
}

// Service answers recovery and recommendation queries for a user.
type Service struct {
	reader   HistoryReader
	catalog  *catalog.Catalog
	recovery recovery.Params
	overload overload.Params
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecoveryParams sets the estimator tuning.
func WithRecoveryParams(p recovery.Params) Option {
	return func(s *Service) { s.recovery = p }
}

// WithOverloadParams sets the recommender policy.
func WithOverloadParams(p overload.Params) Option {
	return func(s *Service) { s.overload = p }
}

// NewService creates a Service.
func NewService(reader HistoryReader, cat *catalog.Catalog, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		reader:   reader,
		catalog:  cat,
		recovery: recovery.DefaultParams(),
		overload: overload.DefaultParams(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the exercise catalog the service resolves against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// ParseMuscle validates a muscle name.
func ParseMuscle(name string) (models.Muscle, error) {
	m := models.Muscle(name)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMuscle, name)
	}
	return m, nil
}

// MuscleRecovery estimates one muscle's recovery at at. A zero at means now.
func (s *Service) MuscleRecovery(ctx context.Context, userID int, muscle models.Muscle, at time.Time) (recovery.MuscleState, error) {
	if !muscle.Valid() {
		return recovery.MuscleState{}, fmt.Errorf("%w: %q", ErrUnknownMuscle, muscle)
	}
	at = s.resolveTime(at)
	history, err := s.loadWindow(ctx, userID, at)
	if err != nil {
		return recovery.MuscleState{}, err
	}
	st, err := recovery.Estimate(muscle, history, s.catalog, at, s.recovery)
	if err != nil {
		s.logEstimateError(userID, err)
		return recovery.MuscleState{}, fmt.Errorf("estimating %s: %w", muscle, err)
	}
	return st, nil
}

// RecoveryMap estimates every muscle at at, in models.AllMuscles order.
// History is loaded once and shared read-only by the per-muscle workers.
func (s *Service) RecoveryMap(ctx context.Context, userID int, at time.Time) ([]recovery.MuscleState, error) {
	at = s.resolveTime(at)
	history, err := s.loadWindow(ctx, userID, at)
	if err != nil {
		return nil, err
	}

	muscles := models.AllMuscles()
	out := make([]recovery.MuscleState, len(muscles))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range muscles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := recovery.Estimate(m, history, s.catalog, at, s.recovery)
			if err != nil {
				return fmt.Errorf("estimating %s: %w", m, err)
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logEstimateError(userID, err)
		return nil, err
	}
	return out, nil
}

// Recommend proposes the next session for exerciseID.
func (s *Service) Recommend(ctx context.Context, userID int, exerciseID string) (overload.Recommendation, error) {
	def, err := s.catalog.Lookup(exerciseID)
	if err != nil {
		return overload.Recommendation{}, err
	}
	history, err := s.reader.ExerciseHistory(ctx, userID, exerciseID)
	if err != nil {
		return overload.Recommendation{}, fmt.Errorf("loading %s history: %w", exerciseID, err)
	}
	rec := overload.Recommend(def, history, s.overload)
	s.logger.Debug("recommendation",
		"user_id", userID, "exercise", exerciseID, "branch", rec.Branch,
		"sessions", rec.BasedOnSessionCount)
	return rec, nil
}

func (s *Service) resolveTime(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

// loadWindow reads the sets that can still carry fatigue at at.
func (s *Service) loadWindow(ctx context.Context, userID int, at time.Time) ([]models.WorkoutSet, error) {
	lookback := s.recovery.Lookback
	if lookback <= 0 {
		lookback = recovery.DefaultLookback
	}
	history, err := s.reader.WorkoutHistory(ctx, userID, at.Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("loading workout history: %w", err)
	}
	return history, nil
}

func (s *Service) logEstimateError(userID int, err error) {
	if errors.Is(err, recovery.ErrInvalidFatigueValue) {
		s.logger.Error("fatigue estimate out of range", "user_id", userID, "error", err)
	}
}
