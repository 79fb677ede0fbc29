package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/training"
)

// DataSource abstracts where MCP tools get their answers. Local (in-process
// service and store) and HTTPClient (remote via REST API) satisfy it.
// Exercise arguments may be catalog ids or names.
type DataSource interface {
	RecoveryMap(ctx context.Context, userID int, at time.Time) ([]recovery.MuscleState, error)
	MuscleRecovery(ctx context.Context, userID int, muscle string, at time.Time) (recovery.MuscleState, error)
	Recommend(ctx context.Context, userID int, exercise string) (overload.Recommendation, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exercise string) ([]models.WorkoutSet, error)
	Exercises(ctx context.Context, muscle string) ([]models.ExerciseDefinition, error)
}

var (
	_ DataSource = (*Local)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

// Local answers from the in-process training service and store.
type Local struct {
	svc *training.Service
	db  storage.Store
}

// NewLocal creates a Local data source.
func NewLocal(svc *training.Service, db storage.Store) *Local {
	return &Local{svc: svc, db: db}
}

func (l *Local) RecoveryMap(ctx context.Context, userID int, at time.Time) ([]recovery.MuscleState, error) {
	return l.svc.RecoveryMap(ctx, userID, at)
}

func (l *Local) MuscleRecovery(ctx context.Context, userID int, muscle string, at time.Time) (recovery.MuscleState, error) {
	m, err := training.ParseMuscle(muscle)
	if err != nil {
		return recovery.MuscleState{}, err
	}
	return l.svc.MuscleRecovery(ctx, userID, m, at)
}

func (l *Local) Recommend(ctx context.Context, userID int, exercise string) (overload.Recommendation, error) {
	id, err := l.resolve(exercise)
	if err != nil {
		return overload.Recommendation{}, err
	}
	return l.svc.Recommend(ctx, userID, id)
}

func (l *Local) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exercise string) ([]models.WorkoutSet, error) {
	if exercise != "" {
		id, err := l.resolve(exercise)
		if err != nil {
			return nil, err
		}
		exercise = id
	}
	return l.db.QueryWorkoutSets(ctx, start, end, userID, exercise)
}

func (l *Local) Exercises(_ context.Context, muscle string) ([]models.ExerciseDefinition, error) {
	if muscle == "" {
		return l.svc.Catalog().Exercises(), nil
	}
	m, err := training.ParseMuscle(muscle)
	if err != nil {
		return nil, err
	}
	return l.svc.Catalog().ExercisesFor(m), nil
}

func (l *Local) resolve(exercise string) (string, error) {
	id, ok := l.svc.Catalog().Resolve(exercise)
	if !ok {
		return "", &catalog.UnknownExerciseError{ExerciseID: exercise}
	}
	return id, nil
}
