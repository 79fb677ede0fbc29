// Package ingest holds what import providers share.
package ingest

import (
	"context"

	"github.com/claude/liftlog/internal/models"
)

// SetWriter persists workout sets. storage.DB and storage.SQLite satisfy it.
type SetWriter interface {
	InsertWorkoutSets(ctx context.Context, sets []models.WorkoutSet) (int64, error)
}

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	SetsReceived     int   `json:"sets_received"`
	SetsInserted     int64 `json:"sets_inserted"`
	SetsSkipped      int64 `json:"sets_skipped"`
	WarmupsDropped   int   `json:"warmups_dropped"`

	// UnknownExercises lists export names that matched no catalog entry.
	// Their sets are not stored.
	UnknownExercises []string `json:"unknown_exercises,omitempty"`
	UnknownSets      int      `json:"unknown_sets,omitempty"`

	Message string `json:"message,omitempty"`
}
