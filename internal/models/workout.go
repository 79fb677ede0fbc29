package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// WorkoutSet is a single completed set. Sets are immutable once recorded.
type WorkoutSet struct {
	ID          uuid.UUID `json:"id"`
	UserID      int       `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	RPE         *float64  `json:"rpe,omitempty"`
	PerformedAt time.Time `json:"performed_at"`
}

// Volume returns weight × reps.
func (s WorkoutSet) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// Validate checks the ranges every stored set must satisfy.
func (s WorkoutSet) Validate() error {
	if s.ExerciseID == "" {
		return fmt.Errorf("exercise_id is required")
	}
	if s.Weight < 0 || math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) {
		return fmt.Errorf("weight must be a finite value >= 0, got %v", s.Weight)
	}
	if s.Reps < 1 {
		return fmt.Errorf("reps must be positive, got %d", s.Reps)
	}
	if s.RPE != nil && (*s.RPE < 1 || *s.RPE > 10 || math.IsNaN(*s.RPE)) {
		return fmt.Errorf("rpe must be between 1 and 10, got %v", *s.RPE)
	}
	if s.PerformedAt.IsZero() {
		return fmt.Errorf("performed_at is required")
	}
	return nil
}

// setNamespace scopes name-based set IDs so they never collide with IDs from other sources.
var setNamespace = uuid.MustParse("5b0d6c1e-2f55-4c8e-9a3a-6f1b8f3c2d10")

// SetID derives a stable ID for a set, so importing the same export twice
// produces the same rows and the second insert is a no-op.
func SetID(userID int, exerciseID string, performedAt time.Time, setNumber int) uuid.UUID {
	key := fmt.Sprintf("%d|%s|%s|%d", userID, exerciseID, performedAt.UTC().Format(time.RFC3339Nano), setNumber)
	return uuid.NewSHA1(setNamespace, []byte(key))
}
