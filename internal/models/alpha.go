package models

import (
	"math"
	"time"
)

// UnratedRIR marks an Alpha Progression set logged without reps in reserve.
const UnratedRIR = -1

// AlphaSession is one workout from an Alpha Progression CSV export.
// Date is the session start; every set in it is stamped with that time.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

// AlphaExercise is one numbered exercise block within a session. Name is the
// app's display name, resolved against the catalog on import.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet is one logged set, working or warmup. WeightKg excludes body
// mass; IsBodyweightPlus marks added load on a bodyweight movement.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

// Sequence numbers the set within its session. The exercise number keeps an
// exercise that appears twice in one session from colliding.
func (s AlphaSet) Sequence(exerciseNumber int) int {
	return exerciseNumber*1000 + s.Number
}

// RPE converts reps in reserve to RPE (10 - RIR), clamped to [1,10].
// Unrated sets have no RPE.
func (s AlphaSet) RPE() *float64 {
	if s.RIR < 0 || math.IsNaN(s.RIR) {
		return nil
	}
	rpe := math.Max(1, math.Min(10, 10-s.RIR))
	return &rpe
}
