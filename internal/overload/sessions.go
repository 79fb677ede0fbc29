package overload

import (
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Session is one calendar day of sets for a single exercise.
type Session struct {
	Day  time.Time // midnight in Params.Location
	Sets []models.WorkoutSet
	Best models.WorkoutSet
}

// SessionBest summarizes a session for rationale and API output.
type SessionBest struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	Volume float64 `json:"volume"`
}

// GroupSessions returns def's sets from history grouped into sessions,
// oldest first. Sets for other exercises are ignored; history is not modified.
func GroupSessions(def models.ExerciseDefinition, history []models.WorkoutSet, p Params) []Session {
	p = p.withDefaults()

	var sets []models.WorkoutSet
	for _, s := range history {
		if s.ExerciseID == def.ID {
			sets = append(sets, s)
		}
	}
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].PerformedAt.Before(sets[j].PerformedAt)
	})

	var sessions []Session
	for _, s := range sets {
		y, m, d := s.PerformedAt.In(p.Location).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, p.Location)
		if n := len(sessions); n > 0 && sessions[n-1].Day.Equal(day) {
			sessions[n-1].Sets = append(sessions[n-1].Sets, s)
			continue
		}
		sessions = append(sessions, Session{Day: day, Sets: []models.WorkoutSet{s}})
	}

	lo, hi := repRange(def, p)
	for i := range sessions {
		sessions[i].Best = bestSet(def, sessions[i].Sets, lo, hi, p)
	}
	return sessions
}

// bestSet picks the highest-volume set with reps in [lo,hi] (ties go to the
// heavier set). If no set is in range it falls back to the heaviest set
// (ties go to more reps).
func bestSet(def models.ExerciseDefinition, sets []models.WorkoutSet, lo, hi int, p Params) models.WorkoutSet {
	var best models.WorkoutSet
	found := false
	for _, s := range sets {
		if s.Reps < lo || s.Reps > hi {
			continue
		}
		if !found || volume(def, s, p) > volume(def, best, p) ||
			(volume(def, s, p) == volume(def, best, p) && s.Weight > best.Weight) {
			best, found = s, true
		}
	}
	if found {
		return best
	}
	for i, s := range sets {
		if i == 0 || s.Weight > best.Weight || (s.Weight == best.Weight && s.Reps > best.Reps) {
			best = s
		}
	}
	return best
}

// volume is weight × reps. Bodyweight exercises add a nominal body mass so
// unloaded sets still compare by reps.
func volume(def models.ExerciseDefinition, s models.WorkoutSet, p Params) float64 {
	if def.IsBodyweight() {
		return (s.Weight + p.BodyMass) * float64(s.Reps)
	}
	return s.Volume()
}

func repRange(def models.ExerciseDefinition, p Params) (int, int) {
	target := targetReps(def, p)
	return min(p.TargetRepsMin, target), max(p.TargetRepsMax, target)
}

func targetReps(def models.ExerciseDefinition, p Params) int {
	if def.TargetReps > 0 {
		return def.TargetReps
	}
	return p.TargetReps
}

func summarize(def models.ExerciseDefinition, s Session, p Params) SessionBest {
	return SessionBest{
		Date:   s.Day.Format("2006-01-02"),
		Weight: s.Best.Weight,
		Reps:   s.Best.Reps,
		Volume: volume(def, s.Best, p),
	}
}

// EstimateOneRepMax uses the Epley formula: weight × (1 + reps/30).
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}
