package recovery

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Lookuper resolves exercise ids to definitions. *catalog.Catalog satisfies it.
type Lookuper interface {
	Lookup(id string) (models.ExerciseDefinition, error)
}

// MuscleState is the derived recovery picture for one muscle. It is never
// stored; it is recomputed from history on demand.
type MuscleState struct {
	Muscle           models.Muscle `json:"muscle"`
	FatiguePercent   float64       `json:"current_fatigue_percentage"`
	Status           Status        `json:"recovery_status"`
	LastWorkout      *time.Time    `json:"last_workout_date,omitempty"`
	DaysUntilOptimal int           `json:"days_until_optimal"`
	WorkoutIntensity float64       `json:"workout_intensity"`
	ContributingSets int           `json:"contributing_sets"`
}

// IntensityFactor scores one set in [0,1). It rises strictly with volume
// (weight × reps) and with RPE; without RPE a fixed effort is assumed so the
// score depends on volume alone. Params.MinSetLoad is added once per set.
func IntensityFactor(weight float64, reps int, rpe *float64, p Params) float64 {
	p = p.withDefaults()
	if reps <= 0 {
		return 0
	}
	if weight < 0 {
		weight = 0
	}
	load := weight*float64(reps) + p.MinSetLoad
	volumeFactor := 1 - math.Exp(-load/p.ReferenceVolume)

	effort := p.NoRPEEffort
	if rpe != nil {
		effort = clamp(*rpe, 1, 10) / 10
	}
	return volumeFactor * effort
}

// Decay returns the fraction of a set's fatigue remaining after elapsed:
// 2^(-elapsed/HalfLife). Non-positive elapsed returns 1.
func Decay(elapsed time.Duration, p Params) float64 {
	p = p.withDefaults()
	if elapsed <= 0 {
		return 1
	}
	return math.Exp2(-float64(elapsed) / float64(p.HalfLife))
}

// Estimate computes the recovery state of muscle at now.
//
// Every set performed at or before now is looked up in the catalog; an unknown
// exercise id fails the whole estimate with *catalog.UnknownExerciseError.
// Sets after now are ignored. history is not modified.
func Estimate(muscle models.Muscle, history []models.WorkoutSet, cat Lookuper, now time.Time, p Params) (MuscleState, error) {
	p = p.withDefaults()
	return estimateSorted(muscle, sortedNewestFirst(history), cat, now, p)
}

// EstimateAll computes the state of every muscle, in models.AllMuscles order.
func EstimateAll(history []models.WorkoutSet, cat Lookuper, now time.Time, p Params) ([]MuscleState, error) {
	p = p.withDefaults()
	sets := sortedNewestFirst(history)
	muscles := models.AllMuscles()
	out := make([]MuscleState, 0, len(muscles))
	for _, m := range muscles {
		st, err := estimateSorted(m, sets, cat, now, p)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func estimateSorted(muscle models.Muscle, sets []models.WorkoutSet, cat Lookuper, now time.Time, p Params) (MuscleState, error) {
	state := MuscleState{Muscle: muscle}

	var raw float64
	for _, s := range sets {
		if s.PerformedAt.After(now) {
			continue
		}
		def, err := cat.Lookup(s.ExerciseID)
		if err != nil {
			return MuscleState{}, err
		}
		involvement := def.Involvement(muscle)
		if involvement <= 0 {
			continue
		}
		intensity := IntensityFactor(effectiveWeight(def, s.Weight, p), s.Reps, s.RPE, p)
		if state.LastWorkout == nil {
			t := s.PerformedAt
			state.LastWorkout = &t
			state.WorkoutIntensity = intensity
		}
		raw += involvement / 100 * intensity * Decay(now.Sub(s.PerformedAt), p)
		state.ContributingSets++
	}

	rawPercent := raw * p.SetFatiguePercent
	state.FatiguePercent = clamp(rawPercent, 0, 100)

	status, err := Classify(state.FatiguePercent, p)
	if err != nil {
		return MuscleState{}, fmt.Errorf("classifying %s: %w", muscle, err)
	}
	state.Status = status
	state.DaysUntilOptimal = daysUntilBelow(rawPercent, p)
	return state, nil
}

// effectiveWeight credits body mass to bodyweight exercises, matching how
// the overload recommender compares their volume.
func effectiveWeight(def models.ExerciseDefinition, weight float64, p Params) float64 {
	if def.IsBodyweight() {
		return weight + p.BodyMass
	}
	return weight
}

// daysUntilBelow returns the smallest whole number of days after which the
// projected fatigue drops strictly below the overworked threshold. All
// contributions share one half-life, so projecting is a single multiplication.
func daysUntilBelow(rawPercent float64, p Params) int {
	for d := 0; d < maxProjectionDays; d++ {
		projected := clamp(rawPercent*Decay(time.Duration(d)*24*time.Hour, p), 0, 100)
		if projected < p.OverworkedThreshold {
			return d
		}
	}
	return maxProjectionDays
}

// sortedNewestFirst returns a copy of history ordered by time descending.
// Ties are broken on content so any permutation of the same sets sums in the
// same order and yields bit-identical results.
func sortedNewestFirst(history []models.WorkoutSet) []models.WorkoutSet {
	sets := make([]models.WorkoutSet, len(history))
	copy(sets, history)
	sort.SliceStable(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if !a.PerformedAt.Equal(b.PerformedAt) {
			return a.PerformedAt.After(b.PerformedAt)
		}
		if a.ExerciseID != b.ExerciseID {
			return a.ExerciseID < b.ExerciseID
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Reps != b.Reps {
			return a.Reps > b.Reps
		}
		if ra, rb := rpeOrZero(a.RPE), rpeOrZero(b.RPE); ra != rb {
			return ra > rb
		}
		return a.ID.String() < b.ID.String()
	})
	return sets
}

func rpeOrZero(rpe *float64) float64 {
	if rpe == nil {
		return 0
	}
	return *rpe
}

// clamp bounds v to [lo,hi]. NaN passes through so Classify can reject it.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
