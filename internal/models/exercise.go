package models

// Muscle identifies a trainable muscle group.
type Muscle string

const (
	Chest      Muscle = "chest"
	Back       Muscle = "back"
	LowerBack  Muscle = "lower_back"
	Shoulders  Muscle = "shoulders"
	Biceps     Muscle = "biceps"
	Triceps    Muscle = "triceps"
	Forearms   Muscle = "forearms"
	Abs        Muscle = "abs"
	Quadriceps Muscle = "quadriceps"
	Hamstrings Muscle = "hamstrings"
	Glutes     Muscle = "glutes"
	Calves     Muscle = "calves"
)

var allMuscles = []Muscle{
	Chest, Back, LowerBack, Shoulders, Biceps, Triceps,
	Forearms, Abs, Quadriceps, Hamstrings, Glutes, Calves,
}

// AllMuscles returns every muscle group in display order.
func AllMuscles() []Muscle {
	out := make([]Muscle, len(allMuscles))
	copy(out, allMuscles)
	return out
}

// Valid reports whether m is a known muscle group.
func (m Muscle) Valid() bool {
	for _, known := range allMuscles {
		if m == known {
			return true
		}
	}
	return false
}

// MuscleInvolvement is the relative contribution of one muscle to an exercise.
type MuscleInvolvement struct {
	Muscle     Muscle  `json:"muscle" yaml:"muscle"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// ExerciseDefinition is read-only reference data owned by the exercise catalog.
// Percentages across all lists need not sum to 100.
type ExerciseDefinition struct {
	ID                string              `json:"id" yaml:"id"`
	Name              string              `json:"name" yaml:"name"`
	Equipment         string              `json:"equipment" yaml:"equipment"`
	PrimaryMuscles    []MuscleInvolvement `json:"primary_muscles" yaml:"primary"`
	SecondaryMuscles  []MuscleInvolvement `json:"secondary_muscles,omitempty" yaml:"secondary"`
	StabilizerMuscles []MuscleInvolvement `json:"stabilizer_muscles,omitempty" yaml:"stabilizers"`
	Aliases           []string            `json:"aliases,omitempty" yaml:"aliases"`

	// TargetReps is the rep goal a session must reach before load goes up.
	// Zero means the recommender default.
	TargetReps int `json:"target_reps,omitempty" yaml:"target_reps"`
	// StartingWeight and StartingReps seed recommendations for a never-performed exercise.
	StartingWeight *float64 `json:"starting_weight,omitempty" yaml:"starting_weight"`
	StartingReps   int      `json:"starting_reps,omitempty" yaml:"starting_reps"`
	// WeightIncrement is the smallest realistic load change. Zero means the
	// recommender default; bodyweight exercises set Equipment "bodyweight".
	WeightIncrement float64 `json:"weight_increment,omitempty" yaml:"weight_increment"`
}

// Involvement returns the percentage the exercise lists for m, taking the
// largest value if the muscle appears in more than one list.
func (e ExerciseDefinition) Involvement(m Muscle) float64 {
	var best float64
	for _, list := range [][]MuscleInvolvement{e.PrimaryMuscles, e.SecondaryMuscles, e.StabilizerMuscles} {
		for _, mi := range list {
			if mi.Muscle == m && mi.Percentage > best {
				best = mi.Percentage
			}
		}
	}
	return best
}

// IsBodyweight reports whether load is progressed with reps rather than plates.
func (e ExerciseDefinition) IsBodyweight() bool {
	return e.Equipment == "bodyweight"
}
