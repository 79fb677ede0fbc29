// Package overload proposes next-session load and reps for an exercise from
// that exercise's own history, using trend, plateau and regression detection.
// Like package recovery it is pure: the same history always yields the same
// recommendation, and every recommendation names the rule that produced it.
package overload

import "time"

// Policy defaults.
const (
	// Best-set rep window. An exercise's own target reps widen it if needed.
	DefaultTargetRepsMin = 6
	DefaultTargetRepsMax = 12
	// DefaultTargetReps applies when the catalog gives no target.
	DefaultTargetReps = 8

	// DefaultTrendSessions is N, the number of recent sessions compared.
	DefaultTrendSessions = 3
	// DefaultPlateauTolerance: sessions within ±2% best volume count as flat.
	DefaultPlateauTolerance = 0.02
	// DefaultDeloadAfterSessions: a plateau this long triggers a deload.
	DefaultDeloadAfterSessions = 5

	DefaultIncreasePercent         = 0.025
	DefaultDeloadPercent           = 0.10
	DefaultSevereRegressionPercent = 0.10
	DefaultRegressionReducePercent = 0.05

	// DefaultWeightStep is the smallest plate jump when the catalog gives none.
	DefaultWeightStep = 2.5
	// DefaultBodyMass is the nominal body mass credited to bodyweight
	// exercises when comparing volume across sessions.
	DefaultBodyMass = 75.0

	// Conservative start for exercises with no history and no catalog start.
	DefaultStartWeight = 20.0
	DefaultStartReps   = 8
)

// Params holds the recommender's policy.
type Params struct {
	TargetRepsMin           int
	TargetRepsMax           int
	TargetReps              int
	TrendSessions           int
	PlateauTolerance        float64
	DeloadAfterSessions     int
	IncreasePercent         float64
	DeloadPercent           float64
	SevereRegressionPercent float64
	RegressionReducePercent float64
	WeightStep              float64
	BodyMass                float64
	StartWeight             float64
	StartReps               int
	// Location defines calendar days for session grouping. Nil means UTC.
	Location *time.Location
}

// DefaultParams returns the default policy.
func DefaultParams() Params {
	return Params{
		TargetRepsMin:           DefaultTargetRepsMin,
		TargetRepsMax:           DefaultTargetRepsMax,
		TargetReps:              DefaultTargetReps,
		TrendSessions:           DefaultTrendSessions,
		PlateauTolerance:        DefaultPlateauTolerance,
		DeloadAfterSessions:     DefaultDeloadAfterSessions,
		IncreasePercent:         DefaultIncreasePercent,
		DeloadPercent:           DefaultDeloadPercent,
		SevereRegressionPercent: DefaultSevereRegressionPercent,
		RegressionReducePercent: DefaultRegressionReducePercent,
		WeightStep:              DefaultWeightStep,
		BodyMass:                DefaultBodyMass,
		StartWeight:             DefaultStartWeight,
		StartReps:               DefaultStartReps,
		Location:                time.UTC,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.TargetRepsMin <= 0 {
		p.TargetRepsMin = d.TargetRepsMin
	}
	if p.TargetRepsMax < p.TargetRepsMin {
		p.TargetRepsMax = max(d.TargetRepsMax, p.TargetRepsMin)
	}
	if p.TargetReps <= 0 {
		p.TargetReps = d.TargetReps
	}
	if p.TrendSessions < 2 {
		p.TrendSessions = d.TrendSessions
	}
	if p.PlateauTolerance <= 0 {
		p.PlateauTolerance = d.PlateauTolerance
	}
	if p.DeloadAfterSessions < p.TrendSessions {
		p.DeloadAfterSessions = max(d.DeloadAfterSessions, p.TrendSessions)
	}
	if p.IncreasePercent <= 0 {
		p.IncreasePercent = d.IncreasePercent
	}
	if p.DeloadPercent <= 0 || p.DeloadPercent >= 1 {
		p.DeloadPercent = d.DeloadPercent
	}
	if p.SevereRegressionPercent <= 0 {
		p.SevereRegressionPercent = d.SevereRegressionPercent
	}
	if p.RegressionReducePercent <= 0 || p.RegressionReducePercent >= 1 {
		p.RegressionReducePercent = d.RegressionReducePercent
	}
	if p.WeightStep <= 0 {
		p.WeightStep = d.WeightStep
	}
	if p.BodyMass <= 0 {
		p.BodyMass = d.BodyMass
	}
	if p.StartWeight < 0 {
		p.StartWeight = d.StartWeight
	}
	if p.StartReps <= 0 {
		p.StartReps = d.StartReps
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	return p
}
