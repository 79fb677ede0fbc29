// Package recovery estimates per-muscle fatigue from workout history and
// classifies it into a recovery status. Everything here is a pure function of
// (history, catalog, now, params): no clock reads, no caches, no I/O.
package recovery

import "time"

// Tunable defaults. Every constant of the fatigue model lives here.
const (
	// DefaultHalfLife is the time for a set's fatigue contribution to halve.
	// Muscle protein synthesis after resistance training stays elevated for
	// roughly 48-72 hours; 60h sits in the middle.
	DefaultHalfLife = 60 * time.Hour

	// DefaultOverworkedThreshold: fatigue at or above this is "overworked".
	DefaultOverworkedThreshold = 70.0
	// DefaultOptimalLowerBound: fatigue below this is "undertrained".
	DefaultOptimalLowerBound = 30.0

	// DefaultSetFatiguePercent is the fatigue percentage one maximal-intensity
	// set adds to a muscle with 100% involvement, before decay.
	DefaultSetFatiguePercent = 20.0
	// DefaultReferenceVolume is the load (weight × reps) at which a set reaches
	// 1-1/e (~63%) of its maximum volume factor.
	DefaultReferenceVolume = 500.0
	// DefaultMinSetLoad is a flat load added to every set so an unloaded set
	// still registers. It is per set, not per rep, so ordering by volume holds.
	DefaultMinSetLoad = 10.0
	// DefaultBodyMass is added to the logged weight of bodyweight exercises.
	DefaultBodyMass = 75.0
	// DefaultNoRPEEffort is the effort assumed for sets logged without RPE.
	DefaultNoRPEEffort = 0.75

	// DefaultLookback bounds how much history the service layer loads. After
	// 14 days a set retains under 2.5% of its contribution.
	DefaultLookback = 14 * 24 * time.Hour

	// maxProjectionDays caps the days-until-optimal search.
	maxProjectionDays = 3650
)

// Params holds the fatigue model's tunables.
type Params struct {
	HalfLife            time.Duration
	OverworkedThreshold float64
	OptimalLowerBound   float64
	SetFatiguePercent   float64
	ReferenceVolume     float64
	MinSetLoad          float64
	BodyMass            float64
	NoRPEEffort         float64
	Lookback            time.Duration
}

// DefaultParams returns the default fatigue model.
func DefaultParams() Params {
	return Params{
		HalfLife:            DefaultHalfLife,
		OverworkedThreshold: DefaultOverworkedThreshold,
		OptimalLowerBound:   DefaultOptimalLowerBound,
		SetFatiguePercent:   DefaultSetFatiguePercent,
		ReferenceVolume:     DefaultReferenceVolume,
		MinSetLoad:          DefaultMinSetLoad,
		BodyMass:            DefaultBodyMass,
		NoRPEEffort:         DefaultNoRPEEffort,
		Lookback:            DefaultLookback,
	}
}

// withDefaults fills zero fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.HalfLife <= 0 {
		p.HalfLife = d.HalfLife
	}
	if p.OverworkedThreshold == 0 {
		p.OverworkedThreshold = d.OverworkedThreshold
	}
	if p.OptimalLowerBound == 0 {
		p.OptimalLowerBound = d.OptimalLowerBound
	}
	if p.SetFatiguePercent <= 0 {
		p.SetFatiguePercent = d.SetFatiguePercent
	}
	if p.ReferenceVolume <= 0 {
		p.ReferenceVolume = d.ReferenceVolume
	}
	if p.MinSetLoad <= 0 {
		p.MinSetLoad = d.MinSetLoad
	}
	if p.BodyMass <= 0 {
		p.BodyMass = d.BodyMass
	}
	if p.NoRPEEffort <= 0 || p.NoRPEEffort > 1 {
		p.NoRPEEffort = d.NoRPEEffort
	}
	if p.Lookback <= 0 {
		p.Lookback = d.Lookback
	}
	return p
}
