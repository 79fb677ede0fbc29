package recovery

import (
	"errors"
	"fmt"
	"math"
)

// Status is a discrete recovery state derived from fatigue.
type Status string

const (
	Overworked   Status = "overworked"
	Optimal      Status = "optimal"
	Undertrained Status = "undertrained"
)

// ErrInvalidFatigueValue is matched by every *InvalidFatigueValueError.
var ErrInvalidFatigueValue = errors.New("invalid fatigue value")

// InvalidFatigueValueError means a fatigue value left [0,100]. It indicates a
// bug in the estimator, not bad user data.
type InvalidFatigueValueError struct {
	Value float64
}

func (e *InvalidFatigueValueError) Error() string {
	return fmt.Sprintf("fatigue value %v outside [0,100]", e.Value)
}

// Is makes errors.Is(err, ErrInvalidFatigueValue) work.
func (e *InvalidFatigueValueError) Is(target error) bool {
	return target == ErrInvalidFatigueValue
}

// Classify maps a fatigue percentage to a status:
//
//	fatigue >= OverworkedThreshold                      -> overworked
//	OptimalLowerBound <= fatigue < OverworkedThreshold  -> optimal
//	fatigue < OptimalLowerBound                         -> undertrained
func Classify(fatigue float64, p Params) (Status, error) {
	if math.IsNaN(fatigue) || fatigue < 0 || fatigue > 100 {
		return "", &InvalidFatigueValueError{Value: fatigue}
	}
	p = p.withDefaults()
	switch {
	case fatigue >= p.OverworkedThreshold:
		return Overworked, nil
	case fatigue >= p.OptimalLowerBound:
		return Optimal, nil
	default:
		return Undertrained, nil
	}
}
