package overload

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// Branch names the rule that produced a recommendation.
type Branch string

const (
	BranchNoHistory        Branch = "no_history"
	BranchInsufficientData Branch = "insufficient_data"
	BranchPlateau          Branch = "plateau"
	BranchPlateauDeload    Branch = "plateau_deload"
	BranchProgressiveTrend Branch = "progressive_trend"
	BranchRegression       Branch = "regression"
	BranchBuilding         Branch = "building"
)

// Recommendation is the proposed next session for one exercise.
type Recommendation struct {
	ExerciseID          string        `json:"exercise_id"`
	RecommendedWeight   float64       `json:"recommended_weight"`
	RecommendedReps     int           `json:"recommended_reps"`
	Rationale           string        `json:"rationale"`
	Branch              Branch        `json:"branch"`
	BasedOnSessionCount int           `json:"based_on_session_count"`
	PlateauSessions     int           `json:"plateau_sessions,omitempty"`
	Estimated1RM        float64       `json:"estimated_1rm,omitempty"`
	LowConfidence       bool          `json:"low_confidence"`
	Window              []SessionBest `json:"window,omitempty"`
}

// analysis is the branch decision plus the facts the decision used.
type analysis struct {
	branch   Branch
	sessions []Session
	window   []Session
	plateau  int
}

func (a analysis) latest() Session   { return a.sessions[len(a.sessions)-1] }
func (a analysis) previous() Session { return a.sessions[len(a.sessions)-2] }

// DeriveBranch reports which rule Recommend would apply to history.
func DeriveBranch(def models.ExerciseDefinition, history []models.WorkoutSet, p Params) Branch {
	p = p.withDefaults()
	return analyze(def, GroupSessions(def, history, p), p).branch
}

// analyze applies the rules in order: plateau, progressive trend,
// regression, building. Plateau is checked first so a run of identical
// sessions is never read as a non-decreasing trend.
func analyze(def models.ExerciseDefinition, sessions []Session, p Params) analysis {
	a := analysis{sessions: sessions}
	n := len(sessions)
	switch n {
	case 0:
		a.branch = BranchNoHistory
		return a
	case 1:
		a.branch = BranchInsufficientData
		a.window = sessions
		return a
	}

	w := min(p.TrendSessions, n)
	a.window = sessions[n-w:]
	a.plateau = plateauRun(def, sessions, p)

	latest, prev := a.latest(), a.previous()
	switch {
	case a.plateau >= w && a.plateau >= p.DeloadAfterSessions:
		a.branch = BranchPlateauDeload
	case a.plateau >= w:
		a.branch = BranchPlateau
	case progressing(a.window) && latest.Best.Reps >= targetReps(def, p):
		a.branch = BranchProgressiveTrend
	case volume(def, latest.Best, p) < volume(def, prev.Best, p):
		a.branch = BranchRegression
	default:
		a.branch = BranchBuilding
	}
	return a
}

// plateauRun counts consecutive sessions, ending with the latest, whose best
// volume is within PlateauTolerance of the latest session's. Unloaded sets
// have no volume to compare, so those sessions are flat only at equal reps.
func plateauRun(def models.ExerciseDefinition, sessions []Session, p Params) int {
	last := sessions[len(sessions)-1].Best
	ref := volume(def, last, p)
	run := 1
	for i := len(sessions) - 2; i >= 0; i-- {
		best := sessions[i].Best
		v := volume(def, best, p)
		if ref == 0 {
			if v != 0 || best.Reps != last.Reps {
				break
			}
		} else if math.Abs(v-ref) > p.PlateauTolerance*ref {
			break
		}
		run++
	}
	return run
}

// progressing reports whether best-set weight and reps never decreased
// across the window.
func progressing(window []Session) bool {
	for i := 1; i < len(window); i++ {
		cur, prev := window[i].Best, window[i-1].Best
		if cur.Weight < prev.Weight || cur.Reps < prev.Reps {
			return false
		}
	}
	return true
}

// Recommend proposes the next session for def from history. history may hold
// sets for any exercise; only def's are considered. It never fails: sparse
// history produces a conservative recommendation flagged LowConfidence.
func Recommend(def models.ExerciseDefinition, history []models.WorkoutSet, p Params) Recommendation {
	p = p.withDefaults()
	a := analyze(def, GroupSessions(def, history, p), p)

	rec := Recommendation{
		ExerciseID:          def.ID,
		Branch:              a.branch,
		BasedOnSessionCount: len(a.sessions),
	}
	for _, s := range a.window {
		rec.Window = append(rec.Window, summarize(def, s, p))
	}

	step := def.WeightIncrement
	if step <= 0 {
		step = p.WeightStep
	}
	name := displayName(def)

	switch a.branch {
	case BranchNoHistory:
		rec.LowConfidence = true
		rec.RecommendedWeight, rec.RecommendedReps = p.StartWeight, p.StartReps
		source := "conservative default"
		if def.StartingWeight != nil {
			rec.RecommendedWeight = *def.StartingWeight
			source = "catalog starting point"
		}
		if def.StartingReps > 0 {
			rec.RecommendedReps = def.StartingReps
		}
		if def.IsBodyweight() && def.StartingWeight == nil {
			rec.RecommendedWeight = 0
		}
		rec.Rationale = fmt.Sprintf("no history: no sessions logged for %s; start at %s from the %s",
			name, setString(rec.RecommendedWeight, rec.RecommendedReps), source)
		return finish(rec)
	}

	latest := a.latest().Best
	rec.Estimated1RM = EstimateOneRepMax(latest.Weight, latest.Reps)

	switch a.branch {
	case BranchInsufficientData:
		rec.LowConfidence = true
		rec.RecommendedWeight, rec.RecommendedReps = latest.Weight, latest.Reps
		rec.Rationale = fmt.Sprintf("insufficient data: only 1 session of %s logged; repeat %s before adjusting",
			name, setString(rec.RecommendedWeight, rec.RecommendedReps))

	case BranchProgressiveTrend:
		target := targetReps(def, p)
		if def.IsBodyweight() && latest.Weight == 0 {
			rec.RecommendedWeight, rec.RecommendedReps = 0, latest.Reps+1
			rec.Rationale = fmt.Sprintf("progressive trend: reps held or rose across the last %d sessions (%s); add a rep: %s",
				len(a.window), windowString(a.window), setString(rec.RecommendedWeight, rec.RecommendedReps))
			break
		}
		next := roundToStep(latest.Weight*(1+p.IncreasePercent), step)
		if next <= latest.Weight {
			next = latest.Weight + step
		}
		rec.RecommendedWeight, rec.RecommendedReps = next, target
		rec.Rationale = fmt.Sprintf("progressive trend: weight and reps held or rose across the last %d sessions (%s) and %d reps met the target of %d; add %s: %s",
			len(a.window), windowString(a.window), latest.Reps, target,
			formatWeight(next-latest.Weight), setString(rec.RecommendedWeight, rec.RecommendedReps))

	case BranchPlateau:
		rec.PlateauSessions = a.plateau
		rec.RecommendedWeight, rec.RecommendedReps = latest.Weight, latest.Reps+1
		rec.Rationale = fmt.Sprintf("plateau: best-set volume stayed within ±%s for %d sessions (%s); hold %s and add a rep: %s",
			formatPercent(p.PlateauTolerance), a.plateau, windowString(a.window),
			formatWeight(latest.Weight), setString(rec.RecommendedWeight, rec.RecommendedReps))

	case BranchPlateauDeload:
		rec.PlateauSessions = a.plateau
		rec.RecommendedWeight, rec.RecommendedReps = reduce(latest.Weight, p.DeloadPercent, step), latest.Reps
		rec.Rationale = fmt.Sprintf("plateau: best-set volume stayed within ±%s for %d sessions, reaching the deload point of %d; deload %s to %s and rebuild",
			formatPercent(p.PlateauTolerance), a.plateau, p.DeloadAfterSessions,
			formatPercent(p.DeloadPercent), setString(rec.RecommendedWeight, rec.RecommendedReps))

	case BranchRegression:
		prev := a.previous().Best
		cur, before := volume(def, latest, p), volume(def, prev, p)
		drop := 0.0
		if before > 0 {
			drop = 1 - cur/before
		}
		if drop > p.SevereRegressionPercent && latest.Weight > 0 {
			rec.RecommendedWeight, rec.RecommendedReps = reduce(latest.Weight, p.RegressionReducePercent, step), latest.Reps
			rec.Rationale = fmt.Sprintf("regression: best-set volume fell %s from %s to %s; reduce %s to %s",
				formatPercent(drop), formatWeight(before), formatWeight(cur),
				formatPercent(p.RegressionReducePercent), setString(rec.RecommendedWeight, rec.RecommendedReps))
			break
		}
		rec.RecommendedWeight, rec.RecommendedReps = latest.Weight, latest.Reps
		rec.Rationale = fmt.Sprintf("regression: best-set volume fell %s from %s to %s; hold %s until it recovers",
			formatPercent(drop), formatWeight(before), formatWeight(cur), setString(rec.RecommendedWeight, rec.RecommendedReps))

	case BranchBuilding:
		_, hi := repRange(def, p)
		reps := latest.Reps
		if reps < hi {
			reps++
		}
		rec.RecommendedWeight, rec.RecommendedReps = latest.Weight, reps
		rec.Rationale = fmt.Sprintf("building: no clear trend, plateau or regression over the last %d sessions (%s); hold %s and work toward %d reps: %s",
			len(a.window), windowString(a.window), formatWeight(latest.Weight), hi, setString(rec.RecommendedWeight, rec.RecommendedReps))
	}
	return finish(rec)
}

// finish enforces weight >= 0 and reps >= 1.
func finish(rec Recommendation) Recommendation {
	if rec.RecommendedWeight < 0 || math.IsNaN(rec.RecommendedWeight) {
		rec.RecommendedWeight = 0
	}
	if rec.RecommendedReps < 1 {
		rec.RecommendedReps = 1
	}
	return rec
}

// reduce cuts weight by fraction, rounded to step. A positive weight always
// drops by at least one step, and the result never goes below zero.
func reduce(weight, fraction, step float64) float64 {
	next := roundToStep(weight*(1-fraction), step)
	if next >= weight && weight > 0 {
		next = weight - step
	}
	return math.Max(0, next)
}

func roundToStep(w, step float64) float64 {
	if step <= 0 {
		return w
	}
	return math.Round(w/step) * step
}

func displayName(def models.ExerciseDefinition) string {
	if def.Name != "" {
		return def.Name
	}
	return def.ID
}

func windowString(window []Session) string {
	parts := make([]string, len(window))
	for i, s := range window {
		parts[i] = setString(s.Best.Weight, s.Best.Reps)
	}
	return strings.Join(parts, " -> ")
}

func setString(weight float64, reps int) string {
	return formatWeight(weight) + "x" + strconv.Itoa(reps)
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(math.Round(w*100)/100, 'f', -1, 64)
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/10, 'f', -1, 64) + "%"
}
