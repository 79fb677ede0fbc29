package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
)

// Resolver maps an export's free-text exercise name to a catalog id.
// *catalog.Catalog satisfies it.
type Resolver interface {
	Resolve(name string) (string, bool)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	db       ingest.SetWriter
	resolver Resolver
	log      *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(db ingest.SetWriter, resolver Resolver, log *slog.Logger) *Provider {
	return &Provider{db: db, resolver: resolver, log: log}
}

// Ingest parses a CSV export and stores its working sets for userID.
// Set IDs are derived from the set's identity, so re-importing an export
// inserts nothing new.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	sets, result := p.Convert(sessions, userID)

	if len(sets) > 0 {
		inserted, err := p.db.InsertWorkoutSets(ctx, sets)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsInserted = inserted
		result.SetsSkipped = int64(len(sets)) - inserted
	}

	p.log.Info("alpha import",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets", result.SetsReceived,
		"inserted", result.SetsInserted,
		"unknown_exercises", len(result.UnknownExercises))
	return result, nil
}

// Convert maps parsed sessions to workout sets without storing them.
// Warmups are dropped and exercises the resolver does not know are reported
// in the result.
func (p *Provider) Convert(sessions []models.AlphaSession, userID int) ([]models.WorkoutSet, *ingest.Result) {
	result := &ingest.Result{SessionsReceived: len(sessions)}
	unknown := map[string]bool{}
	var sets []models.WorkoutSet

	for _, s := range sessions {
		for _, ex := range s.Exercises {
			id, ok := p.resolver.Resolve(ex.Name)
			for _, set := range ex.Sets {
				if set.IsWarmup {
					result.WarmupsDropped++
					continue
				}
				if !ok {
					unknown[ex.Name] = true
					result.UnknownSets++
					continue
				}
				if set.Reps < 1 {
					continue
				}
				sets = append(sets, models.WorkoutSet{
					ID:          models.SetID(userID, id, s.Date, set.Sequence(ex.Number)),
					UserID:      userID,
					ExerciseID:  id,
					Weight:      set.WeightKg,
					Reps:        set.Reps,
					RPE:         set.RPE(),
					PerformedAt: s.Date,
				})
			}
		}
	}

	result.SetsReceived = len(sets)
	for name := range unknown {
		result.UnknownExercises = append(result.UnknownExercises, name)
	}
	sort.Strings(result.UnknownExercises)
	if len(result.UnknownExercises) > 0 {
		p.log.Warn("alpha import: unknown exercises", "names", result.UnknownExercises)
	}
	return sets, result
}
