package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
)

// insertBatchSize keeps a single INSERT well under Postgres' 65535 parameter limit.
const insertBatchSize = 1000

const setColumns = `id, user_id, exercise_id, weight, reps, rpe, performed_at`

// InsertWorkoutSets batch-inserts sets. Sets whose ID already exists are
// skipped, so re-importing the same export is a no-op. Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, sets []models.WorkoutSet) (int64, error) {
	if err := validateSets(sets); err != nil {
		return 0, err
	}

	var total int64
	for start := 0; start < len(sets); start += insertBatchSize {
		end := min(start+insertBatchSize, len(sets))
		batch := sets[start:end]

		query := `INSERT INTO workout_sets (` + setColumns + `) VALUES `
		args := make([]any, 0, len(batch)*7)
		valueStrings := make([]string, 0, len(batch))

		for i, s := range batch {
			base := i * 7
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7,
			))
			args = append(args, s.ID, s.UserID, s.ExerciseID, s.Weight, s.Reps, s.RPE, s.PerformedAt)
		}

		query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting workout sets: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// QueryWorkoutSets retrieves sets in [start, end), newest first. A non-empty
// exerciseID restricts the result to that exercise.
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseID string) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE performed_at >= $1 AND performed_at < $2 AND user_id = $3
		   AND ($4 = '' OR exercise_id = $4)
		 ORDER BY performed_at DESC, exercise_id ASC`,
		start, end, userID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	return scanWorkoutSets(rows)
}

// WorkoutHistory returns every set at or after since, newest first.
func (db *DB) WorkoutHistory(ctx context.Context, userID int, since time.Time) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE user_id = $1 AND performed_at >= $2
		 ORDER BY performed_at DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying workout history: %w", err)
	}
	return scanWorkoutSets(rows)
}

// ExerciseHistory returns every set of one exercise, oldest first.
func (db *DB) ExerciseHistory(ctx context.Context, userID int, exerciseID string) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE user_id = $1 AND exercise_id = $2
		 ORDER BY performed_at ASC`,
		userID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying %s history: %w", exerciseID, err)
	}
	return scanWorkoutSets(rows)
}

func scanWorkoutSets(rows pgx.Rows) ([]models.WorkoutSet, error) {
	defer rows.Close()

	var result []models.WorkoutSet
	for rows.Next() {
		var s models.WorkoutSet
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.Weight, &s.Reps, &s.RPE, &s.PerformedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
