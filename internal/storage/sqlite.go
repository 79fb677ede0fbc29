package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/liftlog/internal/models"
)

// SQLite is a single-file Store for deployments without Postgres. Times are
// stored as Unix nanoseconds so ordering and range scans stay exact.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_seen    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
INSERT OR IGNORE INTO users (id, login, display_name) VALUES (1, 'local', 'Local Dev User');

CREATE TABLE IF NOT EXISTS workout_sets (
	id           TEXT PRIMARY KEY,
	user_id      INTEGER NOT NULL REFERENCES users(id),
	exercise_id  TEXT NOT NULL,
	weight       REAL NOT NULL CHECK (weight >= 0),
	reps         INTEGER NOT NULL CHECK (reps >= 1),
	rpe          REAL CHECK (rpe >= 1 AND rpe <= 10),
	performed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workout_sets_user_time ON workout_sets (user_id, performed_at);
CREATE INDEX IF NOT EXISTS idx_workout_sets_user_exercise ON workout_sets (user_id, exercise_id, performed_at);
`

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection: an in-memory database is per-connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertWorkoutSets inserts sets in one transaction, skipping existing IDs.
// Returns count inserted.
func (s *SQLite) InsertWorkoutSets(ctx context.Context, sets []models.WorkoutSet) (int64, error) {
	if err := validateSets(sets); err != nil {
		return 0, err
	}
	if len(sets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO workout_sets (`+setColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, ws := range sets {
		res, err := stmt.ExecContext(ctx, ws.ID.String(), ws.UserID, ws.ExerciseID,
			ws.Weight, ws.Reps, ws.RPE, sqliteTime(ws.PerformedAt))
		if err != nil {
			return 0, fmt.Errorf("inserting workout set: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting workout set: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing workout sets: %w", err)
	}
	return total, nil
}

// QueryWorkoutSets retrieves sets in [start, end), newest first.
func (s *SQLite) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseID string) ([]models.WorkoutSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE performed_at >= ? AND performed_at < ? AND user_id = ?
		   AND (? = '' OR exercise_id = ?)
		 ORDER BY performed_at DESC, exercise_id ASC`,
		sqliteTime(start), sqliteTime(end), userID, exerciseID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	return scanSQLiteSets(rows)
}

// WorkoutHistory returns every set at or after since, newest first.
func (s *SQLite) WorkoutHistory(ctx context.Context, userID int, since time.Time) ([]models.WorkoutSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE user_id = ? AND performed_at >= ?
		 ORDER BY performed_at DESC`,
		userID, sqliteTime(since))
	if err != nil {
		return nil, fmt.Errorf("querying workout history: %w", err)
	}
	return scanSQLiteSets(rows)
}

// ExerciseHistory returns every set of one exercise, oldest first.
func (s *SQLite) ExerciseHistory(ctx context.Context, userID int, exerciseID string) ([]models.WorkoutSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE user_id = ? AND exercise_id = ?
		 ORDER BY performed_at ASC`,
		userID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying %s history: %w", exerciseID, err)
	}
	return scanSQLiteSets(rows)
}

// GetOrCreateUser finds or creates a user by login. Returns the user ID.
func (s *SQLite) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	login, err := normalizeLogin(login)
	if err != nil {
		return 0, err
	}
	var id int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name)
		VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = CURRENT_TIMESTAMP,
			    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id
	`, login, strings.TrimSpace(displayName)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// Instants outside the int64 nanosecond range (the zero time, open-ended
// range bounds) clamp to its ends.
var (
	minSQLiteTime = time.Unix(0, math.MinInt64)
	maxSQLiteTime = time.Unix(0, math.MaxInt64)
)

func sqliteTime(t time.Time) int64 {
	switch {
	case t.Before(minSQLiteTime):
		return math.MinInt64
	case t.After(maxSQLiteTime):
		return math.MaxInt64
	}
	return t.UnixNano()
}

func scanSQLiteSets(rows *sql.Rows) ([]models.WorkoutSet, error) {
	defer rows.Close()

	var result []models.WorkoutSet
	for rows.Next() {
		var (
			ws          models.WorkoutSet
			id          string
			rpe         sql.NullFloat64
			performedAt int64
		)
		if err := rows.Scan(&id, &ws.UserID, &ws.ExerciseID, &ws.Weight, &ws.Reps, &rpe, &performedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing set id %q: %w", id, err)
		}
		ws.ID = parsed
		if rpe.Valid {
			v := rpe.Float64
			ws.RPE = &v
		}
		ws.PerformedAt = time.Unix(0, performedAt).UTC()
		result = append(result, ws)
	}
	return result, rows.Err()
}
