package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claude/liftlog/internal/models"
)

// Store is the persistence contract shared by the Postgres and SQLite backends.
type Store interface {
	InsertWorkoutSets(ctx context.Context, sets []models.WorkoutSet) (int64, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseID string) ([]models.WorkoutSet, error)
	WorkoutHistory(ctx context.Context, userID int, since time.Time) ([]models.WorkoutSet, error)
	ExerciseHistory(ctx context.Context, userID int, exerciseID string) ([]models.WorkoutSet, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLite)(nil)
)

// DB wraps a pgxpool.Pool and provides repository methods.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// validateSets runs models.WorkoutSet.Validate over a batch before any write.
func validateSets(sets []models.WorkoutSet) error {
	for i, s := range sets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("set %d: %w", i, err)
		}
	}
	return nil
}
