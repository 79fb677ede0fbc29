package training

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeReader struct {
	sets  []models.WorkoutSet
	err   error
	since time.Time
}

func (f *fakeReader) WorkoutHistory(_ context.Context, userID int, since time.Time) ([]models.WorkoutSet, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	var out []models.WorkoutSet
	for _, s := range f.sets {
		if s.UserID == userID && !s.PerformedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeReader) ExerciseHistory(_ context.Context, userID int, exerciseID string) ([]models.WorkoutSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.WorkoutSet
	for _, s := range f.sets {
		if s.UserID == userID && s.ExerciseID == exerciseID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestService(r HistoryReader) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(r, catalog.MustDefault(), logger, WithClock(func() time.Time { return testNow }))
}

func rpe(v float64) *float64 { return &v }

func benchSession(userID int, at time.Time) []models.WorkoutSet {
	var out []models.WorkoutSet
	for i := 0; i < 5; i++ {
		out = append(out, models.WorkoutSet{
			UserID: userID, ExerciseID: "bench_press", Weight: 100, Reps: 8, RPE: rpe(10),
			PerformedAt: at.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

// TestRecoveryMapMatchesEstimator verifies the concurrent heat map equals the
// sequential estimator over the same snapshot.
func TestRecoveryMapMatchesEstimator(t *testing.T) {
	sets := append(benchSession(1, testNow.Add(-2*time.Hour)), benchSession(1, testNow.Add(-72*time.Hour))...)
	sets = append(sets, models.WorkoutSet{
		UserID: 1, ExerciseID: "back_squat", Weight: 140, Reps: 5, PerformedAt: testNow.Add(-26 * time.Hour),
	})
	svc := newTestService(&fakeReader{sets: sets})

	got, err := svc.RecoveryMap(context.Background(), 1, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	want, err := recovery.EstimateAll(sets, catalog.MustDefault(), testNow, recovery.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RecoveryMap mismatch (-want +got):\n%s", diff)
	}
}

// TestRecoveryMapUsesLookback verifies history is requested from at minus the
// lookback window.
func TestRecoveryMapUsesLookback(t *testing.T) {
	r := &fakeReader{}
	svc := newTestService(r)
	at := testNow.Add(-24 * time.Hour)
	if _, err := svc.RecoveryMap(context.Background(), 1, at); err != nil {
		t.Fatal(err)
	}
	if want := at.Add(-recovery.DefaultLookback); !r.since.Equal(want) {
		t.Errorf("since = %v, want %v", r.since, want)
	}
}

// TestMuscleRecoveryIsolatesUsers verifies one user's sets never affect another.
func TestMuscleRecoveryIsolatesUsers(t *testing.T) {
	svc := newTestService(&fakeReader{sets: benchSession(2, testNow.Add(-time.Hour))})
	st, err := svc.MuscleRecovery(context.Background(), 1, models.Chest, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if st.FatiguePercent != 0 || st.Status != recovery.Undertrained {
		t.Errorf("user 1 chest = %+v, want untouched", st)
	}
}

// TestMuscleRecoveryUnknownMuscle verifies invalid muscles are rejected.
func TestMuscleRecoveryUnknownMuscle(t *testing.T) {
	svc := newTestService(&fakeReader{})
	_, err := svc.MuscleRecovery(context.Background(), 1, models.Muscle("wings"), time.Time{})
	if !errors.Is(err, ErrUnknownMuscle) {
		t.Errorf("err = %v, want ErrUnknownMuscle", err)
	}
	if _, err := ParseMuscle("quadriceps"); err != nil {
		t.Errorf("ParseMuscle(quadriceps): %v", err)
	}
}

// TestRecoveryMapUnknownExercise verifies an unrecognised stored exercise fails
// the whole map with the typed catalog error.
func TestRecoveryMapUnknownExercise(t *testing.T) {
	sets := []models.WorkoutSet{{UserID: 1, ExerciseID: "zercher_squat", Weight: 60, Reps: 5, PerformedAt: testNow.Add(-time.Hour)}}
	svc := newTestService(&fakeReader{sets: sets})
	_, err := svc.RecoveryMap(context.Background(), 1, time.Time{})
	var ue *catalog.UnknownExerciseError
	if !errors.As(err, &ue) || ue.ExerciseID != "zercher_squat" {
		t.Errorf("err = %v, want UnknownExerciseError for zercher_squat", err)
	}
}

// TestServiceReaderError verifies storage failures are wrapped and returned.
func TestServiceReaderError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newTestService(&fakeReader{err: boom})
	if _, err := svc.RecoveryMap(context.Background(), 1, time.Time{}); !errors.Is(err, boom) {
		t.Errorf("RecoveryMap err = %v", err)
	}
	if _, err := svc.Recommend(context.Background(), 1, "bench_press"); !errors.Is(err, boom) {
		t.Errorf("Recommend err = %v", err)
	}
}

// TestRecommend verifies the service feeds the exercise's history to the
// recommender and rejects unknown exercises before touching storage.
func TestRecommend(t *testing.T) {
	var sets []models.WorkoutSet
	for i, w := range []float64{100, 102.5, 105} {
		reps := 8
		if i == 2 {
			reps = 9
		}
		sets = append(sets, models.WorkoutSet{
			UserID: 1, ExerciseID: "bench_press", Weight: w, Reps: reps,
			PerformedAt: testNow.AddDate(0, 0, -6+2*i),
		})
	}
	svc := newTestService(&fakeReader{sets: sets})

	rec, err := svc.Recommend(context.Background(), 1, "bench_press")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Branch != overload.BranchProgressiveTrend || rec.RecommendedWeight != 107.5 {
		t.Errorf("rec = %+v", rec)
	}

	_, err = svc.Recommend(context.Background(), 1, "zercher_squat")
	if !errors.Is(err, catalog.ErrUnknownExercise) {
		t.Errorf("err = %v, want ErrUnknownExercise", err)
	}
}
