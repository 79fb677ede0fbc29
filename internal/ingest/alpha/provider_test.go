package alpha

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
)

// memWriter stores sets by ID, like the ON CONFLICT DO NOTHING insert.
type memWriter struct {
	byID map[string]models.WorkoutSet
}

func (m *memWriter) InsertWorkoutSets(_ context.Context, sets []models.WorkoutSet) (int64, error) {
	if m.byID == nil {
		m.byID = map[string]models.WorkoutSet{}
	}
	var n int64
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return 0, err
		}
		if _, ok := m.byID[s.ID.String()]; ok {
			continue
		}
		m.byID[s.ID.String()] = s
		n++
	}
	return n, nil
}

func newTestProvider(w *memWriter) *Provider {
	return NewProvider(w, catalog.MustDefault(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestIngestStoresWorkingSets verifies warmups are dropped, names resolve to
// catalog ids and RIR becomes RPE.
func TestIngestStoresWorkingSets(t *testing.T) {
	w := &memWriter{}
	res, err := newTestProvider(w).Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatal(err)
	}

	// 3+2+2+2+1 legs, 2 push.
	if res.SetsReceived != 12 || res.SetsInserted != 12 {
		t.Errorf("received %d inserted %d, want 12/12", res.SetsReceived, res.SetsInserted)
	}
	if res.WarmupsDropped != 6 {
		t.Errorf("warmups dropped = %d, want 6", res.WarmupsDropped)
	}
	if len(res.UnknownExercises) != 0 {
		t.Errorf("unknown = %v", res.UnknownExercises)
	}

	counts := map[string]int{}
	for _, s := range w.byID {
		counts[s.ExerciseID]++
	}
	want := map[string]int{
		"hack_squat":          3,
		"sumo_squat":          2,
		"back_extension":      2,
		"standing_calf_raise": 2,
		"hanging_leg_raise":   1,
		"bench_press":         2,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("sets per exercise (-want +got):\n%s", diff)
	}
}

// TestIngestIsIdempotent verifies a second import of the same export inserts nothing.
func TestIngestIsIdempotent(t *testing.T) {
	w := &memWriter{}
	p := newTestProvider(w)
	if _, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatal(err)
	}
	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.SetsInserted != 0 || res.SetsSkipped != int64(res.SetsReceived) {
		t.Errorf("second import inserted %d skipped %d", res.SetsInserted, res.SetsSkipped)
	}
}

// TestIngestReportsUnknownExercises verifies unmatched names are listed and not stored.
func TestIngestReportsUnknownExercises(t *testing.T) {
	csv := `"Odd";"2026-02-20 6:00 h";"0:30 hr"
"1. Zercher Carry · Barbell · 8 reps"
#;KG;REPS;RIR
1;60;8;2
"2. Bench Press · Barbell · 8 reps"
#;KG;REPS;RIR
1;80;8;2
`
	w := &memWriter{}
	res, err := newTestProvider(w).Ingest(context.Background(), strings.NewReader(csv), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Zercher Carry"}, res.UnknownExercises); diff != "" {
		t.Errorf("unknown (-want +got):\n%s", diff)
	}
	if res.UnknownSets != 1 || res.SetsInserted != 1 || len(w.byID) != 1 {
		t.Errorf("unknown sets %d inserted %d stored %d", res.UnknownSets, res.SetsInserted, len(w.byID))
	}
}

// TestSetRPE verifies the RIR conversion and its bounds.
func TestSetRPE(t *testing.T) {
	tests := []struct {
		rir  float64
		want *float64
	}{
		{0, ptr(10)},
		{1, ptr(9)},
		{0.5, ptr(9.5)},
		{12, ptr(1)},
		{models.UnratedRIR, nil},
	}
	for _, tt := range tests {
		got := models.AlphaSet{RIR: tt.rir}.RPE()
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("RPE(RIR %v) (-want +got):\n%s", tt.rir, diff)
		}
	}
}

func ptr(v float64) *float64 { return &v }
