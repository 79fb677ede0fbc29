package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/training"
)

const testAPIKey = "secret"

var day0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "liftlog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := training.NewService(db, cat, log,
		training.WithClock(func() time.Time { return day0.AddDate(0, 0, 5) }))
	return New(db, svc, alpha.NewProvider(db, cat, log), testAPIKey, NewMetrics(), log)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if method == http.MethodPost {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func postSets(t *testing.T, s *Server, sets []setInput) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(sets); err != nil {
		t.Fatal(err)
	}
	return do(t, s, http.MethodPost, "/api/v1/sets", buf.String())
}

// benchProgression is three bench sessions trending upward.
func benchProgression() []setInput {
	return []setInput{
		{Exercise: "bench_press", Weight: 100, Reps: 8, PerformedAt: day0},
		{Exercise: "Bench Press", Weight: 102.5, Reps: 8, PerformedAt: day0.AddDate(0, 0, 2)},
		{Exercise: "bench_press", Weight: 105, Reps: 9, PerformedAt: day0.AddDate(0, 0, 4)},
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
}

// TestInsertSetsRequiresAPIKey verifies writes need a valid X-API-Key.
func TestInsertSetsRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		key  string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sets", strings.NewReader("[]"))
		if tc.key != "" {
			req.Header.Set("X-API-Key", tc.key)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("key %q: status = %d, want %d", tc.key, rec.Code, tc.want)
		}
	}
}

// TestInsertSetsAndRecommend verifies stored sets drive the recommendation
// endpoint and the recommendation counter.
func TestInsertSetsAndRecommend(t *testing.T) {
	s := newTestServer(t)

	rec := postSets(t, s, benchProgression())
	if rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d: %s", rec.Code, rec.Body)
	}
	var ins struct {
		Inserted int64 `json:"sets_inserted"`
		Skipped  int64 `json:"sets_skipped"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ins); err != nil {
		t.Fatal(err)
	}
	if ins.Inserted != 3 || ins.Skipped != 0 {
		t.Errorf("insert = %+v, want 3 inserted", ins)
	}

	// Same payload again is a no-op.
	rec = postSets(t, s, benchProgression())
	if err := json.NewDecoder(rec.Body).Decode(&ins); err != nil {
		t.Fatal(err)
	}
	if ins.Inserted != 0 || ins.Skipped != 3 {
		t.Errorf("re-insert = %+v, want all skipped", ins)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/recommendations/bench_press", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend status = %d: %s", rec.Code, rec.Body)
	}
	var got overload.Recommendation
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Branch != overload.BranchProgressiveTrend || got.RecommendedWeight != 107.5 || got.RecommendedReps != 8 {
		t.Errorf("recommendation = %+v, want progressive 107.5 x 8", got)
	}
	if n := testutil.ToFloat64(s.metrics.recommendations.WithLabelValues("progressive_trend")); n != 1 {
		t.Errorf("recommendations_total{progressive_trend} = %v, want 1", n)
	}
	if n := testutil.ToFloat64(s.metrics.setsIngested.WithLabelValues("api")); n != 3 {
		t.Errorf("sets_ingested_total{api} = %v, want 3", n)
	}
}

// TestInsertSetsRejections verifies unknown exercises get 422 and invalid
// sets 400, and that nothing from a rejected batch is stored.
func TestInsertSetsRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		sets []setInput
		want int
	}{
		{"unknown exercise", []setInput{{Exercise: "zercher_carry", Weight: 60, Reps: 5, PerformedAt: day0}}, http.StatusUnprocessableEntity},
		{"zero reps", []setInput{{Exercise: "bench_press", Weight: 60, Reps: 0, PerformedAt: day0}}, http.StatusBadRequest},
		{"negative weight", []setInput{{Exercise: "bench_press", Weight: -1, Reps: 5, PerformedAt: day0}}, http.StatusBadRequest},
		{"missing time", []setInput{{Exercise: "bench_press", Weight: 60, Reps: 5}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postSets(t, s, tt.sets); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec := do(t, s, http.MethodPost, "/api/v1/sets", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/sets?start=2026-01-01&end=2026-12-31", "")
	var sets []models.WorkoutSet
	if err := json.NewDecoder(rec.Body).Decode(&sets); err != nil {
		t.Fatal(err)
	}
	if len(sets) != 0 {
		t.Errorf("stored %d sets from rejected batches", len(sets))
	}
}

// TestQuerySetsFiltersByExercise verifies the exercise filter accepts names.
func TestQuerySetsFiltersByExercise(t *testing.T) {
	s := newTestServer(t)
	sets := append(benchProgression(), setInput{Exercise: "back_squat", Weight: 140, Reps: 5, PerformedAt: day0})
	if rec := postSets(t, s, sets); rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/sets?start=2026-03-01&end=2026-03-10&exercise=Bench%20Press", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got []models.WorkoutSet
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sets, want 3", len(got))
	}
	for _, ws := range got {
		if ws.ExerciseID != "bench_press" {
			t.Errorf("unexpected exercise %q", ws.ExerciseID)
		}
	}

	rec = do(t, s, http.MethodGet, "/api/v1/sets?start=nonsense", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start status = %d, want 400", rec.Code)
	}
}

// TestRecoveryEndpoints verifies the per-muscle and full recovery views.
func TestRecoveryEndpoints(t *testing.T) {
	s := newTestServer(t)
	if rec := postSets(t, s, benchProgression()); rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d", rec.Code)
	}

	at := day0.AddDate(0, 0, 4).Add(time.Hour).Format(time.RFC3339)
	rec := do(t, s, http.MethodGet, "/api/v1/recovery/chest?at="+at, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var chest recovery.MuscleState
	if err := json.NewDecoder(rec.Body).Decode(&chest); err != nil {
		t.Fatal(err)
	}
	if chest.Muscle != models.Chest || chest.FatiguePercent <= 0 || chest.ContributingSets == 0 {
		t.Errorf("chest = %+v, want fatigue from recent bench", chest)
	}
	if chest.LastWorkout == nil || !chest.LastWorkout.Equal(day0.AddDate(0, 0, 4)) {
		t.Errorf("last workout = %v, want %v", chest.LastWorkout, day0.AddDate(0, 0, 4))
	}

	rec = do(t, s, http.MethodGet, "/api/v1/recovery", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("map status = %d: %s", rec.Code, rec.Body)
	}
	var all []recovery.MuscleState
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatal(err)
	}
	if len(all) != len(models.AllMuscles()) {
		t.Errorf("map has %d muscles, want %d", len(all), len(models.AllMuscles()))
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/recovery/spleen", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown muscle status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/recovery?at=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad at status = %d, want 400", rec.Code)
	}
}

// TestExerciseEndpoints verifies catalog listing, muscle filter and lookup.
func TestExerciseEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/exercises?muscle=chest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var defs []models.ExerciseDefinition
	if err := json.NewDecoder(rec.Body).Decode(&defs); err != nil {
		t.Fatal(err)
	}
	if len(defs) == 0 {
		t.Fatal("no chest exercises")
	}
	for _, d := range defs {
		if d.Involvement(models.Chest) == 0 {
			t.Errorf("%s does not train chest", d.ID)
		}
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/bench_press", ""); rec.Code != http.StatusOK {
		t.Errorf("lookup status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/zercher_carry", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown lookup status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/recommendations/zercher_carry", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown recommendation status = %d, want 422", rec.Code)
	}
}

// TestRecommendWithoutHistory verifies an untouched exercise gets the
// low-confidence starting prescription.
func TestRecommendWithoutHistory(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/recommendations/back_squat", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got overload.Recommendation
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Branch != overload.BranchNoHistory || !got.LowConfidence {
		t.Errorf("recommendation = %+v, want low-confidence no_history", got)
	}
}

// TestAlphaIngestEndpoint verifies the CSV upload path stores working sets.
func TestAlphaIngestEndpoint(t *testing.T) {
	s := newTestServer(t)

	csv := `"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 17:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;100;6;1
`
	rec := do(t, s, http.MethodPost, "/api/v1/ingest/alpha", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var res struct {
		SetsInserted   int64 `json:"sets_inserted"`
		WarmupsDropped int   `json:"warmups_dropped"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.SetsInserted != 2 || res.WarmupsDropped != 1 {
		t.Errorf("result = %+v, want 2 inserted and 1 warmup dropped", res)
	}
}

// TestMetricsEndpoint verifies /metrics exposes the liftlog collectors.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/api/v1/exercises", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "liftlog_http_requests_total") {
		t.Error("metrics output lacks liftlog_http_requests_total")
	}
}

// TestMCPNotMounted verifies /mcp answers 404 until a transport is set.
func TestMCPNotMounted(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodPost, "/mcp", "{}"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	s.SetMCP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	if rec := do(t, s, http.MethodPost, "/mcp", "{}"); rec.Code != http.StatusAccepted {
		t.Errorf("mounted status = %d, want 202", rec.Code)
	}
}
