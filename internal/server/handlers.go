package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/recovery"
	"github.com/claude/liftlog/internal/training"
)

// maxSetsPerRequest bounds a single POST /api/v1/sets body.
const maxSetsPerRequest = 5000

// setInput is one set as posted by clients. Exercise may be a catalog id or
// any name the catalog resolves.
type setInput struct {
	Exercise    string    `json:"exercise"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	RPE         *float64  `json:"rpe,omitempty"`
	PerformedAt time.Time `json:"performed_at"`
	SetNumber   int       `json:"set_number,omitempty"`
}

func (s *Server) handleInsertSets(w http.ResponseWriter, r *http.Request) {
	var inputs []setInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(inputs) > maxSetsPerRequest {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("at most %d sets per request", maxSetsPerRequest),
		})
		return
	}

	uid := userIDFromContext(r)
	cat := s.svc.Catalog()
	sets := make([]models.WorkoutSet, 0, len(inputs))
	for i, in := range inputs {
		id, ok := cat.Resolve(in.Exercise)
		if !ok {
			writeError(w, &catalog.UnknownExerciseError{ExerciseID: in.Exercise})
			return
		}
		seq := in.SetNumber
		if seq == 0 {
			seq = i + 1
		}
		set := models.WorkoutSet{
			ID:          models.SetID(uid, id, in.PerformedAt, seq),
			UserID:      uid,
			ExerciseID:  id,
			Weight:      in.Weight,
			Reps:        in.Reps,
			RPE:         in.RPE,
			PerformedAt: in.PerformedAt,
		}
		if err := set.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("set %d: %v", i, err)})
			return
		}
		sets = append(sets, set)
	}

	inserted, err := s.db.InsertWorkoutSets(r.Context(), sets)
	if err != nil {
		s.log.Error("insert sets error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.metrics.observeIngest("api", inserted)

	writeJSON(w, http.StatusOK, map[string]any{
		"sets_received": len(sets),
		"sets_inserted": inserted,
		"sets_skipped":  int64(len(sets)) - inserted,
	})
}

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	result, err := s.alpha.Ingest(r.Context(), r.Body, userIDFromContext(r))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.metrics.observeIngest("alpha", result.SetsInserted)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	exercise := r.URL.Query().Get("exercise")
	if exercise != "" {
		id, ok := s.svc.Catalog().Resolve(exercise)
		if !ok {
			writeError(w, &catalog.UnknownExerciseError{ExerciseID: exercise})
			return
		}
		exercise = id
	}

	sets, err := s.db.QueryWorkoutSets(r.Context(), start, end, userIDFromContext(r), exercise)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	cat := s.svc.Catalog()
	if name := r.URL.Query().Get("muscle"); name != "" {
		m, err := training.ParseMuscle(name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cat.ExercisesFor(m))
		return
	}
	writeJSON(w, http.StatusOK, cat.Exercises())
}

func (s *Server) handleExercise(w http.ResponseWriter, r *http.Request) {
	def, err := s.svc.Catalog().Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleRecoveryMap(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	states, err := s.svc.RecoveryMap(r.Context(), userIDFromContext(r), at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleMuscleRecovery(w http.ResponseWriter, r *http.Request) {
	muscle, err := training.ParseMuscle(chi.URLParam(r, "muscle"))
	if err != nil {
		writeError(w, err)
		return
	}
	at, err := parseAt(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := s.svc.MuscleRecovery(r.Context(), userIDFromContext(r), muscle, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "exercise")
	id, ok := s.svc.Catalog().Resolve(name)
	if !ok {
		writeError(w, &catalog.UnknownExerciseError{ExerciseID: name})
		return
	}
	rec, err := s.svc.Recommend(r.Context(), userIDFromContext(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.observeRecommendation(string(rec.Branch))
	writeJSON(w, http.StatusOK, rec)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrUnknownExercise):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, training.ErrUnknownMuscle):
		status = http.StatusBadRequest
	case errors.Is(err, recovery.ErrInvalidFatigueValue):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseAt reads the optional ?at= instant. Absent means now.
func parseAt(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("at")
	if v == "" {
		return time.Time{}, nil
	}
	at, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid at %q: want RFC 3339", v)
	}
	return at, nil
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
