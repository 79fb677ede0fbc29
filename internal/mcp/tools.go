package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/training"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// parseAt parses an optional instant; empty means now.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseFlexTime(s)
}

// --- Tool definitions ---

var toolGetMuscleRecovery = mcp.NewTool("get_muscle_recovery",
	mcp.WithDescription("Estimate muscle fatigue and recovery status from recent training. Without a muscle, returns every muscle group. Status is overworked (rest), optimal (ready to train) or undertrained."),
	mcp.WithString("muscle", mcp.Description("Muscle group (e.g. chest, back, quadriceps). Omit for all muscles."),
		mcp.Enum("chest", "back", "lower_back", "shoulders", "biceps", "triceps", "forearms", "abs", "quadriceps", "hamstrings", "glutes", "calves")),
	mcp.WithString("at", mcp.Description("Evaluate at this instant (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetOverloadRecommendation = mcp.NewTool("get_overload_recommendation",
	mcp.WithDescription("Recommend weight and reps for the next session of an exercise, based on recent sessions. Includes the rule applied (progressive_trend, plateau, plateau_deload, regression, building, insufficient_data, no_history) and a rationale."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise id or name (e.g. bench_press, 'Bench Press', 'RDL')")),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Query logged strength sets. Returns exercise, weight, reps, RPE and time for each set."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise id or name")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List catalog exercises with their primary, secondary and stabilizer muscles."),
	mcp.WithString("muscle", mcp.Description("Only exercises that train this muscle group")),
)

// --- Tool handlers ---

func (h *handlers) getMuscleRecovery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	at, err := parseAt(req.GetString("at", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	var out any
	if muscle := req.GetString("muscle", ""); muscle != "" {
		out, err = h.ds.MuscleRecovery(ctx, uid, muscle, at)
	} else {
		out, err = h.ds.RecoveryMap(ctx, uid, at)
	}
	if err != nil {
		return h.toolError("get_muscle_recovery", err), nil
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getOverloadRecommendation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	rec, err := h.ds.Recommend(ctx, UserIDFromContext(ctx), exercise)
	if err != nil {
		return h.toolError("get_overload_recommendation", err), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	sets, err := h.ds.QueryWorkoutSets(ctx, start, end, uid, req.GetString("exercise", ""))
	if err != nil {
		return h.toolError("get_workout_sets", err), nil
	}

	result, err := mcp.NewToolResultJSON(sets)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := h.ds.Exercises(ctx, req.GetString("muscle", ""))
	if err != nil {
		return h.toolError("list_exercises", err), nil
	}

	result, err := mcp.NewToolResultJSON(defs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// toolError turns a data source failure into a tool error result. Caller
// mistakes are returned as-is; anything else is logged as a query failure.
func (h *handlers) toolError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, catalog.ErrUnknownExercise) || errors.Is(err, training.ErrUnknownMuscle) {
		return mcp.NewToolResultError(err.Error())
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}
