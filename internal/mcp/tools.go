package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/storage"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workout programs with their ordered exercise IDs."),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises with category, target sets x reps, and default weight."),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Per-session summaries for one exercise, newest first: max weight, total reps, volume and the individual sets."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise ID (e.g. ex-squat). Use list_exercises to find IDs.")),
	mcp.WithNumber("count", mcp.Description("Number of sessions to return. Defaults to 3.")),
)

var toolGetProgression = mcp.NewTool("get_progression",
	mcp.WithDescription("Plateau detection and progression suggestion for one exercise, based on its last three sessions. Returns deload weight and rep scheme on a plateau, otherwise the next-session weight."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise ID")),
)

var toolGetSessionVolume = mcp.NewTool("get_session_volume",
	mcp.WithDescription("Total volume (weight x reps) of a session compared with the most recent earlier completed session of the same workout."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID (e.g. ses-...). Use list_sessions to find IDs.")),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("Completed sessions, newest first, with workout name, duration, volume and counts."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to all.")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Lifetime totals: sessions, sets, volume, date range, and a breakdown per workout."),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return h.queryFailed("list_workouts", err), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return h.queryFailed("list_exercises", err), nil
	}
	return jsonResult(exercises)
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	count := req.GetInt("count", progress.DefaultHistoryCount)
	if count < 1 {
		return mcp.NewToolResultError("count must be at least 1"), nil
	}

	history, err := h.ds.ExerciseHistory(ctx, id, count)
	if err != nil {
		return h.queryFailed("get_exercise_history", err), nil
	}
	return jsonResult(history)
}

func (h *handlers) getProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}

	res, err := h.ds.Progression(ctx, id)
	if err != nil {
		return h.queryFailed("get_progression", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) getSessionVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	info, err := h.ds.SessionVolume(ctx, id)
	if err != nil {
		return h.queryFailed("get_session_volume", err), nil
	}
	return jsonResult(info)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	list, err := h.ds.ListSessions(ctx, limit)
	if err != nil {
		return h.queryFailed("list_sessions", err), nil
	}
	if list == nil {
		list = []progress.SessionListItem{}
	}
	return jsonResult(list)
}

func (h *handlers) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ds.Stats(ctx)
	if err != nil {
		return h.queryFailed("get_stats", err), nil
	}
	return jsonResult(st)
}

// queryFailed turns a data source error into a tool error. Unknown IDs are
// reported plainly; anything else is logged.
func (h *handlers) queryFailed(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
