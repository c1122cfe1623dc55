package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/tinylifts/internal/progress"
)

const recentSessionsLimit = 10

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.ds.ListSessions(ctx, recentSessionsLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []progress.SessionListItem{}
	}
	return jsonContents(req.Params.URI, list)
}

// boardEntry is one exercise on the progression board.
type boardEntry struct {
	ExerciseID string                 `json:"exercise_id"`
	Name       string                 `json:"name"`
	Result     progress.PlateauResult `json:"result"`
}

func (h *handlers) progressionBoard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}

	board := make([]boardEntry, 0, len(exercises))
	for _, ex := range exercises {
		res, err := h.ds.Progression(ctx, ex.ID)
		if err != nil {
			h.log.Warn("progression board: exercise skipped", "exercise", ex.ID, "error", err)
			continue
		}
		board = append(board, boardEntry{ExerciseID: ex.ID, Name: ex.Name, Result: res})
	}
	return jsonContents(req.Params.URI, board)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
