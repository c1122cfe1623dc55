package mcp

import (
	"context"
	"fmt"

	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both StoreSource (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	ExerciseHistory(ctx context.Context, exerciseID string, count int) ([]progress.SessionSummary, error)
	Progression(ctx context.Context, exerciseID string) (progress.PlateauResult, error)
	SessionVolume(ctx context.Context, sessionID string) (progress.VolumeInfo, error)
	ListSessions(ctx context.Context, limit int) ([]progress.SessionListItem, error)
	Stats(ctx context.Context) (progress.DataStats, error)
}

// StoreSource answers DataSource queries from a local store.
type StoreSource struct {
	store storage.Store
}

// Compile-time checks.
var (
	_ DataSource = (*StoreSource)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

func NewStoreSource(store storage.Store) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) snapshot(ctx context.Context) (models.Snapshot, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

func (s *StoreSource) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	return s.store.ListWorkouts(ctx)
}

func (s *StoreSource) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return s.store.ListExercises(ctx)
}

func (s *StoreSource) ExerciseHistory(ctx context.Context, exerciseID string, count int) ([]progress.SessionSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Exercises[exerciseID]; !ok {
		return nil, fmt.Errorf("exercise %s: %w", exerciseID, storage.ErrNotFound)
	}
	history := []progress.SessionSummary{}
	for sum := range progress.ExerciseHistory(snap, exerciseID, count) {
		history = append(history, sum)
	}
	return history, nil
}

func (s *StoreSource) Progression(ctx context.Context, exerciseID string) (progress.PlateauResult, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return progress.PlateauResult{}, err
	}
	if _, ok := snap.Exercises[exerciseID]; !ok {
		return progress.PlateauResult{}, fmt.Errorf("exercise %s: %w", exerciseID, storage.ErrNotFound)
	}
	return progress.Progression(snap, exerciseID), nil
}

func (s *StoreSource) SessionVolume(ctx context.Context, sessionID string) (progress.VolumeInfo, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return progress.VolumeInfo{}, err
	}
	if _, ok := snap.Sessions[sessionID]; !ok {
		return progress.VolumeInfo{}, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	return progress.CompareVolume(snap, sessionID), nil
}

func (s *StoreSource) ListSessions(ctx context.Context, limit int) ([]progress.SessionListItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return progress.SessionHistory(snap, limit), nil
}

func (s *StoreSource) Stats(ctx context.Context) (progress.DataStats, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return progress.DataStats{}, err
	}
	return progress.Stats(snap), nil
}
