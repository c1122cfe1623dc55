package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meltforce/tinylifts/internal/logbook"
	"github.com/meltforce/tinylifts/internal/metrics"
	"github.com/meltforce/tinylifts/internal/server"
	"github.com/meltforce/tinylifts/internal/storage"
	"github.com/meltforce/tinylifts/internal/timing"
)

// newAPIServer serves the real REST API over the fixture store so the client
// is checked against the same answers StoreSource gives.
func newAPIServer(t *testing.T) (*httptest.Server, *StoreSource) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFixtureStore(t)
	clock := timing.NewManualClock(day0.AddDate(0, 0, 10))
	m := metrics.NewTestManager()
	lb := logbook.New(logbook.Config{Store: store, Clock: clock, Metrics: m, Logger: log})
	t.Cleanup(lb.Close)

	ts := httptest.NewServer(server.New(store, lb, clock, m, log))
	t.Cleanup(ts.Close)
	return ts, NewStoreSource(store)
}

func TestHTTPClientMatchesStore(t *testing.T) {
	ts, local := newAPIServer(t)
	client := NewHTTPClient(ts.URL + "/")
	ctx := context.Background()

	remoteHist, err := client.ExerciseHistory(ctx, storage.ExerciseSquat, 5)
	if err != nil {
		t.Fatal(err)
	}
	localHist, err := local.ExerciseHistory(ctx, storage.ExerciseSquat, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(remoteHist) != len(localHist) {
		t.Fatalf("history length = %d, want %d", len(remoteHist), len(localHist))
	}
	for i := range remoteHist {
		r, l := remoteHist[i], localHist[i]
		if r.SessionID != l.SessionID || r.TotalVolume != l.TotalVolume || !r.Date.Equal(l.Date) || len(r.Sets) != len(l.Sets) {
			t.Errorf("history[%d] = %+v, want %+v", i, r, l)
		}
	}

	res, err := client.Progression(ctx, storage.ExerciseSquat)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsPlateau || res.SuggestedDeloadWeight == nil || *res.SuggestedDeloadWeight != 90 {
		t.Errorf("progression = %+v", res)
	}

	info, err := client.SessionVolume(ctx, "ses-3")
	if err != nil {
		t.Fatal(err)
	}
	if info.CurrentVolume != 4000 || info.PreviousSessionID != "ses-2" {
		t.Errorf("volume = %+v", info)
	}

	list, err := client.ListSessions(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SessionID != "ses-3" {
		t.Errorf("sessions = %+v", list)
	}

	st, err := client.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSessions != 3 || st.LatestData == nil || !st.LatestData.Equal(day0.AddDate(0, 0, 4)) {
		t.Errorf("stats = %+v", st)
	}

	exercises, err := client.ListExercises(ctx)
	if err != nil {
		t.Fatal(err)
	}
	workouts, err := client.ListWorkouts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(exercises) != len(storage.SeedExercises) || len(workouts) != 2 {
		t.Errorf("got %d exercises and %d workouts", len(exercises), len(workouts))
	}
}

// TestHTTPClientNotFound verifies a 404 maps back to storage.ErrNotFound.
func TestHTTPClientNotFound(t *testing.T) {
	ts, _ := newAPIServer(t)
	client := NewHTTPClient(ts.URL)

	_, err := client.Progression(context.Background(), "ex-nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_, err = client.SessionVolume(context.Background(), "ses-nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestHTTPClientServerError verifies non-200 responses carry the status and body.
func TestHTTPClientServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stats" {
			t.Errorf("unexpected request path: %s", r.URL.Path)
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).Stats(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, storage.ErrNotFound) {
		t.Error("500 must not map to ErrNotFound")
	}
}

// TestHTTPClientQueryParams verifies count and limit are sent only when set.
func TestHTTPClientQueryParams(t *testing.T) {
	var got []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.ExerciseHistory(ctx, "ex-squat", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := client.ListSessions(ctx, 0); err != nil {
		t.Fatal(err)
	}

	want := []string{"/api/v1/exercises/ex-squat/history?count=4", "/api/v1/sessions"}
	if len(got) != len(want) {
		t.Fatalf("requests = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
