package timing

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meltforce/tinylifts/internal/feedback"
)

// Intensity is a coarse classification of set difficulty that picks the rest
// duration.
type Intensity string

const (
	Light    Intensity = "light"
	Moderate Intensity = "moderate"
	Heavy    Intensity = "heavy"
)

var restDurations = map[Intensity]int{
	Light:    60,
	Moderate: 120,
	Heavy:    240,
}

// ParseIntensity maps a name to an Intensity. Unknown names are Moderate.
func ParseIntensity(s string) Intensity {
	in := Intensity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := restDurations[in]; ok {
		return in
	}
	return Moderate
}

// RestSeconds returns the rest duration for in. Unknown values get the
// moderate duration.
func (in Intensity) RestSeconds() int {
	if d, ok := restDurations[in]; ok {
		return d
	}
	return restDurations[Moderate]
}

// ClassifyIntensity compares a logged weight with the heaviest weight of the
// exercise in the current session, the new set included.
func ClassifyIntensity(weight, maxWeight float64) Intensity {
	if maxWeight == 0 {
		return Moderate
	}
	ratio := weight / maxWeight
	switch {
	case ratio <= 0.6:
		return Light
	case ratio <= 0.85:
		return Moderate
	default:
		return Heavy
	}
}

// RestStatus is the externally visible state of a RestTimer.
type RestStatus string

const (
	RestIdle    RestStatus = "idle"
	RestRunning RestStatus = "running"
	RestPaused  RestStatus = "paused"
)

// RestState is a point-in-time copy of a RestTimer.
type RestState struct {
	Status       RestStatus `json:"status"`
	SecondsLeft  int        `json:"seconds_left"`
	TotalSeconds int        `json:"total_seconds"`
	Intensity    Intensity  `json:"intensity"`
}

// Running reports whether the countdown is live.
func (s RestState) Running() bool { return s.Status == RestRunning }

// RestTimer counts down once per second while running and vibrates once when
// it reaches zero.
type RestTimer struct {
	clock   Clock
	haptics feedback.Haptics
	log     *slog.Logger

	mu           sync.Mutex
	secondsLeft  int
	totalSeconds int
	running      bool
	intensity    Intensity
	gen          uint64
	cancel       func()
	onComplete   func()
}

// NewRestTimer creates an idle timer. haptics may be nil.
func NewRestTimer(clock Clock, haptics feedback.Haptics, log *slog.Logger) *RestTimer {
	return &RestTimer{
		clock:     clock,
		haptics:   feedback.NewSafeHaptics(haptics, log),
		log:       log,
		intensity: Moderate,
	}
}

// OnComplete registers f to run, outside the timer lock, each time a
// countdown finishes.
func (t *RestTimer) OnComplete(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onComplete = f
}

// Start (re)starts the countdown with the duration for in.
func (t *RestTimer) Start(in Intensity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in = ParseIntensity(string(in))
	t.stopLocked()
	t.intensity = in
	t.totalSeconds = in.RestSeconds()
	t.secondsLeft = t.totalSeconds
	t.startLocked()
	t.log.Debug("rest timer started", "intensity", in, "seconds", t.totalSeconds)
}

// Pause freezes the countdown. No-op unless running.
func (t *RestTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.stopLocked()
}

// Resume continues a paused countdown. No-op when running or when nothing
// is left.
func (t *RestTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.secondsLeft <= 0 {
		return
	}
	t.startLocked()
}

// Reset returns the timer to idle with zero time.
func (t *RestTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.secondsLeft = 0
	t.totalSeconds = 0
}

// AdjustTime shifts both remaining and total seconds by delta, floored at 0.
// Allowed in any state. Reaching zero while running completes the countdown.
func (t *RestTimer) AdjustTime(delta int) {
	t.mu.Lock()
	t.secondsLeft = max(0, t.secondsLeft+delta)
	t.totalSeconds = max(0, t.totalSeconds+delta)
	done := t.running && t.secondsLeft == 0
	var onComplete func()
	if done {
		t.stopLocked()
		onComplete = t.onComplete
	}
	t.mu.Unlock()

	if done {
		t.complete(onComplete)
	}
}

// State returns a copy of the timer state.
func (t *RestTimer) State() RestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := RestState{
		SecondsLeft:  t.secondsLeft,
		TotalSeconds: t.totalSeconds,
		Intensity:    t.intensity,
	}
	switch {
	case t.running:
		s.Status = RestRunning
	case t.secondsLeft > 0:
		s.Status = RestPaused
	default:
		s.Status = RestIdle
	}
	return s
}

// startLocked schedules ticks under a fresh generation.
func (t *RestTimer) startLocked() {
	t.gen++
	gen := t.gen
	t.running = true
	t.cancel = t.clock.Every(time.Second, func() { t.tick(gen) })
}

// stopLocked cancels the pending tick and invalidates in-flight callbacks.
func (t *RestTimer) stopLocked() {
	t.gen++
	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *RestTimer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	t.secondsLeft--
	if t.secondsLeft > 0 {
		t.mu.Unlock()
		return
	}
	t.secondsLeft = 0
	t.stopLocked()
	onComplete := t.onComplete
	t.mu.Unlock()

	t.complete(onComplete)
}

func (t *RestTimer) complete(onComplete func()) {
	t.log.Debug("rest timer finished")
	_ = t.haptics.Vibrate(feedback.RestDonePattern...)
	if onComplete != nil {
		onComplete()
	}
}
