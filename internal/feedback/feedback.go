// Package feedback delivers fire-and-forget haptic and audio cues. Failures
// never reach the caller.
package feedback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Haptics vibrates the device. Pattern alternates vibrate/pause durations.
type Haptics interface {
	Vibrate(pattern ...time.Duration) error
}

// Audio plays a short tone.
type Audio interface {
	Beep(freqHz float64, d time.Duration) error
}

// Common cues.
const (
	PulseDuration = 50 * time.Millisecond
	BeepDuration  = 150 * time.Millisecond
	HighBeepHz    = 880
	LowBeepHz     = 440
)

// RestDonePattern is the vibration played when a rest timer reaches zero.
var RestDonePattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

// SafeHaptics wraps a Haptics so errors and panics are logged and dropped.
type SafeHaptics struct {
	h   Haptics
	log *slog.Logger
}

// NewSafeHaptics wraps h. A nil h behaves like Nop.
func NewSafeHaptics(h Haptics, log *slog.Logger) *SafeHaptics {
	if h == nil {
		h = Nop{}
	}
	return &SafeHaptics{h: h, log: log}
}

// Vibrate never fails.
func (s *SafeHaptics) Vibrate(pattern ...time.Duration) error {
	if err := guard(func() error { return s.h.Vibrate(pattern...) }); err != nil {
		s.log.Debug("vibrate failed", "error", err)
	}
	return nil
}

// SafeAudio wraps an Audio so errors and panics are logged and dropped.
type SafeAudio struct {
	a   Audio
	log *slog.Logger
}

// NewSafeAudio wraps a. A nil a behaves like Nop.
func NewSafeAudio(a Audio, log *slog.Logger) *SafeAudio {
	if a == nil {
		a = Nop{}
	}
	return &SafeAudio{a: a, log: log}
}

// Beep never fails.
func (s *SafeAudio) Beep(freqHz float64, d time.Duration) error {
	if err := guard(func() error { return s.a.Beep(freqHz, d) }); err != nil {
		s.log.Debug("beep failed", "freq_hz", freqHz, "error", err)
	}
	return nil
}

func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Vibrate(...time.Duration) error    { return nil }
func (Nop) Beep(float64, time.Duration) error { return nil }

// Log records cues at debug level. Used by the server, which has no device
// to drive.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Vibrate(pattern ...time.Duration) error {
	l.Logger.Debug("vibrate", "pattern", pattern)
	return nil
}

func (l Log) Beep(freqHz float64, d time.Duration) error {
	l.Logger.Debug("beep", "freq_hz", freqHz, "duration", d)
	return nil
}

// Recorder keeps every cue it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	vibrates [][]time.Duration
	beeps    []float64
}

func (r *Recorder) Vibrate(pattern ...time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vibrates = append(r.vibrates, append([]time.Duration(nil), pattern...))
	return nil
}

func (r *Recorder) Beep(freqHz float64, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps = append(r.beeps, freqHz)
	return nil
}

// Vibrations returns the recorded vibration patterns.
func (r *Recorder) Vibrations() [][]time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]time.Duration(nil), r.vibrates...)
}

// Beeps returns the recorded beep frequencies in order.
func (r *Recorder) Beeps() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.beeps...)
}
