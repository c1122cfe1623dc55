package timing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/meltforce/tinylifts/internal/feedback"
)

// Phase is the half of a repetition the lifter is in.
type Phase string

const (
	PhaseUp   Phase = "up"
	PhaseDown Phase = "down"
)

// Metronome cadence.
const (
	PhaseDuration = 5 * time.Second
	MetronomeTick = 50 * time.Millisecond
	MetronomeReps = 5
)

// MetronomeState is a point-in-time copy of a Metronome.
type MetronomeState struct {
	Active     bool    `json:"active"`
	Phase      Phase   `json:"phase"`
	Progress   float64 `json:"progress"`
	ElapsedSec float64 `json:"elapsed_sec"`
	CurrentRep int     `json:"current_rep"`
	TotalReps  int     `json:"total_reps"`
}

// Metronome alternates up and down phases for a fixed number of reps, with a
// high beep at the start of each up phase and a low beep at the start of
// each down phase. It stops itself after the last down phase.
type Metronome struct {
	clock Clock
	audio feedback.Audio
	log   *slog.Logger

	mu         sync.Mutex
	active     bool
	phase      Phase
	rep        int
	phaseStart time.Time
	progress   float64
	gen        uint64
	cancel     func()
}

// NewMetronome creates a stopped metronome. audio may be nil.
func NewMetronome(clock Clock, audio feedback.Audio, log *slog.Logger) *Metronome {
	return &Metronome{
		clock: clock,
		audio: feedback.NewSafeAudio(audio, log),
		log:   log,
		phase: PhaseUp,
		rep:   1,
	}
}

// Start begins at the first up phase, restarting if already active.
func (m *Metronome) Start() {
	m.mu.Lock()
	m.stopLocked()
	m.active = true
	m.phaseStart = m.clock.Now()
	m.gen++
	gen := m.gen
	m.cancel = m.clock.Every(MetronomeTick, func() { m.tick(gen) })
	m.mu.Unlock()

	m.beep(PhaseUp)
}

// Stop halts and resets phase, rep and progress.
func (m *Metronome) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Toggle starts an inactive metronome and stops an active one.
func (m *Metronome) Toggle() {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active {
		m.Stop()
	} else {
		m.Start()
	}
}

// State returns a copy of the metronome state. Progress is recomputed from
// the clock and capped at 1.
func (m *Metronome) State() MetronomeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetronomeState{
		Active:     m.active,
		Phase:      m.phase,
		Progress:   m.progress,
		CurrentRep: m.rep,
		TotalReps:  MetronomeReps,
	}
	if m.active {
		dt := min(m.clock.Now().Sub(m.phaseStart), PhaseDuration)
		s.Progress = dt.Seconds() / PhaseDuration.Seconds()
		s.ElapsedSec = dt.Seconds()
	}
	return s
}

func (m *Metronome) stopLocked() {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.active = false
	m.phase = PhaseUp
	m.rep = 1
	m.progress = 0
}

func (m *Metronome) tick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.active {
		m.mu.Unlock()
		return
	}
	dt := m.clock.Now().Sub(m.phaseStart)
	m.progress = min(dt.Seconds()/PhaseDuration.Seconds(), 1)
	if dt < PhaseDuration {
		m.mu.Unlock()
		return
	}

	if m.phase == PhaseDown {
		if m.rep >= MetronomeReps {
			m.stopLocked()
			m.mu.Unlock()
			m.log.Debug("metronome finished", "reps", MetronomeReps)
			return
		}
		m.rep++
		m.phase = PhaseUp
	} else {
		m.phase = PhaseDown
	}
	m.phaseStart = m.phaseStart.Add(PhaseDuration)
	m.progress = 0
	next := m.phase
	m.mu.Unlock()

	m.beep(next)
}

func (m *Metronome) beep(p Phase) {
	freq := float64(feedback.HighBeepHz)
	if p == PhaseDown {
		freq = feedback.LowBeepHz
	}
	_ = m.audio.Beep(freq, feedback.BeepDuration)
}
