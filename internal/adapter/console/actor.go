// Package console implements a headless pet actor for terminal hosts.
package console

import (
	"fmt"
	"log/slog"
	"sync"

	"wildrose/internal/domain"
)

// State is the actor's animation state.
type State string

const (
	StateIdle State = "idle"
	StateRun  State = "run"
	StateRush State = "rush"
)

// maxSounds bounds the vocalization history kept by an Actor.
const maxSounds = 32

// Actor tracks the pet's animation state and reports transitions.
// Safe for concurrent use.
type Actor struct {
	mu     sync.RWMutex
	state  State
	sounds []domain.Vocalization
	logger *slog.Logger
}

// NewActor creates an idle actor.
func NewActor(logger *slog.Logger) *Actor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actor{state: StateIdle, logger: logger}
}

func (a *Actor) SetIdle()    { a.transition(StateIdle) }
func (a *Actor) SetRunning() { a.transition(StateRun) }
func (a *Actor) SetRushing() { a.transition(StateRush) }

func (a *Actor) transition(to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()

	if from != to {
		a.logger.Debug("actor state changed", "from", from, "to", to)
	}
}

// Vocalize plays a sound. Unknown kinds are rejected.
func (a *Actor) Vocalize(kind domain.Vocalization) error {
	switch kind {
	case domain.VocalMeow, domain.VocalPurr:
	default:
		return fmt.Errorf("unknown vocalization %q", kind)
	}
	a.mu.Lock()
	a.sounds = append(a.sounds, kind)
	if over := len(a.sounds) - maxSounds; over > 0 {
		a.sounds = append(a.sounds[:0], a.sounds[over:]...)
	}
	a.mu.Unlock()

	a.logger.Info("actor vocalized", "sound", kind)
	return nil
}

// IsIdle reports whether the actor is in its idle state.
func (a *Actor) IsIdle() bool {
	return a.State() == StateIdle
}

// State returns the current animation state.
func (a *Actor) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Sounds returns the most recent vocalizations, oldest first.
func (a *Actor) Sounds() []domain.Vocalization {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.Vocalization(nil), a.sounds...)
}
