package domain

import "sync"

// Moods the pet can be in.
const (
	MoodNeutral = "neutral"
	MoodHappy   = "happy"
)

// Vitals holds the pet's energy and mood. Energy is kept within [0, 1].
// Safe for concurrent use.
type Vitals struct {
	mu     sync.RWMutex
	energy float64
	mood   string
}

// NewVitals returns fully rested, neutral vitals.
func NewVitals() *Vitals {
	return &Vitals{energy: 1.0, mood: MoodNeutral}
}

// AdjustEnergy adds delta to the energy level and clamps the result.
func (v *Vitals) AdjustEnergy(delta float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.energy = min(1.0, max(0.0, v.energy+delta))
}

// SetMood replaces the current mood.
func (v *Vitals) SetMood(mood string) {
	v.mu.Lock()
	v.mood = mood
	v.mu.Unlock()
}

// Snapshot returns the current energy and mood.
func (v *Vitals) Snapshot() (energy float64, mood string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.energy, v.mood
}
