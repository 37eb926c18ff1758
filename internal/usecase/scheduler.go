package usecase

import (
	"sync"
	"time"
)

// Scheduler gates autonomous consultations. A consultation may fire only
// when the decision cooldown has elapsed, the character has done nothing
// for longer than the idle threshold, and the character is idle.
// Safe for concurrent use.
type Scheduler struct {
	mu               sync.Mutex
	idleThreshold    time.Duration
	decisionCooldown time.Duration
	lastDecisionAt   time.Time // zero until the first autonomous decision
	lastActionAt     time.Time
}

// SchedulerState is a point-in-time copy of the scheduler's timers.
type SchedulerState struct {
	LastDecisionAt   time.Time
	LastActionAt     time.Time
	IdleThreshold    time.Duration
	DecisionCooldown time.Duration
}

// NewScheduler creates a scheduler whose idle timer starts at start.
func NewScheduler(idleThreshold, decisionCooldown time.Duration, start time.Time) *Scheduler {
	return &Scheduler{
		idleThreshold:    idleThreshold,
		decisionCooldown: decisionCooldown,
		lastActionAt:     start,
	}
}

// ShouldFire reports whether an autonomous consultation is due at now.
func (s *Scheduler) ShouldFire(now time.Time, idle bool) bool {
	if !idle {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cooled := s.lastDecisionAt.IsZero() || now.Sub(s.lastDecisionAt) > s.decisionCooldown
	return cooled && now.Sub(s.lastActionAt) > s.idleThreshold
}

// MarkDecision records an autonomous consultation at now.
func (s *Scheduler) MarkDecision(now time.Time) {
	s.mu.Lock()
	s.lastDecisionAt = now
	s.mu.Unlock()
}

// MarkAction records a successful tool execution at now.
func (s *Scheduler) MarkAction(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActionAt) {
		s.lastActionAt = now
	}
	s.mu.Unlock()
}

// State returns a copy of the scheduler's timers.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerState{
		LastDecisionAt:   s.lastDecisionAt,
		LastActionAt:     s.lastActionAt,
		IdleThreshold:    s.idleThreshold,
		DecisionCooldown: s.decisionCooldown,
	}
}
