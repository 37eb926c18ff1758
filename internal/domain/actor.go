package domain

import "time"

// Vocalization is a sound the embodied character can make.
type Vocalization string

const (
	VocalMeow Vocalization = "meow"
	VocalPurr Vocalization = "purr"
)

// Actor is the embodied character the agent controls.
// Implementations are supplied by the host application.
type Actor interface {
	SetIdle()
	SetRunning()
	SetRushing()
	Vocalize(kind Vocalization) error
	// IsIdle reports whether the character is currently in its idle state.
	IsIdle() bool
}

// ChatLog is the host's chat window. Implementations must be safe for
// concurrent use: background consultations post from their own goroutine.
type ChatLog interface {
	Post(message string)
	// RetractLast removes the most recent message, if any.
	RetractLast()
}

// Clock abstracts time so schedulers can be driven by a virtual clock in tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
