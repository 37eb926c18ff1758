package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"wildrose/internal/domain"
)

// recordingActor records every capability invocation.
type recordingActor struct {
	mu       sync.Mutex
	calls    []string
	vocalErr error
	idle     bool
}

func (a *recordingActor) record(s string) {
	a.mu.Lock()
	a.calls = append(a.calls, s)
	a.mu.Unlock()
}

func (a *recordingActor) SetIdle()    { a.record("idle"); a.idle = true }
func (a *recordingActor) SetRunning() { a.record("run"); a.idle = false }
func (a *recordingActor) SetRushing() { a.record("rush"); a.idle = false }
func (a *recordingActor) IsIdle() bool {
	return a.idle
}

func (a *recordingActor) Vocalize(kind domain.Vocalization) error {
	if a.vocalErr != nil {
		return a.vocalErr
	}
	a.record(string(kind))
	return nil
}

func (a *recordingActor) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type recordingChat struct {
	mu    sync.Mutex
	lines []string
}

func (c *recordingChat) Post(m string) {
	c.mu.Lock()
	c.lines = append(c.lines, m)
	c.mu.Unlock()
}

func (c *recordingChat) RetractLast() {
	c.mu.Lock()
	if n := len(c.lines); n > 0 {
		c.lines = c.lines[:n-1]
	}
	c.mu.Unlock()
}

func (c *recordingChat) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// stubTool is a minimal tool whose behaviour is set per test.
type stubTool struct {
	name   string
	schema json.RawMessage
	fn     func(args domain.Arguments) (*domain.ToolResult, error)
	got    []domain.Arguments
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Description: "stub", Parameters: s.schema}
}

func (s *stubTool) Execute(_ context.Context, args domain.Arguments) (*domain.ToolResult, error) {
	s.got = append(s.got, args)
	if s.fn != nil {
		return s.fn(args)
	}
	return TextResult("ok"), nil
}

var errStub = errors.New("stub failure")
