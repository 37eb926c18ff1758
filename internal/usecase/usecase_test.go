package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"wildrose/internal/adapter/tool"
	"wildrose/internal/domain"
	"wildrose/internal/infra/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mocks ---

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type mockModel struct {
	mu          sync.Mutex
	responses   []*domain.Completion
	errs        []error
	callIdx     int
	transcripts [][]domain.Message
	catalogs    [][]domain.ToolSchema
	timeouts    []time.Duration
	block       chan struct{} // when set, Complete waits on it or ctx
}

func (m *mockModel) Name() string { return "mock" }

func (m *mockModel) Complete(ctx context.Context, transcript []domain.Message, catalog []domain.ToolSchema, timeout time.Duration) (*domain.Completion, error) {
	m.mu.Lock()
	m.transcripts = append(m.transcripts, transcript)
	m.catalogs = append(m.catalogs, catalog)
	m.timeouts = append(m.timeouts, timeout)
	idx := m.callIdx
	m.callIdx++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, domain.ErrCanceled
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return &domain.Completion{Model: "mock"}, nil
}

func (m *mockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callIdx
}

type mockActor struct {
	mu    sync.Mutex
	idle  bool
	calls []string
}

func (a *mockActor) record(s string, idle bool) {
	a.mu.Lock()
	a.calls = append(a.calls, s)
	a.idle = idle
	a.mu.Unlock()
}

func (a *mockActor) SetIdle()    { a.record("idle", true) }
func (a *mockActor) SetRunning() { a.record("run", false) }
func (a *mockActor) SetRushing() { a.record("rush", false) }

func (a *mockActor) Vocalize(kind domain.Vocalization) error {
	a.mu.Lock()
	a.calls = append(a.calls, string(kind))
	a.mu.Unlock()
	return nil
}

func (a *mockActor) IsIdle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.idle
}

func (a *mockActor) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type mockChat struct {
	mu    sync.Mutex
	lines []string
	posts []string // every post, including retracted ones
}

func (c *mockChat) Post(m string) {
	c.mu.Lock()
	c.lines = append(c.lines, m)
	c.posts = append(c.posts, m)
	c.mu.Unlock()
}

func (c *mockChat) RetractLast() {
	c.mu.Lock()
	if n := len(c.lines); n > 0 {
		c.lines = c.lines[:n-1]
	}
	c.mu.Unlock()
}

func (c *mockChat) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *mockChat) Posts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.posts...)
}

type agentFixture struct {
	agent  *Agent
	model  *mockModel
	actor  *mockActor
	chat   *mockChat
	clock  *fakeClock
	vitals *domain.Vitals
}

func newAgentFixture(t *testing.T, model *mockModel) *agentFixture {
	t.Helper()
	f := &agentFixture{
		model:  model,
		actor:  &mockActor{idle: true},
		chat:   &mockChat{},
		clock:  newFakeClock(),
		vitals: domain.NewVitals(),
	}
	log := logger.Discard()
	reg := tool.NewRegistry(log)
	reg.MustRegister(tool.PetTools(f.actor, f.vitals, f.chat, "WhiteCar")...)

	agent, err := NewAgent(AgentDeps{
		Model:    model,
		Tools:    reg,
		Executor: tool.NewExecutor(reg, log),
		Actor:    f.actor,
		Chat:     f.chat,
		Vitals:   f.vitals,
		Clock:    f.clock,
		Logger:   log,
		Config: AgentConfig{
			Persona:             "You are WhiteCar, a cute virtual cat.",
			Timeout:             5 * time.Second,
			ThinkingPlaceholder: "[LLM thinking...]",
		},
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	f.agent = agent
	return f
}

type recordingJournal struct {
	mu      sync.Mutex
	records []domain.ConsultationRecord
	err     error
}

func (j *recordingJournal) Record(_ context.Context, rec domain.ConsultationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

func (j *recordingJournal) Recent(_ context.Context, n int) ([]domain.ConsultationRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.ConsultationRecord
	for i := len(j.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}

func (j *recordingJournal) Records() []domain.ConsultationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.ConsultationRecord(nil), j.records...)
}
