package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"wildrose/internal/domain"
	"wildrose/internal/infra/tracer"
)

// Trigger names what started a consultation.
type Trigger string

const (
	TriggerUser Trigger = "user"
	TriggerIdle Trigger = "idle"
)

// Chat line formats.
const (
	replyPrefix = "[LLM]: "
	errorPrefix = "[LLM Error]: "
)

// Default agent settings, applied to zero-valued AgentConfig fields.
const (
	defaultTimeout          = 5 * time.Second
	defaultFallbackTool     = "idle"
	defaultMaxTranscript    = 40
	defaultMemoryCapacity   = 5
	defaultIdleThreshold    = 15 * time.Second
	defaultDecisionCooldown = 20 * time.Second
	defaultIdlePrompt       = "You've been idle for a while. What would you like to do?"
)

// AgentConfig holds the agent's tunables.
type AgentConfig struct {
	Persona               string
	Timeout               time.Duration
	ThinkingPlaceholder   string // empty = no placeholder
	FallbackTool          string
	MaxTranscriptMessages int
	MemoryCapacity        int
	IdleThreshold         time.Duration
	DecisionCooldown      time.Duration
	IdlePrompt            string
}

// AgentDeps holds injected dependencies for the agent.
type AgentDeps struct {
	Model    domain.ModelClient
	Tools    domain.ToolCatalog
	Executor domain.ToolExecutor
	Actor    domain.Actor
	Chat     domain.ChatLog // optional, nil = no chat output
	Vitals   *domain.Vitals // optional, nil = fresh vitals
	Clock    domain.Clock   // optional, nil = wall clock
	Journal  domain.Journal // optional, nil = consultations are not persisted
	Logger   *slog.Logger
	Config   AgentConfig
}

// Consultation is the record of one model exchange and its effects.
type Consultation struct {
	ID       string
	Trigger  Trigger
	Prompt   string
	Text     string
	Outcomes []domain.ToolOutcome
	// Fallback is set when the model failed and the fallback tool ran.
	Fallback  *domain.ToolOutcome
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Record summarizes the consultation for the journal.
func (c *Consultation) Record() domain.ConsultationRecord {
	rec := domain.ConsultationRecord{
		ID:        c.ID,
		Trigger:   string(c.Trigger),
		Prompt:    c.Prompt,
		Reply:     c.Text,
		StartedAt: c.StartedAt,
		Duration:  c.Duration,
	}
	for _, o := range c.Outcomes {
		rec.ToolCalls = append(rec.ToolCalls, outcomeRecord(o))
	}
	if c.Fallback != nil {
		fb := outcomeRecord(*c.Fallback)
		rec.Fallback = &fb
	}
	if c.Err != nil {
		rec.ErrorCode = domain.ErrorCodeOf(c.Err)
		rec.Error = c.Err.Error()
	}
	return rec
}

func outcomeRecord(o domain.ToolOutcome) domain.ToolCallRecord {
	r := domain.ToolCallRecord{Name: o.Call.Name, OK: o.OK()}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

// Agent wires the scheduler, transcript, memory, model client and executor
// together. At most one consultation is in flight at any time; requests
// arriving while one is outstanding are dropped.
type Agent struct {
	deps      AgentDeps
	cfg       AgentConfig
	conv      *Conversation
	memory    *ShortTermMemory
	scheduler *Scheduler
	inflight  *semaphore.Weighted
	logger    *slog.Logger

	// Background consultations: running counts them, closing refuses new ones.
	asyncMu   sync.Mutex
	asyncIdle *sync.Cond
	running   int
	closing   bool
}

// NewAgent validates deps and creates an agent. The fallback tool must be
// present in the catalog.
func NewAgent(deps AgentDeps) (*Agent, error) {
	switch {
	case deps.Model == nil:
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput, "model client is required")
	case deps.Tools == nil:
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput, "tool catalog is required")
	case deps.Executor == nil:
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput, "tool executor is required")
	case deps.Actor == nil:
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput, "actor is required")
	}
	if deps.Chat == nil {
		deps.Chat = nopChat{}
	}
	if deps.Vitals == nil {
		deps.Vitals = domain.NewVitals()
	}
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg := withDefaults(deps.Config)
	if _, err := deps.Tools.Lookup(cfg.FallbackTool); err != nil {
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput,
			fmt.Sprintf("fallback tool %q is not registered", cfg.FallbackTool))
	}

	energy, mood := deps.Vitals.Snapshot()
	a := &Agent{
		deps:      deps,
		cfg:       cfg,
		conv:      NewConversation(BuildSystemPrompt(cfg.Persona, energy, mood, nil), cfg.MaxTranscriptMessages),
		memory:    NewShortTermMemory(cfg.MemoryCapacity),
		scheduler: NewScheduler(cfg.IdleThreshold, cfg.DecisionCooldown, deps.Clock.Now()),
		inflight:  semaphore.NewWeighted(1),
		logger:    deps.Logger,
	}
	a.asyncIdle = sync.NewCond(&a.asyncMu)
	return a, nil
}

func withDefaults(cfg AgentConfig) AgentConfig {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FallbackTool == "" {
		cfg.FallbackTool = defaultFallbackTool
	}
	if cfg.MaxTranscriptMessages <= 0 {
		cfg.MaxTranscriptMessages = defaultMaxTranscript
	}
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = defaultMemoryCapacity
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = defaultIdleThreshold
	}
	if cfg.DecisionCooldown <= 0 {
		cfg.DecisionCooldown = defaultDecisionCooldown
	}
	if cfg.IdlePrompt == "" {
		cfg.IdlePrompt = defaultIdlePrompt
	}
	return cfg
}

// HandleUserMessage consults the model about a direct user message,
// bypassing the idle gate. It blocks until the exchange finishes and
// returns ErrBusy if another consultation is in flight.
func (a *Agent) HandleUserMessage(ctx context.Context, text string) (*Consultation, error) {
	text, err := normalizeUserText(text)
	if err != nil {
		return nil, err
	}
	if !a.inflight.TryAcquire(1) {
		a.logger.Debug("user message dropped, consultation in flight")
		return nil, domain.NewDomainError("Agent.HandleUserMessage", domain.ErrBusy, "")
	}
	defer a.inflight.Release(1)
	return a.consult(ctx, TriggerUser, text, a.deps.Clock.Now()), nil
}

// HandleUserMessageAsync is HandleUserMessage without blocking the caller.
// The exchange runs on a background goroutine; Wait joins it.
func (a *Agent) HandleUserMessageAsync(ctx context.Context, text string) error {
	text, err := normalizeUserText(text)
	if err != nil {
		return err
	}
	if !a.inflight.TryAcquire(1) {
		a.logger.Debug("user message dropped, consultation in flight")
		return domain.NewDomainError("Agent.HandleUserMessageAsync", domain.ErrBusy, "")
	}
	if !a.goConsult(ctx, TriggerUser, text, a.deps.Clock.Now()) {
		return domain.NewDomainError("Agent.HandleUserMessageAsync", domain.ErrCanceled, "agent is shutting down")
	}
	return nil
}

// Tick consults the model autonomously if the idle gate is open at now.
// now is also the time base for the actions the consultation records.
// It returns nil when nothing fired, including when a consultation is
// already in flight.
func (a *Agent) Tick(ctx context.Context, now time.Time) *Consultation {
	if !a.fire(now) {
		return nil
	}
	defer a.inflight.Release(1)
	return a.consult(ctx, TriggerIdle, a.cfg.IdlePrompt, now)
}

// TickAsync is Tick without blocking the caller. It reports whether an
// autonomous consultation was started.
func (a *Agent) TickAsync(ctx context.Context, now time.Time) bool {
	if !a.fire(now) {
		return false
	}
	return a.goConsult(ctx, TriggerIdle, a.cfg.IdlePrompt, now)
}

// fire checks the idle gate and, if open, takes the in-flight slot and
// records the decision. The caller owns the slot when fire returns true.
func (a *Agent) fire(now time.Time) bool {
	if !a.scheduler.ShouldFire(now, a.deps.Actor.IsIdle()) {
		return false
	}
	if !a.inflight.TryAcquire(1) {
		a.logger.Debug("autonomous decision dropped, consultation in flight")
		return false
	}
	a.scheduler.MarkDecision(now)
	return true
}

// goConsult runs a consultation on a background goroutine. The caller holds
// the in-flight slot. After Shutdown the slot is released and nothing runs.
func (a *Agent) goConsult(ctx context.Context, trigger Trigger, prompt string, now time.Time) bool {
	a.asyncMu.Lock()
	if a.closing {
		a.asyncMu.Unlock()
		a.inflight.Release(1)
		a.logger.Debug("consultation refused, agent shutting down", "trigger", trigger)
		return false
	}
	a.running++
	a.asyncMu.Unlock()

	go func() {
		defer a.asyncDone()
		defer a.inflight.Release(1)
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("consultation panicked", "trigger", trigger, "panic", rec)
			}
		}()
		a.consult(ctx, trigger, prompt, now)
	}()
	return true
}

func (a *Agent) asyncDone() {
	a.asyncMu.Lock()
	a.running--
	if a.running == 0 {
		a.asyncIdle.Broadcast()
	}
	a.asyncMu.Unlock()
}

// Wait blocks until no background consultation is running. It may be
// called concurrently with new async requests.
func (a *Agent) Wait() {
	a.asyncMu.Lock()
	for a.running > 0 {
		a.asyncIdle.Wait()
	}
	a.asyncMu.Unlock()
}

// Shutdown refuses further async requests and waits for running ones.
func (a *Agent) Shutdown() {
	a.asyncMu.Lock()
	a.closing = true
	a.asyncMu.Unlock()
	a.Wait()
}

// Busy reports whether a consultation is in flight.
func (a *Agent) Busy() bool {
	if a.inflight.TryAcquire(1) {
		a.inflight.Release(1)
		return false
	}
	return true
}

// Transcript returns a copy of the protocol transcript.
func (a *Agent) Transcript() []domain.Message { return a.conv.Snapshot() }

// Memories returns the short-term memory entries, oldest first.
func (a *Agent) Memories() []string { return a.memory.Items() }

// SchedulerState returns the scheduler's timers.
func (a *Agent) SchedulerState() SchedulerState { return a.scheduler.State() }

// Reset clears the transcript back to its system message and forgets
// short-term memories.
func (a *Agent) Reset() {
	a.conv.Clear()
	a.memory.Clear()
}

// consult runs one exchange started at the given time. The caller must
// hold the in-flight slot.
func (a *Agent) consult(ctx context.Context, trigger Trigger, prompt string, started time.Time) *Consultation {
	begin := time.Now()
	// Actions are stamped on the same time base as started.
	actedAt := func() time.Time { return started.Add(time.Since(begin)) }
	c := &Consultation{
		ID:        generateULID(started),
		Trigger:   trigger,
		Prompt:    prompt,
		StartedAt: started,
	}
	ctx, span := tracer.StartSpan(ctx, "agent.consult",
		trace.WithAttributes(
			tracer.StringAttr("consultation.id", c.ID),
			tracer.StringAttr("consultation.trigger", string(trigger)),
		),
	)
	defer func() {
		c.Duration = time.Since(begin)
		span.SetAttributes(
			tracer.IntAttr("consultation.tool_calls", len(c.Outcomes)),
			tracer.BoolAttr("consultation.fallback", c.Fallback != nil),
		)
		tracer.Finish(span, c.Err)
		a.journal(ctx, c)
	}()

	log := a.logger.With("consultation", c.ID, "trigger", trigger)
	log.Info("consultation started")

	if trigger == TriggerUser {
		a.memory.Push("User said: " + prompt)
	}

	energy, mood := a.deps.Vitals.Snapshot()
	system := BuildSystemPrompt(a.cfg.Persona, energy, mood, a.memory.Recent(promptMemories))
	pending := domain.Message{Role: domain.RoleUser, Content: prompt, Timestamp: started}
	transcript := a.conv.Compose(system, pending)

	if a.cfg.ThinkingPlaceholder != "" {
		a.deps.Chat.Post(a.cfg.ThinkingPlaceholder)
	}
	completion, err := a.deps.Model.Complete(ctx, transcript, a.deps.Tools.Catalog(), a.cfg.Timeout)
	if a.cfg.ThinkingPlaceholder != "" {
		a.deps.Chat.RetractLast()
	}

	if err != nil {
		c.Err = err
		a.handleModelFailure(ctx, log, c, actedAt)
		return c
	}

	c.Text = completion.Text
	a.conv.Commit(system, pending, domain.Message{Role: domain.RoleAssistant, Content: completion.Text})
	if completion.HasText() {
		a.deps.Chat.Post(replyPrefix + completion.Text)
	}

	c.Outcomes = a.deps.Executor.Execute(ctx, completion.ToolCalls)
	for _, o := range c.Outcomes {
		if o.OK() {
			a.recordAction(o.Call.Name, actedAt())
		}
	}

	log.Info("consultation completed",
		"model", completion.Model,
		"has_text", completion.HasText(),
		"tool_calls", len(c.Outcomes),
		"failed_calls", countFailed(c.Outcomes),
	)
	return c
}

// handleModelFailure runs the fallback tool and posts a diagnostic.
// Cancellation by the host is not a model failure and gets neither.
func (a *Agent) handleModelFailure(ctx context.Context, log *slog.Logger, c *Consultation, actedAt func() time.Time) {
	if errors.Is(c.Err, domain.ErrCanceled) || errors.Is(ctx.Err(), context.Canceled) {
		log.Debug("consultation canceled", "error", c.Err)
		return
	}

	log.Warn("model failure, falling back",
		"code", domain.ErrorCodeOf(c.Err),
		"error", c.Err,
		"fallback", a.cfg.FallbackTool,
	)
	a.deps.Chat.Post(errorPrefix + c.Err.Error())

	outcomes := a.deps.Executor.Execute(ctx, []domain.ToolCall{{ID: "fallback", Name: a.cfg.FallbackTool}})
	if len(outcomes) == 0 {
		return
	}
	c.Fallback = &outcomes[0]
	if c.Fallback.OK() {
		a.recordAction(a.cfg.FallbackTool, actedAt())
	}
}

func (a *Agent) journal(ctx context.Context, c *Consultation) {
	if a.deps.Journal == nil {
		return
	}
	// Shutdown cancels ctx; the record of the interrupted exchange is still kept.
	if err := a.deps.Journal.Record(context.WithoutCancel(ctx), c.Record()); err != nil {
		a.logger.Warn("journal record failed", "consultation", c.ID, "error", err)
	}
}

func (a *Agent) recordAction(tool string, at time.Time) {
	a.memory.Push("Did: " + tool)
	a.scheduler.MarkAction(at)
}

func normalizeUserText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewDomainError("Agent.HandleUserMessage", domain.ErrInvalidInput, "message is empty")
	}
	return text, nil
}

func countFailed(outcomes []domain.ToolOutcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// generateULID stays unique for consultations started in the same millisecond.
func generateULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// nopChat discards chat output.
type nopChat struct{}

func (nopChat) Post(string)  {}
func (nopChat) RetractLast() {}
