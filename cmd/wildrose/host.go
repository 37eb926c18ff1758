package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wildrose/internal/adapter/console"
	"wildrose/internal/domain"
	"wildrose/internal/usecase"
)

type hostDeps struct {
	Agent     *usecase.Agent
	Actor     *console.Actor
	Vitals    *domain.Vitals
	Async     bool
	FrameRate int
	Journal   domain.Journal // optional
	History   int
	Out       io.Writer
	Logger    *slog.Logger
	Now       func() time.Time // optional, nil = time.Now
}

// host is the frame loop: it paces ticks to the agent and forwards
// console input as user messages.
type host struct {
	hostDeps
	limiter *rate.Limiter
}

func newHost(deps hostDeps) *host {
	if deps.FrameRate <= 0 {
		deps.FrameRate = 30
	}
	if deps.History <= 0 {
		deps.History = 5
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &host{
		hostDeps: deps,
		limiter:  rate.NewLimiter(rate.Limit(deps.FrameRate), 1),
	}
}

// run drives frames until ctx is done, the input ends or /quit is read.
// Outstanding consultations are joined before it returns.
func (h *host) run(ctx context.Context, in io.Reader) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.Agent.Wait()

	lines := make(chan string)
	go readLines(ctx, in, lines)

	for {
		if err := h.limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case line, ok := <-lines:
			if !ok || h.handleLine(ctx, line) {
				return
			}
		default:
		}

		h.tick(ctx)
	}
}

func (h *host) tick(ctx context.Context) {
	now := h.Now()
	if h.Async {
		h.Agent.TickAsync(ctx, now)
		return
	}
	h.Agent.Tick(ctx, now)
}

// handleLine processes one console line and reports whether to quit.
func (h *host) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/reset":
		h.Agent.Reset()
		fmt.Fprintln(h.Out, "(conversation cleared)")
		return false
	case "/status":
		h.printStatus()
		return false
	case "/history":
		h.printHistory(ctx)
		return false
	}

	var err error
	if h.Async {
		err = h.Agent.HandleUserMessageAsync(ctx, line)
	} else {
		_, err = h.Agent.HandleUserMessage(ctx, line)
	}
	switch {
	case errors.Is(err, domain.ErrBusy):
		fmt.Fprintln(h.Out, "(still thinking, message dropped)")
	case err != nil:
		h.Logger.Warn("user message rejected", "error", err)
	}
	return false
}

func (h *host) printStatus() {
	energy, mood := h.Vitals.Snapshot()
	fmt.Fprintf(h.Out, "state=%s energy=%.2f mood=%s busy=%t\n", h.Actor.State(), energy, mood, h.Agent.Busy())
	fmt.Fprintf(h.Out, "memories=%q\n", h.Agent.Memories())

	sched := h.Agent.SchedulerState()
	lastDecision := "never"
	if !sched.LastDecisionAt.IsZero() {
		lastDecision = sched.LastDecisionAt.Format(time.TimeOnly)
	}
	fmt.Fprintf(h.Out, "last_action=%s last_decision=%s idle_threshold=%s cooldown=%s\n",
		sched.LastActionAt.Format(time.TimeOnly), lastDecision, sched.IdleThreshold, sched.DecisionCooldown)
}

func (h *host) printHistory(ctx context.Context) {
	if h.Journal == nil {
		fmt.Fprintln(h.Out, "(journal disabled)")
		return
	}
	records, err := h.Journal.Recent(ctx, h.History)
	if err != nil {
		h.Logger.Warn("journal read failed", "error", err)
		return
	}
	for _, r := range records {
		var calls []string
		for _, c := range r.ToolCalls {
			calls = append(calls, c.Name)
		}
		status := "ok"
		if r.ErrorCode != "" {
			status = string(r.ErrorCode)
		}
		fmt.Fprintf(h.Out, "%s %-4s %-7s %5dms tools=%v reply=%q\n",
			r.StartedAt.Format(time.TimeOnly), r.Trigger, status, r.Duration.Milliseconds(), calls, r.Reply)
	}
}

// readLines forwards lines from in until EOF or ctx is done, then closes out.
func readLines(ctx context.Context, in io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
