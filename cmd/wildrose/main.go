package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wildrose/internal/adapter/chatlog"
	"wildrose/internal/adapter/console"
	"wildrose/internal/adapter/gateway"
	"wildrose/internal/adapter/journal"
	"wildrose/internal/adapter/llm"
	"wildrose/internal/adapter/tool"
	"wildrose/internal/domain"
	"wildrose/internal/infra/config"
	"wildrose/internal/infra/logger"
	"wildrose/internal/infra/middleware"
	"wildrose/internal/infra/tracer"
	"wildrose/internal/usecase"
)

const pingTimeout = 3 * time.Second

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`wildrose - a virtual pet driven by a local language model

USAGE:
    wildrose [FLAGS]

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONSOLE:
    Type a line and press enter to talk to the pet.
    /status            Show the pet's state, vitals and memories
    /reset             Forget the conversation so far
    /history           Show recent consultations (journal must be enabled)
    /quit              Exit (Ctrl-D and Ctrl-C also work)

CONFIGURATION:
    Config file: ./config.yaml (optional, defaults apply)
    Environment: WILDROSE_* variables override config`)
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Model client
	ollama := llm.NewOllamaClient(cfg.LLM, nil, logger.Component(log, "llm"))
	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	if err := ollama.Ping(pingCtx); err != nil {
		log.Warn("model service unreachable, continuing with fallback behavior", "base_url", cfg.LLM.BaseURL, "error", err)
	}
	pingCancel()

	var model domain.ModelClient = ollama
	if cfg.LLM.CircuitBreaker.Enabled {
		model = llm.NewCircuitBreakerClient(ollama, cfg.LLM.CircuitBreaker, logger.Component(log, "llm"))
	}

	// 4. Pet: actor, chat window, vitals and tools
	actor := console.NewActor(logger.Component(log, "actor"))
	var echo io.Writer
	if cfg.Host.EchoChat {
		echo = os.Stdout
	}
	chat := chatlog.New(cfg.Host.ChatLines, echo)
	vitals := domain.NewVitals()

	toolLog := logger.Component(log, "tool")
	registry := tool.NewRegistry(toolLog)
	registry.MustRegister(tool.PetTools(actor, vitals, chat, cfg.Agent.Name)...)

	// 5. Journal
	var journalStore domain.Journal
	if cfg.Journal.Enabled {
		store, err := journal.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer store.Close()
		journalStore = store
		log.Info("journal enabled", "path", cfg.Journal.Path)
	}

	// 6. Agent
	agent, err := usecase.NewAgent(usecase.AgentDeps{
		Model:    model,
		Tools:    registry,
		Executor: tool.NewExecutor(registry, toolLog),
		Actor:    actor,
		Chat:     chat,
		Vitals:   vitals,
		Journal:  journalStore,
		Logger:   logger.Component(log, "agent"),
		Config:   agentConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	log.Info("wildrose started",
		"pet", cfg.Agent.Name,
		"model", cfg.LLM.Model,
		"tools", registry.Len(),
		"async", cfg.Agent.Async,
		"frame_rate", cfg.Host.FrameRate,
	)

	// 7. Gateway
	gatewayDone := make(chan struct{})
	if cfg.Gateway.Enabled {
		srv := newGateway(ctx, cfg, agent, actor, vitals, chat, journalStore, logger.Component(log, "gateway"))
		go func() {
			defer close(gatewayDone)
			if err := srv.Start(ctx); err != nil {
				log.Error("gateway server error", "error", err)
			}
		}()
	} else {
		close(gatewayDone)
	}

	// 8. Host loop until signal, /quit or end of input
	h := newHost(hostDeps{
		Agent:     agent,
		Actor:     actor,
		Vitals:    vitals,
		Async:     cfg.Agent.Async,
		FrameRate: cfg.Host.FrameRate,
		Journal:   journalStore,
		History:   cfg.Journal.History,
		Out:       os.Stdout,
		Logger:    logger.Component(log, "host"),
	})
	h.run(ctx, os.Stdin)

	// Stop the gateway so no new remote consultations arrive, then join the
	// ones still running.
	cancel()
	<-gatewayDone
	agent.Shutdown()
	log.Info("wildrose stopped")
	return nil
}

func newGateway(ctx context.Context, cfg *config.Config, agent *usecase.Agent, actor *console.Actor,
	vitals *domain.Vitals, chat *chatlog.Log, j domain.Journal, log *slog.Logger) *gateway.Server {
	tokens := make([]gateway.TokenEntry, 0, len(cfg.Gateway.Tokens))
	for _, t := range cfg.Gateway.Tokens {
		tokens = append(tokens, gateway.TokenEntry{Token: t.Token, Name: t.Name})
	}
	srv := gateway.NewServer(gateway.NewStaticTokenAuth(tokens), cfg.Gateway.Addr, log)
	srv.Use(middleware.SecurityHeaders, middleware.RateLimit(ctx, cfg.Gateway.RequestsPerMin, cfg.Gateway.Burst))
	gateway.RegisterPetHandlers(ctx, srv, gateway.PetHandlerDeps{
		Pet:     agent,
		Status:  petStatus(cfg.Agent.Name, agent, actor, vitals),
		Journal: j,
	})
	gateway.BridgeChat(srv, chat)
	return srv
}

func petStatus(name string, agent *usecase.Agent, actor *console.Actor, vitals *domain.Vitals) func() gateway.PetStatus {
	return func() gateway.PetStatus {
		energy, mood := vitals.Snapshot()
		return gateway.PetStatus{
			Name:               name,
			State:              string(actor.State()),
			Energy:             energy,
			Mood:               mood,
			Busy:               agent.Busy(),
			Memories:           agent.Memories(),
			TranscriptMessages: len(agent.Transcript()),
		}
	}
}

func agentConfig(cfg *config.Config) usecase.AgentConfig {
	return usecase.AgentConfig{
		Persona:               cfg.Agent.Persona,
		Timeout:               cfg.Agent.Timeout,
		ThinkingPlaceholder:   cfg.Agent.ThinkingPlaceholder,
		FallbackTool:          cfg.Agent.FallbackTool,
		MaxTranscriptMessages: cfg.Agent.MaxTranscriptMessages,
		MemoryCapacity:        cfg.Agent.MemoryCapacity,
		IdleThreshold:         cfg.Scheduler.IdleThreshold,
		DecisionCooldown:      cfg.Scheduler.DecisionCooldown,
		IdlePrompt:            cfg.Scheduler.IdlePrompt,
	}
}

// configPath returns the config file path from --config flag, env, or default.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("WILDROSE_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
