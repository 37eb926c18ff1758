package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LLM       LLMConfig       `yaml:"llm"`
	Host      HostConfig      `yaml:"host"`
	Journal   JournalConfig   `yaml:"journal"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// AgentConfig holds settings for the agent composition root.
type AgentConfig struct {
	Name    string `yaml:"name"`
	Persona string `yaml:"persona"`
	// Timeout bounds a single model exchange.
	Timeout             time.Duration `yaml:"timeout"`
	ThinkingPlaceholder string        `yaml:"thinking_placeholder"` // empty = no placeholder
	FallbackTool        string        `yaml:"fallback_tool"`
	// MaxTranscriptMessages caps the non-system messages kept in the transcript.
	MaxTranscriptMessages int  `yaml:"max_transcript_messages"`
	MemoryCapacity        int  `yaml:"memory_capacity"`
	Async                 bool `yaml:"async"`
}

// SchedulerConfig holds autonomous-decision gating settings.
type SchedulerConfig struct {
	IdleThreshold    time.Duration `yaml:"idle_threshold"`
	DecisionCooldown time.Duration `yaml:"decision_cooldown"`
	IdlePrompt       string        `yaml:"idle_prompt"`
}

// LLMConfig holds settings for the remote model service.
type LLMConfig struct {
	Name           string               `yaml:"name"`
	BaseURL        string               `yaml:"base_url"`
	Model          string               `yaml:"model"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	ReasoningTag   string               `yaml:"reasoning_tag"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Pool           PoolConfig           `yaml:"pool"`
}

// CircuitBreakerConfig holds circuit breaker settings for the model client.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for the model client.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// HostConfig holds settings for the console host loop.
type HostConfig struct {
	FrameRate int  `yaml:"frame_rate"` // ticks per second
	EchoChat  bool `yaml:"echo_chat"`
	ChatLines int  `yaml:"chat_lines"`
}

// JournalConfig holds settings for the consultation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite database file
	// History is how many records the /history console command shows.
	History int `yaml:"history"`
}

// GatewayConfig holds settings for the remote WebSocket gateway.
type GatewayConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	Tokens  []TokenConfig `yaml:"tokens"`
	// RequestsPerMin and Burst bound HTTP requests per client IP.
	RequestsPerMin int `yaml:"requests_per_min"`
	Burst          int `yaml:"burst"`
}

// TokenConfig is one gateway access token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Name: "WhiteCar",
			Persona: "You are WhiteCar, a cute virtual cat. " +
				"You can move around, make sounds, and chat with the user. Be playful and cat-like!",
			Timeout:               5 * time.Second,
			ThinkingPlaceholder:   "[LLM thinking...]",
			FallbackTool:          "idle",
			MaxTranscriptMessages: 40,
			MemoryCapacity:        5,
			Async:                 true,
		},
		Scheduler: SchedulerConfig{
			IdleThreshold:    15 * time.Second,
			DecisionCooldown: 20 * time.Second,
			IdlePrompt:       "You've been idle for a while. What would you like to do?",
		},
		LLM: LLMConfig{
			Name:         "ollama",
			BaseURL:      "http://localhost:11434",
			Model:        "mistral:7b",
			ConnTimeout:  2 * time.Second,
			ReasoningTag: "think",
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 3,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Host: HostConfig{
			FrameRate: 30,
			EchoChat:  true,
			ChatLines: 12,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "wildrose.db",
			History: 5,
		},
		Gateway: GatewayConfig{
			Enabled:        false,
			Addr:           "127.0.0.1:8765",
			RequestsPerMin: 120,
			Burst:          20,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads configuration from a YAML file on top of Defaults.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		// Expand environment variables before parsing.
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps WILDROSE_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WILDROSE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("WILDROSE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("WILDROSE_AGENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Agent.Timeout = d
		}
	}
	if v := os.Getenv("WILDROSE_AGENT_ASYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Agent.Async = b
		}
	}
	if v := os.Getenv("WILDROSE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = v
	}
	if v := os.Getenv("WILDROSE_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Tokens = append(cfg.Gateway.Tokens, TokenConfig{Token: v, Name: "env"})
	}
	if v := os.Getenv("WILDROSE_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("WILDROSE_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("WILDROSE_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}
