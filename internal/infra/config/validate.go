package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAgent(cfg, ve)
	validateScheduler(cfg, ve)
	validateLLM(cfg, ve)
	validateHost(cfg, ve)
	validateJournal(cfg, ve)
	validateGateway(cfg, ve)
	validateObservability(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAgent(cfg *Config, ve *ValidationError) {
	if cfg.Agent.Name == "" {
		ve.Add("agent.name must not be empty")
	}
	if cfg.Agent.Persona == "" {
		ve.Add("agent.persona must not be empty")
	}
	if cfg.Agent.Timeout <= 0 {
		ve.Add("agent.timeout must be > 0")
	}
	if cfg.Agent.FallbackTool == "" {
		ve.Add("agent.fallback_tool must not be empty")
	}
	if cfg.Agent.MaxTranscriptMessages <= 0 {
		ve.Add("agent.max_transcript_messages must be > 0")
	}
	if cfg.Agent.MemoryCapacity <= 0 {
		ve.Add("agent.memory_capacity must be > 0")
	}
}

func validateScheduler(cfg *Config, ve *ValidationError) {
	if cfg.Scheduler.IdleThreshold <= 0 {
		ve.Add("scheduler.idle_threshold must be > 0")
	}
	if cfg.Scheduler.DecisionCooldown <= 0 {
		ve.Add("scheduler.decision_cooldown must be > 0")
	}
	if strings.TrimSpace(cfg.Scheduler.IdlePrompt) == "" {
		ve.Add("scheduler.idle_prompt must not be empty")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	if cfg.LLM.Model == "" {
		ve.Add("llm.model must not be empty")
	}
	if cfg.LLM.BaseURL == "" {
		ve.Add("llm.base_url must not be empty")
	} else if u, err := url.Parse(cfg.LLM.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("llm.base_url %q must be an absolute http(s) URL", cfg.LLM.BaseURL)
	}
	if cfg.LLM.ConnTimeout < 0 {
		ve.Add("llm.conn_timeout must be >= 0")
	}
	if cfg.LLM.CircuitBreaker.Enabled && cfg.LLM.CircuitBreaker.Timeout < 0 {
		ve.Add("llm.circuit_breaker.timeout must be >= 0")
	}
}

func validateHost(cfg *Config, ve *ValidationError) {
	if cfg.Host.FrameRate <= 0 || cfg.Host.FrameRate > 240 {
		ve.Add("host.frame_rate must be 1-240")
	}
	if cfg.Host.ChatLines <= 0 {
		ve.Add("host.chat_lines must be > 0")
	}
}

func validateJournal(cfg *Config, ve *ValidationError) {
	if !cfg.Journal.Enabled {
		return
	}
	if strings.TrimSpace(cfg.Journal.Path) == "" {
		ve.Add("journal.path must not be empty when journal is enabled")
	}
	if cfg.Journal.History < 0 {
		ve.Add("journal.history must be >= 0")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Gateway.Addr); err != nil {
		ve.Add("gateway.addr %q must be host:port", cfg.Gateway.Addr)
	}
	if len(cfg.Gateway.Tokens) == 0 {
		ve.Add("gateway.tokens must not be empty when gateway is enabled")
	}
	if cfg.Gateway.RequestsPerMin <= 0 || cfg.Gateway.Burst <= 0 {
		ve.Add("gateway.requests_per_min and gateway.burst must be > 0")
	}
	for i, tok := range cfg.Gateway.Tokens {
		if tok.Token == "" {
			ve.Add("gateway.tokens[%d].token must not be empty", i)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validExporters = map[string]bool{
	"": true, "noop": true, "stdout": true,
}

func validateObservability(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if f := strings.ToLower(cfg.Logger.Format); f != "text" && f != "json" && f != "" {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}
