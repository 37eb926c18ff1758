package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultsPass(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateAgentTimeoutZero(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.Timeout = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "agent.timeout must be > 0")
}

func TestValidateAgentTranscriptBoundRequired(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.MaxTranscriptMessages = 0
	cfg.Agent.MemoryCapacity = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "agent.max_transcript_messages must be > 0")
	assertContains(t, err.Error(), "agent.memory_capacity must be > 0")
}

func TestValidateAgentFallbackToolEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.FallbackTool = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "agent.fallback_tool must not be empty")
}

func TestValidateSchedulerDurations(t *testing.T) {
	cfg := Defaults()
	cfg.Scheduler.IdleThreshold = 0
	cfg.Scheduler.DecisionCooldown = -time.Second
	cfg.Scheduler.IdlePrompt = "   "
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "scheduler.idle_threshold must be > 0")
	assertContains(t, err.Error(), "scheduler.decision_cooldown must be > 0")
	assertContains(t, err.Error(), "scheduler.idle_prompt must not be empty")
}

func TestValidateLLMBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr string
	}{
		{"empty", "", "llm.base_url must not be empty"},
		{"no scheme", "localhost:11434", "must be an absolute http(s) URL"},
		{"ftp", "ftp://localhost", "must be an absolute http(s) URL"},
		{"valid", "http://127.0.0.1:11434", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.LLM.BaseURL = tt.baseURL
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateLLMModelEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Model = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "llm.model must not be empty")
}

func TestValidateHostFrameRate(t *testing.T) {
	cfg := Defaults()
	cfg.Host.FrameRate = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "host.frame_rate must be 1-240")
}

func TestValidateJournal(t *testing.T) {
	cfg := Defaults()
	cfg.Journal.Path = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled journal should not be validated: %v", err)
	}

	cfg.Journal.Enabled = true
	cfg.Journal.History = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "journal.path must not be empty when journal is enabled")
	assertContains(t, err.Error(), "journal.history must be >= 0")
}

func TestValidateGateway(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Enabled = true
	cfg.Gateway.Addr = "8765"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `gateway.addr "8765" must be host:port`)
	assertContains(t, err.Error(), "gateway.tokens must not be empty when gateway is enabled")

	cfg.Gateway.Addr = "127.0.0.1:8765"
	cfg.Gateway.Tokens = []TokenConfig{{Token: "secret", Name: "phone"}, {Name: "blank"}}
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "gateway.tokens[1].token must not be empty")

	cfg.Gateway.Tokens = cfg.Gateway.Tokens[:1]
	cfg.Gateway.Burst = 0
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "gateway.requests_per_min and gateway.burst must be > 0")

	cfg.Gateway.Burst = 5
	if err := Validate(cfg); err != nil {
		t.Errorf("valid gateway config rejected: %v", err)
	}
}

func TestValidateObservability(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "loud"
	cfg.Logger.Format = "xml"
	cfg.Tracer.Exporter = "jaeger"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `logger.level "loud" is invalid`)
	assertContains(t, err.Error(), `logger.format "xml" is invalid`)
	assertContains(t, err.Error(), `tracer.exporter "jaeger" is invalid`)
}

func TestValidationErrorAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.Name = ""
	cfg.LLM.Model = ""
	err := Validate(cfg)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2: %v", len(ve.Errors), ve.Errors)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
