package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"wildrose/internal/domain"
	"wildrose/internal/infra/config"
	"wildrose/internal/infra/tracer"
)

// Compile-time interface assertion.
var _ domain.ModelClient = (*OllamaClient)(nil)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaClient speaks the native Ollama /api/chat protocol with
// function calling. Each Complete issues exactly one request.
type OllamaClient struct {
	name      string
	model     string
	baseURL   string
	client    *http.Client
	reasoning *ReasoningFilter
	logger    *slog.Logger
}

// NewOllamaClient creates a client from cfg. A nil httpClient gets a
// pooled client built from cfg.
func NewOllamaClient(cfg config.LLMConfig, httpClient *http.Client, logger *slog.Logger) *OllamaClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "ollama"
	}
	return &OllamaClient{
		name:      name,
		model:     cfg.Model,
		baseURL:   baseURL,
		client:    httpClient,
		reasoning: NewReasoningFilter(cfg.ReasoningTag),
		logger:    logger,
	}
}

// Ollama wire types.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type ollamaResponse struct {
	Model   string              `json:"model"`
	Message *ollamaReplyMessage `json:"message"`
	Done    bool                `json:"done"`
	Error   string              `json:"error,omitempty"`
}

type ollamaReplyMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Thinking  string           `json:"thinking,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	ID       string             `json:"id,omitempty"`
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Name implements domain.ModelClient.
func (c *OllamaClient) Name() string { return c.name }

// Model returns the configured model name.
func (c *OllamaClient) Model() string { return c.model }

// Complete implements domain.ModelClient.
func (c *OllamaClient) Complete(ctx context.Context, transcript []domain.Message, catalog []domain.ToolSchema, timeout time.Duration) (*domain.Completion, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.complete",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", c.name),
			tracer.StringAttr("llm.model", c.model),
			tracer.IntAttr("llm.messages", len(transcript)),
			tracer.IntAttr("llm.tools", len(catalog)),
		),
	)
	completion, err := c.complete(ctx, transcript, catalog, timeout)
	if completion != nil {
		span.SetAttributes(tracer.IntAttr("llm.tool_calls", len(completion.ToolCalls)))
	}
	tracer.Finish(span, err)
	return completion, err
}

func (c *OllamaClient) complete(ctx context.Context, transcript []domain.Message, catalog []domain.ToolSchema, timeout time.Duration) (*domain.Completion, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(c.buildRequest(transcript, catalog))
	if err != nil {
		return nil, domain.NewDomainError("Ollama.Complete", domain.ErrService, fmt.Sprintf("marshal request: %v", err))
	}

	start := time.Now()
	respBody, err := doJSONRequest(ctx, c.client, http.MethodPost, c.baseURL+"/api/chat", body)
	if err != nil {
		return nil, domain.WrapOp("Ollama.Complete", err)
	}

	completion, err := c.parseResponse(respBody)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("llm chat completed",
		"provider", c.name,
		"model", completion.Model,
		"tool_calls", len(completion.ToolCalls),
		"duration", time.Since(start),
	)
	return completion, nil
}

func (c *OllamaClient) buildRequest(transcript []domain.Message, catalog []domain.ToolSchema) ollamaRequest {
	req := ollamaRequest{
		Model:    c.model,
		Messages: make([]ollamaMessage, 0, len(transcript)),
		Stream:   false,
	}
	for _, m := range transcript {
		req.Messages = append(req.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	for _, s := range catalog {
		params := s.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		req.Tools = append(req.Tools, ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  params,
			},
		})
	}
	return req
}

func (c *OllamaClient) parseResponse(body []byte) (*domain.Completion, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewDomainError("Ollama.Complete", domain.ErrService, fmt.Sprintf("unexpected response shape: %v", err))
	}
	if resp.Message == nil {
		detail := "response has no message field"
		if resp.Error != "" {
			detail += ": " + resp.Error
		}
		return nil, domain.NewDomainError("Ollama.Complete", domain.ErrService, detail)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	completion := &domain.Completion{
		Model: model,
		Text:  c.reasoning.Strip(resp.Message.Content),
	}
	for i, tc := range resp.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		completion.ToolCalls = append(completion.ToolCalls, domain.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: normalizeArguments(tc.Function.Arguments),
		})
	}
	return completion, nil
}

// normalizeArguments rewrites string-encoded arguments as the JSON object
// they encode. Arguments that cannot be decoded are passed through so the
// executor can report them per call.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	args, err := domain.ParseArguments(raw)
	if err != nil {
		return raw
	}
	normalized, err := json.Marshal(args)
	if err != nil {
		return raw
	}
	return normalized
}

// Ping checks that the Ollama server is reachable by listing local models.
func (c *OllamaClient) Ping(ctx context.Context) error {
	body, err := doJSONRequest(ctx, c.client, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return domain.WrapOp("Ollama.Ping", err)
	}
	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.NewDomainError("Ollama.Ping", domain.ErrService, fmt.Sprintf("unmarshal response: %v", err))
	}
	for _, m := range resp.Models {
		if m.Name == c.model {
			return nil
		}
	}
	c.logger.Warn("model not found on ollama server", "model", c.model, "available", len(resp.Models))
	return nil
}
