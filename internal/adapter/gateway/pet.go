package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wildrose/internal/adapter/chatlog"
	"wildrose/internal/domain"
)

// RPC method and event names.
const (
	MethodMessage = "pet.message"
	MethodStatus  = "pet.status"
	MethodReset   = "pet.reset"
	MethodHistory = "pet.history"

	EventChatPost    = "chat.post"
	EventChatRetract = "chat.retract"
)

const defaultHistoryLimit = 10

// Pet is the agent surface exposed to remote clients.
type Pet interface {
	HandleUserMessageAsync(ctx context.Context, text string) error
	Reset()
}

// PetStatus is the snapshot returned by pet.status and GET /api/v1/status.
type PetStatus struct {
	Name               string   `json:"name"`
	State              string   `json:"state"`
	Energy             float64  `json:"energy"`
	Mood               string   `json:"mood"`
	Busy               bool     `json:"busy"`
	Memories           []string `json:"memories"`
	TranscriptMessages int      `json:"transcript_messages"`
}

// PetHandlerDeps holds dependencies for the pet RPC handlers.
type PetHandlerDeps struct {
	Pet     Pet
	Status  func() PetStatus
	Journal domain.Journal // can be nil
}

type messageParams struct {
	Text string `json:"text"`
}

type historyParams struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one journal record as returned by pet.history.
type HistoryEntry struct {
	ID         string   `json:"id"`
	Trigger    string   `json:"trigger"`
	Prompt     string   `json:"prompt"`
	Reply      string   `json:"reply,omitempty"`
	Tools      []string `json:"tools,omitempty"`
	Fallback   string   `json:"fallback,omitempty"`
	ErrorCode  string   `json:"error_code,omitempty"`
	StartedAt  string   `json:"started_at"`
	DurationMS int64    `json:"duration_ms"`
}

// RegisterPetHandlers registers the pet.* RPC methods and the HTTP status
// route. Consultations started by remote messages are bound to ctx, not to
// the client connection.
func RegisterPetHandlers(ctx context.Context, s *Server, deps PetHandlerDeps) {
	s.RegisterHandler(MethodMessage, func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var p messageParams
		if err := decodeParams(payload, &p); err != nil {
			return nil, domain.NewDomainError(MethodMessage, domain.ErrInvalidInput, err.Error())
		}
		if err := deps.Pet.HandleUserMessageAsync(ctx, p.Text); err != nil {
			return nil, err
		}
		s.logger.Info("remote message accepted", "client", client.Name)
		return json.Marshal(map[string]bool{"accepted": true})
	})

	s.RegisterHandler(MethodStatus, func(context.Context, *ClientInfo, json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(deps.Status())
	})

	s.RegisterHandler(MethodReset, func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		deps.Pet.Reset()
		s.logger.Info("conversation reset by remote client", "client", client.Name)
		return json.Marshal(map[string]bool{"ok": true})
	})

	s.RegisterHandler(MethodHistory, func(rpcCtx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		if deps.Journal == nil {
			return nil, domain.NewDomainError(MethodHistory, domain.ErrInvalidInput, "journal is disabled")
		}
		p := historyParams{Limit: defaultHistoryLimit}
		if err := decodeParams(payload, &p); err != nil {
			return nil, domain.NewDomainError(MethodHistory, domain.ErrInvalidInput, err.Error())
		}
		if p.Limit <= 0 {
			p.Limit = defaultHistoryLimit
		}
		records, err := deps.Journal.Recent(rpcCtx, p.Limit)
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		entries := make([]HistoryEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, historyEntry(r))
		}
		return json.Marshal(entries)
	})

	s.RegisterHTTPRoute("/api/v1/status", statusHandler(s, deps.Status))
}

func decodeParams(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	return json.Unmarshal(payload, v)
}

func historyEntry(r domain.ConsultationRecord) HistoryEntry {
	e := HistoryEntry{
		ID:         r.ID,
		Trigger:    r.Trigger,
		Prompt:     r.Prompt,
		Reply:      r.Reply,
		ErrorCode:  string(r.ErrorCode),
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, c := range r.ToolCalls {
		e.Tools = append(e.Tools, c.Name)
	}
	if r.Fallback != nil {
		e.Fallback = r.Fallback.Name
	}
	return e
}

// statusHandler returns an HTTP handler for GET /api/v1/status.
func statusHandler(s *Server, status func() PetStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := s.authenticateRequest(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			s.logger.Warn("gateway: status response write failed", "error", err)
		}
	}
}

// BridgeChat forwards chat log changes to connected clients as chat.post
// and chat.retract events.
func BridgeChat(s *Server, log *chatlog.Log) (unsubscribe func()) {
	return log.Subscribe(func(e chatlog.Event) {
		name := EventChatPost
		if e.Kind == chatlog.EventRetract {
			name = EventChatRetract
		}
		s.Broadcast(name, e)
	})
}
