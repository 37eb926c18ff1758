package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket/wsjson"

	"wildrose/internal/adapter/chatlog"
	"wildrose/internal/domain"
)

type fakePet struct {
	mu       sync.Mutex
	messages []string
	resets   int
	err      error
}

func (p *fakePet) HandleUserMessageAsync(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, text)
	return nil
}

func (p *fakePet) Reset() {
	p.mu.Lock()
	p.resets++
	p.mu.Unlock()
}

func (p *fakePet) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

func (p *fakePet) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.ConsultationRecord
	limit   int
}

func (j *fakeJournal) Record(context.Context, domain.ConsultationRecord) error { return nil }

func (j *fakeJournal) Limit() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.limit
}

func (j *fakeJournal) Recent(_ context.Context, n int) ([]domain.ConsultationRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.limit = n
	if n < len(j.records) {
		return j.records[:n], nil
	}
	return j.records, nil
}

func testStatus() PetStatus {
	return PetStatus{Name: "WhiteCar", State: "idle", Energy: 0.9, Mood: "happy", Memories: []string{"Did: purr"}, TranscriptMessages: 3}
}

func startPetServer(t *testing.T, pet Pet, j domain.Journal) *Server {
	t.Helper()
	srv := newTestServer()
	RegisterPetHandlers(context.Background(), srv, PetHandlerDeps{Pet: pet, Status: testStatus, Journal: j})
	return startTestServer(t, srv)
}

func TestPetMessage(t *testing.T) {
	pet := &fakePet{}
	srv := startPetServer(t, pet, nil)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodMessage, `{"text":"hello cat"}`)
	if resp.Error != "" {
		t.Fatalf("error = %q", resp.Error)
	}
	if string(resp.Payload) != `{"accepted":true}` {
		t.Errorf("payload = %s", resp.Payload)
	}
	if msgs := pet.Messages(); len(msgs) != 1 || msgs[0] != "hello cat" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestPetMessageBusy(t *testing.T) {
	pet := &fakePet{err: domain.NewDomainError("Agent.HandleUserMessageAsync", domain.ErrBusy, "")}
	srv := startPetServer(t, pet, nil)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodMessage, `{"text":"hello"}`)
	if resp.Code != string(domain.CodeBusy) {
		t.Errorf("code = %q, want BUSY", resp.Code)
	}
}

func TestPetMessageBadPayload(t *testing.T) {
	srv := startPetServer(t, &fakePet{}, nil)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodMessage, `{"text":42}`)
	if resp.Code != string(domain.CodeInvalidInput) {
		t.Errorf("code = %q, want INVALID_INPUT", resp.Code)
	}
}

func TestPetStatusAndReset(t *testing.T) {
	pet := &fakePet{}
	srv := startPetServer(t, pet, nil)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodStatus, "")
	var status PetStatus
	if err := json.Unmarshal(resp.Payload, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Name != "WhiteCar" || status.Mood != "happy" || status.TranscriptMessages != 3 {
		t.Errorf("status = %+v", status)
	}

	resp = call(t, ws, 2, MethodReset, "")
	if resp.Error != "" || pet.Resets() != 1 {
		t.Errorf("reset: error=%q resets=%d", resp.Error, pet.Resets())
	}
}

func TestPetHistory(t *testing.T) {
	start := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	j := &fakeJournal{records: []domain.ConsultationRecord{
		{ID: "b", Trigger: "idle", Prompt: "bored?", ErrorCode: domain.CodeTimeout,
			Fallback: &domain.ToolCallRecord{Name: "idle", OK: true}, StartedAt: start.Add(time.Minute)},
		{ID: "a", Trigger: "user", Prompt: "hi", Reply: "hello",
			ToolCalls: []domain.ToolCallRecord{{Name: "purr", OK: true}}, StartedAt: start, Duration: 1200 * time.Millisecond},
	}}
	srv := startPetServer(t, &fakePet{}, j)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodHistory, `{"limit":5}`)
	var entries []HistoryEntry
	if err := json.Unmarshal(resp.Payload, &entries); err != nil {
		t.Fatalf("unmarshal history: %v (error=%q)", err, resp.Error)
	}
	if j.Limit() != 5 {
		t.Errorf("limit = %d, want 5", j.Limit())
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].Fallback != "idle" || entries[0].ErrorCode != "TIMEOUT" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Reply != "hello" || len(entries[1].Tools) != 1 || entries[1].DurationMS != 1200 {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	call(t, ws, 2, MethodHistory, "")
	if j.Limit() != defaultHistoryLimit {
		t.Errorf("default limit = %d", j.Limit())
	}
}

func TestPetHistoryWithoutJournal(t *testing.T) {
	srv := startPetServer(t, &fakePet{}, nil)
	ws := dialWS(t, srv.BoundAddr(), "test-token")

	resp := call(t, ws, 1, MethodHistory, "")
	if resp.Code != string(domain.CodeInvalidInput) {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestStatusRoute(t *testing.T) {
	srv := startPetServer(t, &fakePet{}, nil)
	url := "http://" + srv.BoundAddr() + "/api/v1/status"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status PetStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != "idle" {
		t.Errorf("status = %+v", status)
	}

	resp2, err := http.Post(url+"?token=test-token", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", resp2.StatusCode)
	}
}

func TestBridgeChat(t *testing.T) {
	srv := startTestServer(t, newTestServer())
	chat := chatlog.New(10, nil)
	unsubscribe := BridgeChat(srv, chat)
	defer unsubscribe()

	ws := dialWS(t, srv.BoundAddr(), "test-token")
	waitForClients(t, srv, 1)

	chat.Post("[LLM thinking...]")
	chat.RetractLast()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var events []Frame
	for len(events) < 2 {
		var f Frame
		if err := wsjson.Read(ctx, ws, &f); err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, f)
	}
	if events[0].Event != EventChatPost || events[1].Event != EventChatRetract {
		t.Errorf("events = %s, %s", events[0].Event, events[1].Event)
	}
	var e chatlog.Event
	if err := json.Unmarshal(events[1].Payload, &e); err != nil || e.Text != "[LLM thinking...]" {
		t.Errorf("retract payload = %s (%v)", events[1].Payload, err)
	}
}
