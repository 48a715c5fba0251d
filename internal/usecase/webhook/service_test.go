package webhook

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/internal/adapter/repository"
	"github.com/johnquangdev/call-assistant/internal/domain/entities"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/events"
)

type stubSummarizer struct {
	summary string
	err     error
	called  chan string
}

func (s *stubSummarizer) Configured() bool { return true }

func (s *stubSummarizer) GenerateSummary(ctx context.Context, transcript string) (string, error) {
	select {
	case s.called <- transcript:
	default:
	}
	return s.summary, s.err
}

func newTestService(t *testing.T, summarizer Summarizer) (Service, *repository.FileCallRepository, *events.Hub) {
	t.Helper()
	repo, err := repository.NewFileCallRepository(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	hub := events.NewHub(zap.NewNop())
	return NewService(repo, hub, summarizer, zap.NewNop()), repo, hub
}

func createCall(t *testing.T, repo *repository.FileCallRepository, conversationID string) *entities.Call {
	t.Helper()
	call := entities.NewCall("+15551234567", "remind about dentist", "Alex", "jordan")
	if err := repo.Create(context.Background(), call); err != nil {
		t.Fatalf("failed to create call: %v", err)
	}
	if conversationID != "" {
		var err error
		call, err = repo.Update(context.Background(), call.ID, func(record *entities.Call) error {
			record.ConversationID = &conversationID
			return nil
		})
		if err != nil {
			t.Fatalf("failed to attach conversation id: %v", err)
		}
	}
	return call
}

func TestProcessProviderEvent_InvalidJSON(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.ProcessProviderEvent(context.Background(), []byte("not json"))
	var appErr errors.AppError
	if !stdErrors.As(err, &appErr) || appErr.Code != errors.ErrorCode_INVALID_PAYLOAD {
		t.Fatalf("expected invalid payload error, got %v", err)
	}
}

func TestProcessProviderEvent_CorrelatesByConversationID(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	target := createCall(t, repo, "abc123")
	other := createCall(t, repo, "xyz789")

	payload := []byte(`{
		"type": "call.ended",
		"data": {
			"conversation_id": "abc123",
			"status": "completed",
			"transcript": [{"text": "hello"}, {"text": "bye"}],
			"recording_url": "https://recordings.example.com/abc123.mp3"
		}
	}`)

	result, err := svc.ProcessProviderEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.CallID != target.ID {
		t.Fatalf("expected match on %s, got %+v", target.ID, result)
	}

	updated, err := repo.Get(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("failed to read updated call: %v", err)
	}
	if updated.Status != entities.CallStatusFinished {
		t.Fatalf("expected finished status, got %q", updated.Status)
	}
	if updated.Transcript == nil || *updated.Transcript != "hello\nbye" {
		t.Fatalf("expected normalized transcript, got %v", updated.Transcript)
	}
	if updated.RecordingURL == nil || *updated.RecordingURL != "https://recordings.example.com/abc123.mp3" {
		t.Fatalf("expected recording url, got %v", updated.RecordingURL)
	}
	if updated.FinishedAt == nil {
		t.Fatal("expected finishedAt to be stamped")
	}

	untouched, err := repo.Get(context.Background(), other.ID)
	if err != nil {
		t.Fatalf("failed to read other call: %v", err)
	}
	if untouched.Status != entities.CallStatusOngoing || untouched.Transcript != nil {
		t.Fatalf("expected other call untouched, got %+v", untouched)
	}
}

func TestProcessProviderEvent_FinishedAtSetOnce(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	call := createCall(t, repo, "abc123")

	first := []byte(`{"type":"call.ended","data":{"conversation_id":"abc123","status":"completed"}}`)
	if _, err := svc.ProcessProviderEvent(context.Background(), first); err != nil {
		t.Fatalf("first webhook failed: %v", err)
	}
	afterFirst, _ := repo.Get(context.Background(), call.ID)
	if afterFirst.FinishedAt == nil {
		t.Fatal("expected finishedAt after first terminal webhook")
	}

	time.Sleep(10 * time.Millisecond)
	second := []byte(`{"type":"call.ended","data":{"conversation_id":"abc123","status":"done"}}`)
	if _, err := svc.ProcessProviderEvent(context.Background(), second); err != nil {
		t.Fatalf("second webhook failed: %v", err)
	}
	afterSecond, _ := repo.Get(context.Background(), call.ID)
	if !afterSecond.FinishedAt.Equal(*afterFirst.FinishedAt) {
		t.Fatalf("finishedAt changed on retry: %v vs %v", afterSecond.FinishedAt, afterFirst.FinishedAt)
	}
}

func TestProcessProviderEvent_UnmatchedIsAcknowledged(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	call := createCall(t, repo, "abc123")

	payload := []byte(`{"type":"call.ended","data":{"conversation_id":"unknown-id","status":"completed"}}`)
	result, err := svc.ProcessProviderEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("expected nil error for unmatched event, got %v", err)
	}
	if result.Matched {
		t.Fatalf("expected no match, got %+v", result)
	}

	unchanged, _ := repo.Get(context.Background(), call.ID)
	if unchanged.Status != entities.CallStatusOngoing {
		t.Fatalf("expected record untouched, got status %q", unchanged.Status)
	}
}

func TestProcessProviderEvent_TokenTakesPrecedence(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	byConversation := createCall(t, repo, "abc123")
	byToken := createCall(t, repo, "")

	// The echoed client token names one record, the conversation id another.
	payload := []byte(fmt.Sprintf(`{
		"type": "call.ended",
		"data": {
			"conversation_id": "abc123",
			"status": "voicemail",
			"dynamic_variables": {"call_id": %q}
		}
	}`, byToken.ID))

	result, err := svc.ProcessProviderEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CallID != byToken.ID {
		t.Fatalf("expected token match %s, got %s", byToken.ID, result.CallID)
	}

	other, _ := repo.Get(context.Background(), byConversation.ID)
	if other.Status != entities.CallStatusOngoing {
		t.Fatalf("expected conversation-id record untouched, got %q", other.Status)
	}
}

func TestProcessProviderEvent_ConversationIDConflictIgnored(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	call := createCall(t, repo, "abc123")

	payload := []byte(fmt.Sprintf(`{
		"type": "call.ended",
		"data": {"conversation_id": "different-id", "status": "done", "call_id": %q}
	}`, call.ID))

	if _, err := svc.ProcessProviderEvent(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := repo.Get(context.Background(), call.ID)
	if updated.ConversationID == nil || *updated.ConversationID != "abc123" {
		t.Fatalf("expected stored conversation id preserved, got %v", updated.ConversationID)
	}
	if updated.Status != entities.CallStatusFinished {
		t.Fatalf("expected rest of the event still applied, got %q", updated.Status)
	}
}

func TestProcessProviderEvent_FlatPayload(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	call := createCall(t, repo, "abc123")

	payload := []byte(`{"type":"call.ended","conversation_id":"abc123","status":"ended"}`)
	result, err := svc.ProcessProviderEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.CallID != call.ID {
		t.Fatalf("expected flat payload to correlate, got %+v", result)
	}
}

func TestProcessProviderEvent_UnknownStatusStoredVerbatim(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	call := createCall(t, repo, "abc123")

	payload := []byte(`{"type":"call.status","data":{"conversation_id":"abc123","status":"voicemail_left"}}`)
	if _, err := svc.ProcessProviderEvent(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := repo.Get(context.Background(), call.ID)
	if updated.Status != entities.CallStatus("voicemail_left") {
		t.Fatalf("expected verbatim status, got %q", updated.Status)
	}
	if updated.FinishedAt != nil {
		t.Fatal("expected no finishedAt for non-terminal status")
	}
}

func TestProcessProviderEvent_TriggersSummarization(t *testing.T) {
	summarizer := &stubSummarizer{summary: "caller was reminded about the dentist", called: make(chan string, 1)}
	svc, repo, hub := newTestService(t, summarizer)
	call := createCall(t, repo, "abc123")

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	payload := []byte(`{"type":"call.ended","data":{"conversation_id":"abc123","status":"done","transcript":[{"text":"hello"},{"text":"bye"}]}}`)
	if _, err := svc.ProcessProviderEvent(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case transcript := <-summarizer.called:
		if transcript != "hello\nbye" {
			t.Fatalf("summarizer got unexpected transcript %q", transcript)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("summarizer was never invoked")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		updated, err := repo.Get(context.Background(), call.ID)
		if err != nil {
			t.Fatalf("failed to read call: %v", err)
		}
		if updated.Summary != nil {
			if *updated.Summary != summarizer.summary {
				t.Fatalf("unexpected summary %q", *updated.Summary)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("summary never stored")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The summary event lands on the hub after the update events.
	summaryDeadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sub.Events():
			if event.Name == events.EventCallSummary {
				return
			}
		case <-summaryDeadline:
			t.Fatal("summary event never published")
		}
	}
}

func TestProcessProviderEvent_SummarizerFailureDoesNotFailAck(t *testing.T) {
	summarizer := &stubSummarizer{
		err:    backoff.Permanent(stdErrors.New("summarizer unavailable")),
		called: make(chan string, 1),
	}
	svc, repo, _ := newTestService(t, summarizer)
	call := createCall(t, repo, "abc123")

	payload := []byte(`{"type":"call.ended","data":{"conversation_id":"abc123","status":"done","transcript":"hello"}}`)
	result, err := svc.ProcessProviderEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("expected ack despite summarizer failure, got %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected match, got %+v", result)
	}

	<-summarizer.called
	time.Sleep(50 * time.Millisecond)
	updated, _ := repo.Get(context.Background(), call.ID)
	if updated.Summary != nil {
		t.Fatalf("expected no summary after failure, got %q", *updated.Summary)
	}
}
