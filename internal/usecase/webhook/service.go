package webhook

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/internal/domain/entities"
	"github.com/johnquangdev/call-assistant/internal/domain/repositories"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/events"
)

// summaryTimeout bounds the fire-and-forget summarization side-effect.
const summaryTimeout = 60 * time.Second

// conversationIDKeys, transcriptKeys, recordingURLKeys, statusKeys and
// tokenKeys are the alias priority orders for extracting fields from provider
// payloads. First present wins.
var (
	conversationIDKeys = []string{"conversation_id", "conversationId", "id"}
	transcriptKeys     = []string{"transcript", "transcription", "messages"}
	recordingURLKeys   = []string{"recording_url", "audio_url", "recordingUrl"}
	statusKeys         = []string{"status", "call_status", "state"}
	tokenKeys          = []string{"call_id", "client_call_id", "correlation_id"}
)

// Summarizer produces a human summary for a completed transcript.
type Summarizer interface {
	Configured() bool
	GenerateSummary(ctx context.Context, transcript string) (string, error)
}

// Result reports what a processed webhook did. Unmatched events are not an
// error: the sender always gets an acknowledgment so it does not retry.
type Result struct {
	EventType string `json:"event_type,omitempty"`
	Matched   bool   `json:"matched"`
	CallID    string `json:"call_id,omitempty"`
}

// SummaryEvent is the payload published when a summary lands on a record.
type SummaryEvent struct {
	CallID  string `json:"call_id"`
	Summary string `json:"summary"`
}

// Service correlates verified provider webhooks back to call records and
// applies their state.
type Service interface {
	ProcessProviderEvent(ctx context.Context, payload []byte) (*Result, error)
}

type service struct {
	repo       repositories.CallRepository
	hub        *events.Hub
	summarizer Summarizer
	logger     *zap.Logger
}

// NewService constructs the webhook correlator.
func NewService(repo repositories.CallRepository, hub *events.Hub, summarizer Summarizer, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		hub:        hub,
		summarizer: summarizer,
		logger:     logger,
	}
}

// ProcessProviderEvent runs one webhook through parse, correlate and apply.
// The signature must already be verified by the caller. Returns
// errors.ErrInvalidPayload for unparseable bodies and storage errors as-is;
// an event with no resolvable target returns Matched=false and a nil error.
func (s *service) ProcessProviderEvent(ctx context.Context, payload []byte) (*Result, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, errors.ErrInvalidPayload()
	}

	eventType := stringField(envelope, "type", "event_type")

	// The event data may be nested under "data", flat at the top level, or
	// tucked one level deeper under a "conversation" sub-object.
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		data = envelope
	}
	scopes := []map[string]interface{}{data}
	if conversation, ok := data["conversation"].(map[string]interface{}); ok {
		scopes = append(scopes, conversation)
	}

	conversationID := scopedString(scopes, conversationIDKeys)
	transcript := NormalizeTranscript(scopedValue(scopes, transcriptKeys))
	recordingURL := scopedString(scopes, recordingURLKeys)
	rawStatus := scopedString(scopes, statusKeys)
	token := s.extractToken(scopes)

	s.logger.Info("received provider webhook",
		zap.String("event_type", eventType),
		zap.String("conversation_id", conversationID),
		zap.String("status", rawStatus),
		zap.Bool("has_transcript", transcript != nil),
	)

	call, err := s.resolveCall(ctx, token, conversationID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		// Deliberate policy: unmatched events are acknowledged so the
		// provider does not retry, but logged for operator visibility.
		s.logger.Warn("webhook matched no call record",
			zap.String("event_type", eventType),
			zap.String("conversation_id", conversationID),
		)
		return &Result{EventType: eventType, Matched: false}, nil
	}

	var (
		newlyFinished      bool
		newlyHasTranscript bool
		conversationClash  string
	)
	updated, err := s.repo.Update(ctx, call.ID, func(record *entities.Call) error {
		if conversationID != "" {
			switch {
			case record.ConversationID == nil:
				record.ConversationID = &conversationID
			case *record.ConversationID != conversationID:
				// Correlation anomaly: keep the original id.
				conversationClash = *record.ConversationID
			}
		}

		if transcript != nil {
			hadTranscript := record.Transcript != nil && *record.Transcript != ""
			record.Transcript = transcript
			newlyHasTranscript = !hadTranscript && *transcript != ""
		}

		if recordingURL != "" {
			record.RecordingURL = &recordingURL
		}

		if rawStatus != "" {
			normalized := entities.NormalizeStatus(rawStatus)
			if normalized == entities.CallStatusFinished {
				if record.Status != entities.CallStatusFinished {
					record.Status = entities.CallStatusFinished
					newlyFinished = true
				}
				if record.FinishedAt == nil {
					now := time.Now().UTC()
					record.FinishedAt = &now
				}
			} else {
				record.Status = normalized
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if conversationClash != "" {
		s.logger.Warn("webhook carried a conflicting conversation id, ignoring",
			zap.String("call_id", updated.ID),
			zap.String("stored_conversation_id", conversationClash),
			zap.String("webhook_conversation_id", conversationID),
		)
	}

	s.hub.Publish(events.EventCallUpdated, updated)
	if newlyFinished {
		s.hub.Publish(events.EventCallFinished, updated)
	}

	if newlyHasTranscript && updated.Summary == nil && s.summarizer != nil && s.summarizer.Configured() {
		go s.summarize(updated.ID, *updated.Transcript)
	}

	return &Result{EventType: eventType, Matched: true, CallID: updated.ID}, nil
}

// resolveCall applies the correlation priority: the echoed client token wins
// when present, otherwise the index is scanned by conversation id. A nil call
// with nil error means no target resolved.
func (s *service) resolveCall(ctx context.Context, token, conversationID string) (*entities.Call, error) {
	if token != "" {
		call, err := s.repo.Get(ctx, token)
		if err == nil {
			return call, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
		s.logger.Warn("webhook token matched no call record", zap.String("token", token))
	}

	if conversationID != "" {
		call, err := s.repo.FindByConversationID(ctx, conversationID)
		if err == nil {
			return call, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// extractToken looks for the echoed client correlation token, both as a plain
// field and inside the dynamic variables the call was started with.
func (s *service) extractToken(scopes []map[string]interface{}) string {
	if token := scopedString(scopes, tokenKeys); token != "" {
		return token
	}
	for _, scope := range scopes {
		candidates := []map[string]interface{}{}
		if dv, ok := scope["dynamic_variables"].(map[string]interface{}); ok {
			candidates = append(candidates, dv)
		}
		if init, ok := scope["conversation_initiation_client_data"].(map[string]interface{}); ok {
			if dv, ok := init["dynamic_variables"].(map[string]interface{}); ok {
				candidates = append(candidates, dv)
			}
		}
		for _, dv := range candidates {
			if token := stringField(dv, tokenKeys...); token != "" {
				return token
			}
		}
	}
	return ""
}

// summarize runs the external summarization collaborator off the webhook's
// request path. Failures are logged and never affect the acknowledgment.
func (s *service) summarize(callID, transcript string) {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	var summary string
	operation := func() error {
		text, err := s.summarizer.GenerateSummary(ctx, transcript)
		if err != nil {
			return err
		}
		summary = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		s.logger.Error("summarization failed",
			zap.String("call_id", callID),
			zap.Error(errors.ErrSummaryFailed(err)),
		)
		return
	}

	updated, err := s.repo.Update(ctx, callID, func(record *entities.Call) error {
		if record.Summary == nil {
			record.Summary = &summary
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to store summary",
			zap.String("call_id", callID),
			zap.Error(err),
		)
		return
	}

	if updated.Summary != nil {
		s.hub.Publish(events.EventCallSummary, SummaryEvent{CallID: callID, Summary: *updated.Summary})
	}
}

// isNotFound reports whether err is the repository's not-found outcome.
func isNotFound(err error) bool {
	var appErr errors.AppError
	return stdErrors.As(err, &appErr) && appErr.Code == errors.ErrorCode_CALL_NOT_FOUND
}

// stringField returns the first non-empty string among keys in m.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := m[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// scopedString returns the first non-empty string for keys across scopes,
// outermost scope first.
func scopedString(scopes []map[string]interface{}, keys []string) string {
	for _, scope := range scopes {
		if value := stringField(scope, keys...); value != "" {
			return value
		}
	}
	return ""
}

// scopedValue returns the first present value for keys across scopes,
// whatever its type.
func scopedValue(scopes []map[string]interface{}, keys []string) interface{} {
	for _, scope := range scopes {
		for _, key := range keys {
			if value, ok := scope[key]; ok && value != nil {
				return value
			}
		}
	}
	return nil
}
