package call

import "github.com/johnquangdev/call-assistant/internal/domain/entities"

// InitiateCallResponse is returned when a call was placed.
type InitiateCallResponse struct {
	CallID           string                 `json:"callId"`
	ProviderResponse map[string]interface{} `json:"providerResponse,omitempty"`
}

// ListCallsResponse wraps the index summaries, newest first.
type ListCallsResponse struct {
	Calls []entities.CallSummary `json:"calls"`
}

// WebhookAck acknowledges a provider webhook. Matched is informational; the
// sender gets ok=true even when the event correlated to nothing.
type WebhookAck struct {
	OK      bool `json:"ok"`
	Matched bool `json:"matched"`
}

// ConversationResponse is the provider-proxy reply for GET /conversations/:id.
// Raw is only populated when neither transcript nor recording was recognized.
type ConversationResponse struct {
	ConversationID string                 `json:"conversation_id"`
	Transcript     interface{}            `json:"transcript"`
	RecordingURL   string                 `json:"recording_url,omitempty"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}
