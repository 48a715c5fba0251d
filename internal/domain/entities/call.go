package entities

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus tracks a call's lifecycle. Besides the three known values it may
// hold an unrecognized provider status verbatim, so newly introduced provider
// states survive a round trip through storage.
type CallStatus string

const (
	CallStatusOngoing  CallStatus = "ongoing"
	CallStatusFinished CallStatus = "finished"
	CallStatusFailed   CallStatus = "failed"
)

// terminalStatuses are the provider status strings treated as synonyms for a
// completed call.
var terminalStatuses = map[string]struct{}{
	"done":      {},
	"completed": {},
	"complete":  {},
	"ended":     {},
	"finished":  {},
	"success":   {},
}

// NormalizeStatus maps a raw provider status onto CallStatus. Recognized
// terminal strings collapse to CallStatusFinished; anything else passes
// through unchanged.
func NormalizeStatus(raw string) CallStatus {
	if _, ok := terminalStatuses[raw]; ok {
		return CallStatusFinished
	}
	return CallStatus(raw)
}

// Call is the stored state of one outbound call, from initiation through the
// post-call webhook. ID doubles as the client correlation token: it is handed
// to the provider at initiation inside the dynamic variables and may be echoed
// back in webhooks, which lets correlation work even when the provider never
// returned a conversation id.
type Call struct {
	ID             string     `json:"id"`
	Status         CallStatus `json:"status"`
	ToNumber       string     `json:"to_number"`
	ReceiverName   string     `json:"receiver_name,omitempty"`
	Prompt         string     `json:"prompt"`
	UserName       string     `json:"username,omitempty"`
	ConversationID *string    `json:"conversation_id,omitempty"`
	Transcript     *string    `json:"transcript,omitempty"`
	RecordingURL   *string    `json:"recording_url,omitempty"`
	Summary        *string    `json:"summary,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// NewCall creates a call record in the ongoing state with a fresh id.
func NewCall(toNumber, prompt, receiverName, userName string) *Call {
	return &Call{
		ID:           uuid.NewString(),
		Status:       CallStatusOngoing,
		ToNumber:     toNumber,
		Prompt:       prompt,
		ReceiverName: receiverName,
		UserName:     userName,
		CreatedAt:    time.Now().UTC(),
	}
}

// CallSummary is the lightweight index entry mirrored for every stored call,
// used for listing without reading full records.
type CallSummary struct {
	ID             string     `json:"id"`
	Status         CallStatus `json:"status"`
	ReceiverName   string     `json:"receiver_name,omitempty"`
	ToNumber       string     `json:"to_number"`
	CreatedAt      time.Time  `json:"created_at"`
	ConversationID *string    `json:"conversation_id,omitempty"`
}

// IndexEntry derives the index summary for this call.
func (c *Call) IndexEntry() CallSummary {
	return CallSummary{
		ID:             c.ID,
		Status:         c.Status,
		ReceiverName:   c.ReceiverName,
		ToNumber:       c.ToNumber,
		CreatedAt:      c.CreatedAt,
		ConversationID: c.ConversationID,
	}
}
