package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/pkg/config"
)

const (
	outboundCallPath     = "/v1/convai/twilio/outbound-call"
	conversationPathTmpl = "/v1/convai/conversations/%s"
)

// Client is a minimal ElevenLabs ConvAI client for starting outbound calls
// and fetching conversations.
type Client struct {
	apiKey             string
	agentID            string
	agentPhoneNumberID string
	fromNumber         string
	baseURL            string
	client             *http.Client
}

// NewClient creates an ElevenLabs client using the provided config.
// If cfg is nil, falls back to environment variables.
func NewClient(cfg *config.ElevenLabsConfig) *Client {
	c := &Client{
		baseURL: "https://api.elevenlabs.io",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	if cfg != nil {
		c.apiKey = cfg.APIKey
		c.agentID = cfg.AgentID
		c.agentPhoneNumberID = cfg.AgentPhoneNumberID
		c.fromNumber = cfg.FromNumber
		if cfg.BaseURL != "" {
			c.baseURL = cfg.BaseURL
		}
		if cfg.RequestTimeout > 0 {
			c.client.Timeout = cfg.RequestTimeout
		}
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if c.agentID == "" {
		c.agentID = os.Getenv("ELEVENLABS_AGENT_ID")
	}
	return c
}

// Configured reports whether the credentials needed to place calls are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.agentID != ""
}

// OutboundCallRequest carries what the agent needs to place a call. CallID is
// the local correlation token passed to the provider as a dynamic variable so
// webhooks can echo it back.
type OutboundCallRequest struct {
	ToNumber string
	Purpose  string
	UserName string
	CallID   string
}

// OutboundCallResponse is the provider's initiation reply. ConversationID may
// be empty; some responses only assign it later, via webhook.
type OutboundCallResponse struct {
	ConversationID string
	Raw            map[string]interface{}
}

// Conversation is the provider's view of a finished or in-flight call session.
type Conversation struct {
	ConversationID string                 `json:"conversation_id"`
	Transcript     interface{}            `json:"transcript,omitempty"`
	RecordingURL   string                 `json:"recording_url,omitempty"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

// StartOutboundCall asks the provider to place the call. Timeouts surface as
// errors.ErrProviderTimeout, non-2xx replies as errors.ErrProviderFailed with
// the upstream status attached.
func (c *Client) StartOutboundCall(ctx context.Context, req OutboundCallRequest) (*OutboundCallResponse, error) {
	payload := map[string]interface{}{
		"agent_id":  c.agentID,
		"to_number": req.ToNumber,
		"conversation_initiation_client_data": map[string]interface{}{
			"type": "conversation_initiation_client_data",
			"dynamic_variables": map[string]interface{}{
				"purpose":  req.Purpose,
				"username": req.UserName,
				"call_id":  req.CallID,
			},
		},
	}
	// Either a provider-hosted number or a caller id, not both.
	if c.agentPhoneNumberID != "" {
		payload["agent_phone_number_id"] = c.agentPhoneNumberID
	} else if c.fromNumber != "" {
		payload["from_number"] = c.fromNumber
	}

	body, err := c.doJSON(ctx, http.MethodPost, c.baseURL+outboundCallPath, payload)
	if err != nil {
		return nil, err
	}

	resp := &OutboundCallResponse{Raw: body}
	for _, key := range []string{"conversation_id", "conversationId"} {
		if id, ok := body[key].(string); ok && id != "" {
			resp.ConversationID = id
			break
		}
	}
	return resp, nil
}

// GetConversation fetches a conversation by the provider-assigned id.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	url := c.baseURL + fmt.Sprintf(conversationPathTmpl, conversationID)
	body, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	conversation := &Conversation{ConversationID: conversationID, Raw: body}
	conversation.Transcript = body["transcript"]
	if recording, ok := body["recording_url"].(string); ok {
		conversation.RecordingURL = recording
	} else if audio, ok := body["audio_url"].(string); ok {
		conversation.RecordingURL = audio
	}
	return conversation, nil
}

// doJSON performs one request and decodes the reply, which may not be JSON on
// provider errors; non-JSON bodies come back under a "text" key.
func (c *Client) doJSON(ctx context.Context, method, url string, payload interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.ErrInternal(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.ErrProviderTimeout(err)
		}
		return nil, errors.ErrProviderFailed(http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrProviderFailed(resp.StatusCode, err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		body = map[string]interface{}{"text": strings.TrimSpace(string(raw))}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.ErrProviderFailed(resp.StatusCode,
			fmt.Errorf("elevenlabs returned status %d", resp.StatusCode),
		).WithDetail("body", strings.TrimSpace(string(raw)))
	}
	return body, nil
}

// isTimeout covers both the client-level timeout and a context deadline.
func isTimeout(err error) bool {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr) && netErr.Timeout()
}
