package elevenlabs

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/pkg/config"
)

func testConfig(baseURL string) *config.ElevenLabsConfig {
	return &config.ElevenLabsConfig{
		APIKey:             "test-key",
		AgentID:            "agent-1",
		AgentPhoneNumberID: "phone-1",
		BaseURL:            baseURL,
		RequestTimeout:     5 * time.Second,
	}
}

func TestStartOutboundCall(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != outboundCallPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id": "conv-123", "success": true}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	resp, err := client.StartOutboundCall(context.Background(), OutboundCallRequest{
		ToNumber: "+15551234567",
		Purpose:  "remind about dentist",
		UserName: "jordan",
		CallID:   "call-abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ConversationID != "conv-123" {
		t.Fatalf("expected conversation id conv-123, got %q", resp.ConversationID)
	}

	if captured["agent_id"] != "agent-1" || captured["to_number"] != "+15551234567" {
		t.Fatalf("payload missing call fields: %v", captured)
	}
	if captured["agent_phone_number_id"] != "phone-1" {
		t.Fatalf("expected agent_phone_number_id in payload: %v", captured)
	}
	if _, ok := captured["from_number"]; ok {
		t.Fatal("from_number must be omitted when agent_phone_number_id is set")
	}

	init, ok := captured["conversation_initiation_client_data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing client data in payload: %v", captured)
	}
	dv, ok := init["dynamic_variables"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing dynamic variables: %v", init)
	}
	if dv["call_id"] != "call-abc" || dv["purpose"] != "remind about dentist" || dv["username"] != "jordan" {
		t.Fatalf("dynamic variables wrong: %v", dv)
	}
}

func TestStartOutboundCallFromNumberFallback(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AgentPhoneNumberID = ""
	cfg.FromNumber = "+15550001111"

	client := NewClient(cfg)
	if _, err := client.StartOutboundCall(context.Background(), OutboundCallRequest{ToNumber: "+15551234567"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured["from_number"] != "+15550001111" {
		t.Fatalf("expected from_number fallback, got %v", captured)
	}
}

func TestStartOutboundCallUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.StartOutboundCall(context.Background(), OutboundCallRequest{ToNumber: "+15551234567"})

	var appErr errors.AppError
	if !stdErrors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != errors.ErrorCode_PROVIDER_ERROR || appErr.HTTPCode != http.StatusUnauthorized {
		t.Fatalf("expected provider error with upstream status, got %+v", appErr)
	}
}

func TestStartOutboundCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestTimeout = 50 * time.Millisecond

	client := NewClient(cfg)
	_, err := client.StartOutboundCall(context.Background(), OutboundCallRequest{ToNumber: "+15551234567"})

	var appErr errors.AppError
	if !stdErrors.As(err, &appErr) || appErr.Code != errors.ErrorCode_PROVIDER_TIMEOUT {
		t.Fatalf("expected provider timeout, got %v", err)
	}
}

func TestGetConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/conversations/conv-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"conversation_id": "conv-123",
			"transcript": [{"text": "hello"}],
			"audio_url": "https://audio.example.com/conv-123.mp3"
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	conversation, err := client.GetConversation(context.Background(), "conv-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conversation.ConversationID != "conv-123" {
		t.Fatalf("wrong conversation id %q", conversation.ConversationID)
	}
	if conversation.Transcript == nil {
		t.Fatal("expected transcript carried through")
	}
	if conversation.RecordingURL != "https://audio.example.com/conv-123.mp3" {
		t.Fatalf("expected audio_url fallback, got %q", conversation.RecordingURL)
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient(testConfig("http://example.com")).Configured() {
		t.Fatal("expected configured client")
	}

	cfg := testConfig("http://example.com")
	cfg.APIKey = ""
	t.Setenv("ELEVENLABS_API_KEY", "")
	if NewClient(cfg).Configured() {
		t.Fatal("expected unconfigured client without api key")
	}
}
