package call

import (
	"context"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/internal/domain/entities"
	"github.com/johnquangdev/call-assistant/internal/domain/repositories"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/events"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/external/elevenlabs"
)

// Provider abstracts the outbound calling provider.
type Provider interface {
	Configured() bool
	StartOutboundCall(ctx context.Context, req elevenlabs.OutboundCallRequest) (*elevenlabs.OutboundCallResponse, error)
	GetConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error)
}

// InitiateRequest carries the caller-supplied fields for a new call.
type InitiateRequest struct {
	ToNumber     string
	Prompt       string
	ReceiverName string
	UserName     string
}

// InitiateResult is what a successful initiation returns.
type InitiateResult struct {
	Call             *entities.Call
	ProviderResponse map[string]interface{}
}

// Service defines call lifecycle operations
type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Get(ctx context.Context, id string) (*entities.Call, error)
	List(ctx context.Context) ([]entities.CallSummary, error)
	FetchConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error)
}

type callService struct {
	repo     repositories.CallRepository
	hub      *events.Hub
	provider Provider
	logger   *zap.Logger
}

// NewService constructs the call service
func NewService(repo repositories.CallRepository, hub *events.Hub, provider Provider, logger *zap.Logger) Service {
	return &callService{
		repo:     repo,
		hub:      hub,
		provider: provider,
		logger:   logger,
	}
}

// Initiate creates the call record, then asks the provider to place the call.
// The record and its index entry are persisted before any outbound network
// call, so a webhook that races the initiation response can still correlate.
// On provider failure the already-created record is left ongoing.
func (s *callService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.ToNumber == "" || req.Prompt == "" {
		return nil, errors.ErrMissingParameters("Both 'to_number' and 'prompt' are required.")
	}
	if !s.provider.Configured() {
		return nil, errors.ErrServerNotConfigured("Missing ELEVENLABS_API_KEY or ELEVENLABS_AGENT_ID.")
	}

	call := entities.NewCall(req.ToNumber, req.Prompt, req.ReceiverName, req.UserName)
	if err := s.repo.Create(ctx, call); err != nil {
		return nil, err
	}
	s.hub.Publish(events.EventCallCreated, call)

	s.logger.Info("initiating outbound call",
		zap.String("call_id", call.ID),
		zap.String("to_number", call.ToNumber),
	)

	resp, err := s.provider.StartOutboundCall(ctx, elevenlabs.OutboundCallRequest{
		ToNumber: req.ToNumber,
		Purpose:  req.Prompt,
		UserName: req.UserName,
		CallID:   call.ID,
	})
	if err != nil {
		s.logger.Warn("provider call failed, record left ongoing",
			zap.String("call_id", call.ID),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.ConversationID != "" {
		updated, err := s.repo.Update(ctx, call.ID, func(record *entities.Call) error {
			if record.ConversationID == nil {
				record.ConversationID = &resp.ConversationID
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		call = updated
		s.hub.Publish(events.EventCallUpdated, call)
	}

	return &InitiateResult{Call: call, ProviderResponse: resp.Raw}, nil
}

// Get retrieves one call record by id.
func (s *callService) Get(ctx context.Context, id string) (*entities.Call, error) {
	return s.repo.Get(ctx, id)
}

// List returns all call summaries, newest first.
func (s *callService) List(ctx context.Context) ([]entities.CallSummary, error) {
	return s.repo.ListSummaries(ctx)
}

// FetchConversation proxies a conversation lookup to the provider.
func (s *callService) FetchConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error) {
	if !s.provider.Configured() {
		return nil, errors.ErrServerNotConfigured("Missing ELEVENLABS_API_KEY in environment.")
	}
	return s.provider.GetConversation(ctx, conversationID)
}
