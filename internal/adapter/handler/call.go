package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	calldto "github.com/johnquangdev/call-assistant/internal/adapter/dto/call"
	calluse "github.com/johnquangdev/call-assistant/internal/usecase/call"
)

// CallHandler exposes call initiation and read endpoints.
type CallHandler struct {
	svc    calluse.Service
	logger *zap.Logger
}

// NewCallHandler creates a new handler
func NewCallHandler(svc calluse.Service, logger *zap.Logger) *CallHandler {
	return &CallHandler{svc: svc, logger: logger}
}

// InitiateCall handles POST /calls
func (h *CallHandler) InitiateCall(c echo.Context) error {
	var req calldto.InitiateCallRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrMissingParameters("Both 'to_number' and 'prompt' are required."))
	}

	result, err := h.svc.Initiate(c.Request().Context(), calluse.InitiateRequest{
		ToNumber:     req.ToNumber,
		Prompt:       req.Prompt,
		ReceiverName: req.ReceiverName,
		UserName:     req.UserName,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return c.JSON(http.StatusCreated, calldto.InitiateCallResponse{
		CallID:           result.Call.ID,
		ProviderResponse: result.ProviderResponse,
	})
}

// ListCalls handles GET /calls
func (h *CallHandler) ListCalls(c echo.Context) error {
	summaries, err := h.svc.List(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.JSON(http.StatusOK, calldto.ListCallsResponse{Calls: summaries})
}

// GetCall handles GET /calls/:id
func (h *CallHandler) GetCall(c echo.Context) error {
	call, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.JSON(http.StatusOK, call)
}

// GetConversation handles GET /conversations/:id, proxying the provider.
func (h *CallHandler) GetConversation(c echo.Context) error {
	conversation, err := h.svc.FetchConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := calldto.ConversationResponse{
		ConversationID: conversation.ConversationID,
		Transcript:     conversation.Transcript,
		RecordingURL:   conversation.RecordingURL,
	}
	if conversation.Transcript == nil && conversation.RecordingURL == "" {
		resp.Raw = conversation.Raw
	}
	return c.JSON(http.StatusOK, resp)
}
