package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	calldto "github.com/johnquangdev/call-assistant/internal/adapter/dto/call"
	webhookuse "github.com/johnquangdev/call-assistant/internal/usecase/webhook"
)

// WebhookHandler handles post-call webhooks from the calling provider.
type WebhookHandler struct {
	svc    webhookuse.Service
	secret string
	logger *zap.Logger
}

// NewWebhookHandler creates a new handler
func NewWebhookHandler(svc webhookuse.Service, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret, logger: logger}
}

// HandleProviderWebhook receives post-call webhooks. Only a bad signature or
// an unparseable body produce a non-success response; everything else,
// including events that match no call record, is acknowledged so the provider
// does not retry.
func (h *WebhookHandler) HandleProviderWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	// The provider signs requests in a header; try common header names
	signature := c.Request().Header.Get("ElevenLabs-Signature")
	if signature == "" {
		signature = c.Request().Header.Get("X-Elevenlabs-Signature")
	}

	if !webhookuse.VerifySignature(body, signature, h.secret) {
		h.logger.Warn("rejected webhook with invalid signature",
			zap.String("remote_addr", c.Request().RemoteAddr),
		)
		return HandleError(h.logger, c, errors.ErrInvalidSignature())
	}

	result, err := h.svc.ProcessProviderEvent(c.Request().Context(), body)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, calldto.WebhookAck{OK: true, Matched: result.Matched})
}
