package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/call-assistant/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	callHandler    *CallHandler
	webhookHandler *WebhookHandler
	eventsHandler  *EventsHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, callHandler *CallHandler, webhookHandler *WebhookHandler, eventsHandler *EventsHandler) *Router {
	return &Router{
		cfg:            cfg,
		callHandler:    callHandler,
		webhookHandler: webhookHandler,
		eventsHandler:  eventsHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	e.POST("/calls", rt.callHandler.InitiateCall)
	e.GET("/calls", rt.callHandler.ListCalls)
	// Static route registered before the parameterized one; echo matches
	// /calls/events here, not as an id.
	e.GET("/calls/events", rt.eventsHandler.Stream)
	e.GET("/calls/:id", rt.callHandler.GetCall)

	e.GET("/conversations/:id", rt.callHandler.GetConversation)

	e.POST("/webhooks/calls", rt.webhookHandler.HandleProviderWebhook)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
