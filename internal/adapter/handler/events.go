package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/internal/infrastructure/events"
)

// keepaliveInterval is how often an idle stream gets a comment frame so
// intermediaries see the connection as alive.
const keepaliveInterval = 25 * time.Second

// EventsHandler streams call lifecycle events to live UI subscribers.
type EventsHandler struct {
	hub    *events.Hub
	logger *zap.Logger
}

// NewEventsHandler creates a new handler
func NewEventsHandler(hub *events.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream handles GET /calls/events. Each connection gets events from
// subscribe time onward; there is no replay. The connection stays open until
// the client disconnects or the server shuts down.
func (h *EventsHandler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("event stream subscriber connected",
		zap.String("remote_addr", c.Request().RemoteAddr),
	)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("event stream subscriber disconnected")
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				h.logger.Error("failed to encode event payload",
					zap.String("event", event.Name),
					zap.Error(err),
				)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			w.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			w.Flush()
		}
	}
}
