package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type EventsHandler struct {
	log  *logger.Logger
	hub  *realtime.SSEHub
	orgs services.OrgService
}

func NewEventsHandler(baseLog *logger.Logger, hub *realtime.SSEHub, orgs services.OrgService) *EventsHandler {
	return &EventsHandler{
		log:  baseLog.With("handler", "EventsHandler"),
		hub:  hub,
		orgs: orgs,
	}
}

// GET /api/events?org=<org id>
//
// Streams org events over SSE. The caller must be an active member of the
// org; the auth middleware accepts ?token= here because EventSource cannot
// set headers.
func (h *EventsHandler) Stream(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("org"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_org_id", errors.New("org query param must be a uuid"))
		return
	}
	userID := actorID(c)
	if _, _, err := h.orgs.Membership(reqDBC(c), orgID, userID); err != nil {
		response.RespondError(c, http.StatusForbidden, "not_a_member", errors.New("not a member of this organization"))
		return
	}

	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, orgID.String())
	defer h.hub.CloseClient(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Outbound:
			if !ok {
				return false
			}
			payload, err := json.Marshal(msg.Data)
			if err != nil {
				h.log.Warn("drop undecodable sse payload", "event", msg.Event, "error", err)
				return true
			}
			c.SSEvent(msg.Event, string(payload))
			return true
		case <-client.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}
