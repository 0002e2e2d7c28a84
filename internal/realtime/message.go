package realtime

// SSEMessage is one event on an org channel. Channel is the org id string;
// Data stays small (ids and a compact body), clients refetch details over
// the REST API.
type SSEMessage struct {
	Channel string         `json:"channel"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
}

const (
	SSEEventTicketCreated     = "ticket.created"
	SSEEventTicketUpdated     = "ticket.updated"
	SSEEventSLAEscalated      = "sla.escalated"
	SSEEventSLABreached       = "sla.breached"
	SSEEventFeedbackCreated   = "feedback.created"
	SSEEventDocumentExtracted = "document.extracted"
)
