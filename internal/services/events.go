package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
	"github.com/veldtops/fieldsuite-backend/internal/realtime/bus"
)

// EventPublisher pushes realtime events onto an org's SSE channel. With a bus
// configured the message travels through Redis and every instance's forwarder
// delivers it locally; without one it goes straight to the in-process hub.
// Publishing is fire-and-forget: a failed event never fails the request that
// produced it.
type EventPublisher interface {
	Publish(ctx context.Context, orgID uuid.UUID, event string, data map[string]any)
}

type eventPublisher struct {
	log *logger.Logger
	hub *realtime.SSEHub
	bus bus.Bus
}

func NewEventPublisher(baseLog *logger.Logger, hub *realtime.SSEHub, b bus.Bus) EventPublisher {
	return &eventPublisher{
		log: baseLog.With("service", "EventPublisher"),
		hub: hub,
		bus: b,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, orgID uuid.UUID, event string, data map[string]any) {
	if orgID == uuid.Nil || event == "" {
		return
	}
	msg := realtime.SSEMessage{
		Channel: orgID.String(),
		Event:   event,
		Data:    data,
	}
	if p.bus != nil {
		if err := p.bus.Publish(ctx, msg); err == nil {
			return
		} else {
			p.log.Warn("Bus publish failed, falling back to local hub", "event", event, "error", err)
		}
	}
	if p.hub != nil {
		p.hub.Broadcast(msg)
	}
}
