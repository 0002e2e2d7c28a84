package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventTicketCreated, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventTicketUpdated, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventTicketCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventTicketCreated, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventTicketUpdated {
		t.Fatalf("second event: want=%s got=%s", SSEEventTicketUpdated, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventSLABreached, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventSLABreached {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventSLABreached, gotReconnect.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	orgA := uuid.New().String()
	orgB := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, orgA)
	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, orgB)

	hub.Broadcast(SSEMessage{Channel: orgA, Event: SSEEventFeedbackCreated})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Event != SSEEventFeedbackCreated {
		t.Fatalf("orgA event: want=%s got=%s", SSEEventFeedbackCreated, got.Event)
	}
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("orgB client should not receive orgA events, got %s", msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()
	slow := hub.NewSSEClient(uuid.New())
	hub.AddChannel(slow, channel)

	// Never reading: the buffer fills, then broadcasts must return
	// without blocking.
	total := outboundBuffer + 10
	doneBroadcasting := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventDocumentExtracted, Data: map[string]any{"seq": i}})
		}
		close(doneBroadcasting)
	}()

	select {
	case <-doneBroadcasting:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a slow subscriber")
	}

	if got := len(slow.Outbound); got != outboundBuffer {
		t.Fatalf("outbound queue: want=%d buffered got=%d", outboundBuffer, got)
	}

	// The buffered prefix is still delivered in order.
	first := recvMessage(t, slow.Outbound, time.Second)
	if first.Data["seq"] != 0 {
		t.Fatalf("first buffered seq: want=0 got=%v", first.Data["seq"])
	}
}

func TestSSEHubCloseClientIsIdempotent(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, uuid.New().String())

	hub.CloseClient(client)
	hub.CloseClient(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount: want=0 got=%d", hub.ClientCount())
	}
	select {
	case <-client.Done():
	default:
		t.Fatalf("Done should be closed after CloseClient")
	}
}
