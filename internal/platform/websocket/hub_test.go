package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, 8),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	client := newTestClient(userID)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.UserConnCount(userID) != 1 {
		t.Fatalf("expected 1 connection for user, got %d", hub.UserConnCount(userID))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
	if hub.UserConnCount(userID) != 0 {
		t.Errorf("expected 0 connections for user, got %d", hub.UserConnCount(userID))
	}

	// Send channel should be closed.
	select {
	case _, ok := <-client.Send:
		if ok {
			t.Error("expected Send channel to be closed")
		}
	default:
		t.Error("expected Send channel to be closed, but read would block")
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(uuid.New())

	hub.Register(client)
	hub.Unregister(client)
	// Second unregister must not panic on the closed channel.
	hub.Unregister(client)
}

func TestHub_PushReachesOnlyOwner(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	alice := uuid.New()
	bob := uuid.New()

	aliceClient := newTestClient(alice)
	bobClient := newTestClient(bob)
	hub.Register(aliceClient)
	hub.Register(bobClient)

	event := Event{
		Type:      "notification",
		Message:   "Your appointment has been confirmed.",
		Timestamp: time.Now(),
	}
	if err := hub.Push(context.Background(), alice, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-aliceClient.Send:
		var got Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if got.Message != event.Message {
			t.Errorf("expected message %q, got %q", event.Message, got.Message)
		}
	default:
		t.Fatal("expected event on alice's connection")
	}

	select {
	case <-bobClient.Send:
		t.Fatal("expected no event on bob's connection")
	default:
	}
}

func TestHub_PushFansOutToAllConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()

	first := newTestClient(userID)
	second := newTestClient(userID)
	hub.Register(first)
	hub.Register(second)

	if hub.UserConnCount(userID) != 2 {
		t.Fatalf("expected 2 connections, got %d", hub.UserConnCount(userID))
	}

	hub.Push(context.Background(), userID, Event{Type: "notification", Message: "hello"})

	for i, client := range []*Client{first, second} {
		select {
		case <-client.Send:
		default:
			t.Errorf("connection %d did not receive the event", i)
		}
	}
}

func TestHub_PushToDisconnectedUserIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	if err := hub.Push(context.Background(), uuid.New(), Event{Message: "nobody home"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHub_PushSkipsFullBuffer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	client := &Client{ID: uuid.NewString(), UserID: userID, Send: make(chan []byte)}
	hub.Register(client)

	// Unbuffered channel with no reader: Push must not block.
	done := make(chan struct{})
	go func() {
		hub.Push(context.Background(), userID, Event{Message: "dropped"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a full client buffer")
	}
}
