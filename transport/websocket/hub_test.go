package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wricardo/chess-relay/game/service"
)

func newTestClient(id string, queue int) *Client {
	hub := NewHub(nil)
	return &Client{
		id:     id,
		hub:    hub,
		logger: hub.logger,
		send:   make(chan []byte, queue),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}

	if hub.Count() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.Count())
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient("c1", 1)

	hub.registerClient(client)
	hub.registerClient(client)

	if !hub.clients[client] {
		t.Error("Client was not registered")
	}

	if hub.Count() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.Count())
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client1 := newTestClient("c1", 1)
	client2 := newTestClient("c2", 1)

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.unregisterClient(client1)
	hub.unregisterClient(client1)

	if hub.Count() != 1 {
		t.Errorf("Expected 1 client remaining, got %d", hub.Count())
	}

	if !hub.clients[client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubRunShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient("c1", 1)
	if !hub.Register(client) {
		t.Fatal("Register failed on a running hub")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Hub did not stop")
	}

	if hub.Count() != 0 {
		t.Errorf("Expected 0 clients after shutdown, got %d", hub.Count())
	}

	if err := client.Send(map[string]string{"type": "ping"}); !errors.Is(err, service.ErrChannelClosed) {
		t.Errorf("Expected clients to be closed on shutdown, got %v", err)
	}

	if hub.Register(newTestClient("late", 1)) {
		t.Error("Register should fail once the hub has stopped")
	}

	// must not block
	hub.Unregister(client)
}

func TestClientSend(t *testing.T) {
	client := newTestClient("c1", 2)

	msg := service.PlayerColorMessage{Type: service.TypePlayerColor, Color: "white"}
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-client.send:
		if string(data) != `{"type":"player_color","color":"white"}` {
			t.Errorf("Unexpected frame %s", data)
		}
	default:
		t.Fatal("Nothing was queued")
	}
}

func TestClientSendQueueFull(t *testing.T) {
	client := newTestClient("c1", 2)

	for i := 0; i < 2; i++ {
		if err := client.Send("x"); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	if err := client.Send("overflow"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	if err := client.Send("after close"); !errors.Is(err, service.ErrChannelClosed) {
		t.Errorf("Expected ErrChannelClosed, got %v", err)
	}

	// queued frames are still delivered before the close
	count := 0
	for range client.send {
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 queued frames, got %d", count)
	}

	// closing twice is fine
	client.Close()
}

func TestClientSendUnmarshalable(t *testing.T) {
	client := newTestClient("c1", 1)

	if err := client.Send(make(chan int)); err == nil {
		t.Error("Expected marshal error")
	}

	if len(client.send) != 0 {
		t.Error("Nothing should have been queued")
	}
}
