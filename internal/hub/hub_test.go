package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubRegisterAndUnregister(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)

	c := NewClient("client-1", 4)
	h.Register(c)

	deadline := time.After(time.Second)
	for h.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client was never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	h.Unregister(c)

	deadline = time.After(time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client was never unregistered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, ok := <-c.Send; ok {
		t.Fatal("Send channel should be closed after unregister")
	}
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	go h.Run(ctx)

	c := NewClient("client-1", 4)
	h.Register(c)

	deadline := time.After(time.Second)
	for h.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client was never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("Send channel should be closed on shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Send channel was never closed")
	}
}
