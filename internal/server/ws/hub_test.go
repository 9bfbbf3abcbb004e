package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
)

// stubBus feeds the hub a fixed message channel in place of a live Redis
// pattern subscription.
type stubBus struct {
	msgs chan cacheredis.SubscribedMessage
}

func newStubBus() *stubBus {
	return &stubBus{msgs: make(chan cacheredis.SubscribedMessage, 8)}
}

func (b *stubBus) SubscribePattern(ctx context.Context, pattern string) (<-chan cacheredis.SubscribedMessage, error) {
	return b.msgs, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a client without a live connection. The register,
// unregister, and broadcast paths never touch the conn, so these tests can
// exercise hub lifecycle without a websocket handshake.
func newTestClient(h *Hub) *client {
	return &client{
		hub:   h,
		id:    "test-client",
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}
}

func TestHubRoutesDeltaToRoomMember(t *testing.T) {
	bus := newStubBus()
	h := NewHub(bus, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newTestClient(h)
	c.rooms["0xa1"] = true
	h.register <- c

	bus.msgs <- cacheredis.SubscribedMessage{
		Channel: cacheredis.EntityChannel("0xa1"),
		Payload: []byte(`{"type":"BID_UPDATE"}`),
	}

	select {
	case got := <-c.send:
		assert.JSONEq(t, `{"type":"BID_UPDATE"}`, string(got))
	case <-time.After(time.Second):
		t.Fatal("delta was not routed to the room member")
	}
}

func TestHubShutdownReleasesPumps(t *testing.T) {
	h := NewHub(newStubBus(), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	c := newTestClient(h)
	h.register <- c

	cancel()

	select {
	case err := <-runDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancel")
	}

	// The hub closed the client's send channel on the way out, so the write
	// pump drains and exits.
	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed on shutdown")
	}

	// A read pump detaching after shutdown must not block on the
	// unregister channel nobody is draining anymore.
	detached := make(chan struct{})
	go func() {
		c.detach()
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after hub shutdown")
	}
}
