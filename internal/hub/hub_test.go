package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/pulse/internal/frame"
	"github.com/atikulmunna/pulse/internal/stream"
)

func TestHubBroadcast(t *testing.T) {
	input := make(chan stream.Event, 10)
	h := New(input, nil)

	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	input <- stream.Event{Kind: stream.KindFrame, Frame: frame.LogFrame{Step: "RAG", Message: "Buscando contexto"}}

	for i, sub := range []<-chan stream.Event{sub1, sub2} {
		select {
		case ev := <-sub:
			assert.Equal(t, "RAG", ev.Frame.(frame.LogFrame).Step, "sub%d", i+1)
		case <-time.After(time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
}

func TestHubSlowConsumer(t *testing.T) {
	input := make(chan stream.Event, 10)
	h := New(input, nil)

	// Never read from this one.
	_ = h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	for i := 0; i < subscriberBuffer+100; i++ {
		input <- stream.Event{Kind: stream.KindConnected}
	}

	require.Eventually(t, func() bool { return h.Dropped() >= 100 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClosesSubscribersOnStop(t *testing.T) {
	input := make(chan stream.Event)
	h := New(input, nil)
	sub := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()
	cancel()
	<-done

	_, ok := <-sub
	assert.False(t, ok)
}

func TestHubUnsubscribe(t *testing.T) {
	input := make(chan stream.Event, 1)
	h := New(input, nil)
	sub := h.Subscribe()
	keep := h.Subscribe()

	h.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	input <- stream.Event{Kind: stream.KindDisconnected}
	select {
	case ev := <-keep:
		assert.Equal(t, stream.KindDisconnected, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
