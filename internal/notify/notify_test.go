package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	change := ViewChange{Count: 12, TotalPages: 3, GeneratedAt: "2024-03-01T12:00:00Z"}
	h.ViewChanged(change)

	assert.Equal(t, change, <-a)
	assert.Equal(t, change, <-b)
}

func TestHubCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()

	// The channel is closed; further publishes reach nobody.
	h.ViewChanged(ViewChange{Count: 1})

	v, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestHubCancelIsIdempotent(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()

	cancel()
	cancel()
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// Overfill the buffer; publishes beyond it must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			h.ViewChanged(ViewChange{Count: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffer holds the first events; later ones were dropped.
	first := <-ch
	assert.Equal(t, 0, first.Count)
	require.Len(t, ch, 7)
}

func TestHubPublishWithNoSubscribers(t *testing.T) {
	h := NewHub()
	h.ViewChanged(ViewChange{Count: 5})
}

func TestMultiFansOut(t *testing.T) {
	h1 := NewHub()
	h2 := NewHub()
	a, cancelA := h1.Subscribe()
	defer cancelA()
	b, cancelB := h2.Subscribe()
	defer cancelB()

	Multi{h1, h2}.ViewChanged(ViewChange{Count: 2})

	assert.Equal(t, 2, (<-a).Count)
	assert.Equal(t, 2, (<-b).Count)
}
