package events

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeActionReceived, map[string]any{"action": "executeAgentTask"})

	select {
	case ev := <-ch:
		assert.Equal(t, TypeActionReceived, ev.Type)
		assert.Equal(t, int64(1), ev.ID)
		assert.False(t, ev.At.IsZero())

		var data map[string]any
		require.NoError(t, json.Unmarshal(ev.Data, &data))
		assert.Equal(t, "executeAgentTask", data["action"])
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPublishNilDataIsEmptyObject(t *testing.T) {
	h := NewHub(8)
	h.Publish(TypeActionCompleted, nil)

	evs := h.SnapshotSince(0)
	require.Len(t, evs, 1)
	assert.JSONEq(t, `{}`, string(evs[0].Data))
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after cancel")

	// Publishing after cancel must not panic.
	h.Publish(TypeActionFailed, nil)
	// Double cancel is a no-op.
	cancel()
}

func TestMultipleSubscribers(t *testing.T) {
	h := NewHub(8)
	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	h.Publish(TypeWorkflowCompleted, map[string]any{"workflow": "full_analysis"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeWorkflowCompleted, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(8)
	for i := 0; i < 5; i++ {
		h.Publish(TypeActionReceived, map[string]any{"n": i})
	}

	all := h.SnapshotSince(0)
	require.Len(t, all, 5)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(5), all[4].ID)

	tail := h.SnapshotSince(3)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].ID)
	assert.Equal(t, int64(5), tail[1].ID)

	assert.Empty(t, h.SnapshotSince(5))
}

func TestRingOverflowKeepsNewest(t *testing.T) {
	h := NewHub(4)
	for i := 0; i < 10; i++ {
		h.Publish(TypeActionReceived, map[string]any{"n": i})
	}

	evs := h.SnapshotSince(0)
	require.Len(t, evs, 4)
	assert.Equal(t, int64(7), evs[0].ID)
	assert.Equal(t, int64(10), evs[3].ID)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(512)
	_, cancel := h.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber channel; publishes must drop, not block.
		for i := 0; i < 300; i++ {
			h.Publish(TypeActionReceived, map[string]any{"n": i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	// Every event is still recoverable from the buffer.
	assert.Len(t, h.SnapshotSince(0), 300)
}

func TestEventIDsMonotonic(t *testing.T) {
	h := NewHub(64)
	for i := 0; i < 20; i++ {
		h.Publish(fmt.Sprintf("type.%d", i), nil)
	}

	evs := h.SnapshotSince(0)
	require.Len(t, evs, 20)
	for i := 1; i < len(evs); i++ {
		assert.Equal(t, evs[i-1].ID+1, evs[i].ID)
	}
}
