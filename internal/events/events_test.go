package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TopicServerUpdate)
	defer unsub()

	bus.Publish(TopicServerUpdate, ServerUpdate{Name: "svc", Status: "connected"})

	select {
	case ev := <-ch:
		update, ok := ev.Payload.(ServerUpdate)
		require.True(t, ok)
		assert.Equal(t, "svc", update.Name)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestPublish_NoSubscribersDoesNotBlock(t *testing.T) {
	bus := NewBus()
	done := make(chan struct{})
	go func() {
		bus.Publish(TopicServerUpdate, ServerUpdate{Name: "svc"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TopicServerUpdate)
	unsub()

	bus.Publish(TopicServerUpdate, ServerUpdate{Name: "svc"})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestSubscribe_TopicsAreIndependent(t *testing.T) {
	bus := NewBus()
	updates, unsub1 := bus.Subscribe(TopicServerUpdate)
	defer unsub1()
	maxRestarts, unsub2 := bus.Subscribe(TopicMaxRestarts)
	defer unsub2()

	bus.Publish(TopicServerUpdate, ServerUpdate{Name: "svc"})

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected update on its own topic")
	}

	select {
	case <-maxRestarts:
		t.Fatal("unrelated topic should not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}
