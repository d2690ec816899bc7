package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutAndDropsWhenFull(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Kind: KindPosted})
	b.Publish(Event{Kind: KindAbandoned}) // a is full

	ev := <-a
	assert.Equal(t, KindPosted, ev.Kind)
	assert.False(t, ev.At.IsZero())
	assert.Len(t, a, 0)
	assert.Len(t, c, 2)

	unsubA()
	unsubA()
	_, ok := <-a
	require.False(t, ok)

	b.Publish(Event{Kind: KindRejected})
	assert.Len(t, c, 3)
}

func TestSubscribeFiltersKinds(t *testing.T) {
	b := New()
	failures, unsub := b.Subscribe(4, KindAbandoned, KindRejected)
	defer unsub()

	b.Publish(Event{Kind: KindScheduleFired})
	b.Publish(Event{Kind: KindPosted})
	b.Publish(Event{Kind: KindRejected, Data: "13/40/2025"})

	require.Len(t, failures, 1)
	ev := <-failures
	assert.Equal(t, KindRejected, ev.Kind)
	assert.Equal(t, "13/40/2025", ev.Data)
}
