package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBrokerFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewLocalBroker()

	first, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "changes", map[string]string{"table": "payments"}))

	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"table":"payments"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Len(t, other, 0)
}

func TestLocalBrokerClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewLocalBroker()

	ch, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestLocalBrokerClose(t *testing.T) {
	b := NewLocalBroker()
	ch, err := b.Subscribe(context.Background(), "changes")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.Error(t, b.Publish(context.Background(), "changes", "x"))
}
