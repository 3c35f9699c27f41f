package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

func newDispatcher(t *testing.T, opts ...dispatch.DispatcherOption) (*dispatch.Dispatcher, *confirmation.MemoryStore) {
	t.Helper()

	confirms := confirmation.NewMemoryStore()
	tracker, err := confirmation.NewTracker(confirms, preference.NewMemoryStore())
	require.NoError(t, err)

	d, err := dispatch.NewDispatcher(tracker, opts...)
	require.NoError(t, err)
	return d, confirms
}

func TestDispatchStopsAtFirstDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{name: channel.NamePush, available: true, failWith: channel.ErrTransient, failCount: -1}
	socket := &scriptedGateway{name: channel.NameSocket, available: true}
	email := &scriptedGateway{name: channel.NameEmail, available: true}

	d, confirms := newDispatcher(t)

	err := d.Dispatch(ctx, "user-1", "n1", testContent(notification.KindMention),
		[]channel.Gateway{push, socket, email}, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, push.sendCount())
	assert.Equal(t, 1, socket.sendCount())
	assert.Equal(t, 0, email.sendCount())

	attempts, err := confirms.ListByNotification(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
}

func TestDispatchAllChannelsFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{name: channel.NamePush, available: true, failWith: channel.ErrPermanent, failCount: -1}
	email := &scriptedGateway{name: channel.NameEmail, available: true, failWith: channel.ErrTransient, failCount: -1}

	d, confirms := newDispatcher(t)

	err := d.Dispatch(ctx, "user-1", "n1", testContent(notification.KindMention),
		[]channel.Gateway{push, email}, 2)
	require.ErrorIs(t, err, dispatch.ErrAllChannelsFailed)
	assert.ErrorIs(t, err, channel.ErrPermanent)
	assert.ErrorIs(t, err, channel.ErrTransient)

	attempts, err := confirms.ListByNotification(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.False(t, a.IsDelivered)
		assert.Equal(t, 2, a.RetryCount)
		assert.NotEmpty(t, a.Error)
	}
}

func TestDispatchEmptyOrder(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t)

	err := d.Dispatch(context.Background(), "user-1", "n1", testContent(notification.KindMention), nil, 0)
	assert.ErrorIs(t, err, dispatch.ErrNoChannels)
}

