package channel_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func testContent(title string) notification.Content {
	return notification.Content{
		Kind:  notification.KindMention,
		Title: title,
	}
}

func TestHubPushToAttachedSession(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	defer hub.Close()

	sess, err := hub.Attach("user-1")
	require.NoError(t, err)
	defer sess.Close()

	require.True(t, hub.Connected("user-1"))
	require.NoError(t, hub.Push(context.Background(), "user-1", testContent("hello")))

	select {
	case got := <-sess.Receive():
		assert.Equal(t, "hello", got.Title)
	case <-time.After(time.Second):
		t.Fatal("expected message on session channel")
	}
}

func TestHubPushNotConnected(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	defer hub.Close()

	err := hub.Push(context.Background(), "user-1", testContent("hello"))
	assert.ErrorIs(t, err, channel.ErrNotConnected)
}

func TestHubDetachOnSessionClose(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	defer hub.Close()

	sess, err := hub.Attach("user-1")
	require.NoError(t, err)
	require.True(t, hub.Connected("user-1"))

	require.NoError(t, sess.Close())
	assert.False(t, hub.Connected("user-1"))

	err = hub.Push(context.Background(), "user-1", testContent("hello"))
	assert.ErrorIs(t, err, channel.ErrNotConnected)
}

func TestHubOnConnectHook(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	defer hub.Close()

	var calls atomic.Int32
	hub.OnConnect(func(userID string) {
		assert.Equal(t, "user-1", userID)
		calls.Add(1)
	})

	sess, err := hub.Attach("user-1")
	require.NoError(t, err)
	defer sess.Close()

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHubFullBufferSkipsSlowSession(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub(channel.WithSessionBuffer(1))
	defer hub.Close()

	slow, err := hub.Attach("user-1")
	require.NoError(t, err)
	defer slow.Close()

	// Fill the only session's buffer; the next push has nowhere to go.
	require.NoError(t, hub.Push(context.Background(), "user-1", testContent("first")))
	err = hub.Push(context.Background(), "user-1", testContent("second"))
	assert.ErrorIs(t, err, channel.ErrNotConnected)
}

func TestHubClosedRejectsAttachAndPush(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	require.NoError(t, hub.Close())

	_, err := hub.Attach("user-1")
	assert.ErrorIs(t, err, channel.ErrHubClosed)

	err = hub.Push(context.Background(), "user-1", testContent("hello"))
	assert.ErrorIs(t, err, channel.ErrHubClosed)
}

func TestHubPushRacingSessionClose(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub(channel.WithSessionBuffer(1))
	defer hub.Close()

	sessions := make([]*channel.Session, 8)
	for i := range sessions {
		sess, err := hub.Attach("user-1")
		require.NoError(t, err)
		sessions[i] = sess
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			// Outcome varies with timing; only crash-freedom matters here.
			_ = hub.Push(context.Background(), "user-1", testContent("racing"))
		}
	}()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *channel.Session) {
			defer wg.Done()
			_ = s.Close()
		}(sess)
	}
	wg.Wait()
	<-done

	assert.False(t, hub.Connected("user-1"))
}
