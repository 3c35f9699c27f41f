package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/history"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
)

// scriptedGateway fails a configurable number of sends before succeeding.
type scriptedGateway struct {
	mu        sync.Mutex
	name      channel.Name
	available bool
	failWith  error
	failCount int // -1 fails forever
	sends     int
}

func (g *scriptedGateway) Name() channel.Name { return g.name }

func (g *scriptedGateway) Available(ctx context.Context, userID string) bool {
	return g.available
}

func (g *scriptedGateway) Send(ctx context.Context, userID string, content notification.Content) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sends++
	if g.failCount < 0 || g.sends <= g.failCount {
		return g.failWith
	}
	return nil
}

func (g *scriptedGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends
}

type fixture struct {
	engine   *dispatch.Engine
	prefs    *preference.MemoryStore
	queue    *queue.MemoryStore
	history  *history.MemoryStore
	confirms *confirmation.MemoryStore
	audits   *audit.MemoryStorage
	auditor  *audit.Logger
}

func newFixture(t *testing.T, gateways ...channel.Gateway) *fixture {
	t.Helper()

	prefs := preference.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	t.Cleanup(func() { _ = queueStore.Close() })
	historyStore := history.NewMemoryStore()
	confirms := confirmation.NewMemoryStore()
	audits := audit.NewMemoryStorage()

	auditor, err := audit.NewLogger(audits)
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditor.Close(context.Background()) })

	tracker, err := confirmation.NewTracker(confirms, prefs)
	require.NoError(t, err)

	resolver, err := preference.NewResolver(prefs, channel.NewSelector(gateways...))
	require.NoError(t, err)

	dispatcher, err := dispatch.NewDispatcher(tracker,
		dispatch.WithAuditor(auditor),
		dispatch.WithChannelTimeout(time.Second),
	)
	require.NoError(t, err)

	engine, err := dispatch.NewEngine(resolver, dispatcher, queueStore, historyStore, tracker,
		dispatch.WithEngineAuditor(auditor),
		dispatch.WithMaxRetries(3),
		dispatch.WithRetryDelay(time.Minute),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	return &fixture{
		engine:   engine,
		prefs:    prefs,
		queue:    queueStore,
		history:  historyStore,
		confirms: confirms,
		audits:   audits,
		auditor:  auditor,
	}
}

func testContent(kind notification.Kind) notification.Content {
	return notification.Content{
		Kind:  kind,
		Title: "title",
		Body:  "body",
	}
}

func notifyAndWait(t *testing.T, f *fixture, userID string, content notification.Content) string {
	t.Helper()

	id, err := f.engine.Notify(context.Background(), userID, content)
	require.NoError(t, err)
	require.NoError(t, f.engine.Close())
	return id
}

// No push token, open socket: push is skipped without counting as a
// failure and the socket delivers.
func TestNotifySkipsUnavailablePush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{name: channel.NamePush, available: false}
	socket := &scriptedGateway{name: channel.NameSocket, available: true}
	f := newFixture(t, push, socket)

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindMention))

	assert.Equal(t, 0, push.sendCount())
	assert.Equal(t, 1, socket.sendCount())

	attempts, err := f.confirms.ListByNotification(ctx, id)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, channel.NameSocket, attempts[0].Channel)
	assert.True(t, attempts[0].IsDelivered)

	entry, err := f.history.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, entry.WasDelivered)

	_, err = f.queue.Get(ctx, id)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

// A notification created inside quiet hours is queued until the window
// ends, consuming no retry.
func TestNotifyDefersDuringQuietHours(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	socket := &scriptedGateway{name: channel.NameSocket, available: true}
	f := newFixture(t, socket)

	// A window straddling the current time, so the test holds at any clock.
	now := time.Now().UTC()
	p := preference.Default("user-1")
	p.QuietHours = preference.QuietHours{
		Enabled:  true,
		Start:    now.Add(-time.Hour).Format("15:04"),
		End:      now.Add(time.Hour).Format("15:04"),
		Timezone: "UTC",
	}
	require.NoError(t, f.prefs.Save(ctx, p))

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindComment))

	assert.Equal(t, 0, socket.sendCount())

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, item.RetryCount)
	assert.True(t, item.NextRetryAt.After(time.Now().UTC()))
}

// Push fails transiently twice and succeeds on the third attempt: the
// final confirmation carries retryCount 2 and the queue row is gone.
func TestRetryUntilDelivered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{
		name:      channel.NamePush,
		available: true,
		failWith:  channel.ErrTransient,
		failCount: 2,
	}
	f := newFixture(t, push)

	p := preference.Default("user-1")
	p.Method = preference.MethodPushOnly
	require.NoError(t, f.prefs.Save(ctx, p))

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindMessage))

	// First attempt failed and was queued with one retry consumed.
	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, item.RetryCount)

	// Retry 1 fails again.
	res := f.engine.Redispatch(ctx, item)
	assert.Equal(t, queue.DispositionFailed, res.Disposition)
	require.NoError(t, f.queue.Fail(ctx, id, res.Err.Error()))

	// Retry 2 succeeds.
	item, err = f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.RetryCount)

	res = f.engine.Redispatch(ctx, item)
	assert.Equal(t, queue.DispositionDelivered, res.Disposition)
	require.NoError(t, f.queue.Complete(ctx, id))

	attempts, err := f.confirms.ListByNotification(ctx, id)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].IsDelivered)
	assert.Equal(t, 2, attempts[0].RetryCount)

	entry, err := f.history.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, entry.WasDelivered)

	_, err = f.queue.Get(ctx, id)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

// All retries exhausted: the history entry stays undelivered and a warning
// audit event is written.
func TestExhaustionFinalizesHistoryAndAudits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{
		name:      channel.NamePush,
		available: true,
		failWith:  channel.ErrTransient,
		failCount: -1,
	}
	f := newFixture(t, push)

	p := preference.Default("user-1")
	p.Method = preference.MethodPushOnly
	require.NoError(t, f.prefs.Save(ctx, p))

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindReply))

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)

	item.RetryCount = item.MaxRetries
	f.engine.Exhausted(ctx, item)
	require.NoError(t, f.auditor.Close(ctx))

	entry, err := f.history.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, entry.WasDelivered)

	events, err := f.audits.Find(ctx, audit.Criteria{Type: audit.EventRetriesExhausted})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "user-1", events[0].UserID)
	assert.Equal(t, audit.SeverityWarning, events[0].Severity)
}

// Disabling a kind drops before any channel send and leaves no queue row.
func TestNotifyDropsDisabledKind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	socket := &scriptedGateway{name: channel.NameSocket, available: true}
	f := newFixture(t, socket)

	p := preference.Default("user-1")
	p.KindEnabled = map[notification.Kind]bool{notification.KindLike: false}
	require.NoError(t, f.prefs.Save(ctx, p))

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindLike))

	assert.Equal(t, 0, socket.sendCount())

	_, err := f.queue.Get(ctx, id)
	assert.ErrorIs(t, err, queue.ErrNotFound)

	// Creation still leaves a history record.
	_, err = f.history.Get(ctx, id)
	require.NoError(t, err)
}

// A preference change made while the item waits in the queue is honored on
// the retry: the user disabled the kind, so the retry drops instead of
// sending.
func TestRedispatchReresolvesPreferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{
		name:      channel.NamePush,
		available: true,
		failWith:  channel.ErrTransient,
		failCount: -1,
	}
	f := newFixture(t, push)

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindFollow))

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)

	p := preference.Default("user-1")
	p.KindEnabled = map[notification.Kind]bool{notification.KindFollow: false}
	require.NoError(t, f.prefs.Save(ctx, p))

	res := f.engine.Redispatch(ctx, item)
	assert.Equal(t, queue.DispositionDropped, res.Disposition)
	assert.Equal(t, 1, push.sendCount())
}

func TestDeliveryStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	push := &scriptedGateway{
		name:      channel.NamePush,
		available: true,
		failWith:  channel.ErrTransient,
		failCount: -1,
	}
	f := newFixture(t, push)

	id := notifyAndWait(t, f, "user-1", testContent(notification.KindMention))

	status, err := f.engine.DeliveryStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, status.Entry.WasDelivered)
	require.Len(t, status.Attempts, 1)
	assert.Equal(t, channel.NamePush, status.Attempts[0].Channel)
	require.NotNil(t, status.Queued)
	assert.Equal(t, 1, status.Queued.RetryCount)

	_, err = f.engine.DeliveryStatus(ctx, "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestNotifyValidatesInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &scriptedGateway{name: channel.NameSocket, available: true})

	_, err := f.engine.Notify(context.Background(), "", testContent(notification.KindMention))
	assert.ErrorIs(t, err, notification.ErrInvalidContent)

	_, err = f.engine.Notify(context.Background(), "user-1", notification.Content{Kind: "bogus"})
	assert.ErrorIs(t, err, notification.ErrInvalidContent)
}

func newCapEngine(t *testing.T, perHour int, gateways ...channel.Gateway) (*dispatch.Engine, *queue.MemoryStore, *history.MemoryStore, *ratelimit.Window) {
	t.Helper()

	ctx := context.Background()
	prefs := preference.NewMemoryStore()
	p := preference.Default("user-1")
	p.Caps = preference.FrequencyCaps{Enabled: true, PerHour: perHour}
	require.NoError(t, prefs.Save(ctx, p))

	rlStore := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = rlStore.Close() })
	hourly, err := ratelimit.NewWindow(rlStore, time.Hour)
	require.NoError(t, err)

	queueStore := queue.NewMemoryStore()
	t.Cleanup(func() { _ = queueStore.Close() })
	historyStore := history.NewMemoryStore()

	tracker, err := confirmation.NewTracker(confirmation.NewMemoryStore(), prefs)
	require.NoError(t, err)

	resolver, err := preference.NewResolver(prefs, channel.NewSelector(gateways...),
		preference.WithFrequencyWindows(hourly, nil))
	require.NoError(t, err)

	dispatcher, err := dispatch.NewDispatcher(tracker)
	require.NoError(t, err)

	engine, err := dispatch.NewEngine(resolver, dispatcher, queueStore, historyStore, tracker)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	return engine, queueStore, historyStore, hourly
}

// Concurrent in-flight notifications for one user must not overshoot the
// frequency cap: the slot is claimed atomically at resolution, not counted
// after delivery.
func TestConcurrentNotifiesRespectFrequencyCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	socket := &scriptedGateway{name: channel.NameSocket, available: true}
	engine, queueStore, historyStore, _ := newCapEngine(t, 2, socket)

	ids := make([]string, 6)
	for i := range ids {
		id, err := engine.Notify(ctx, "user-1", testContent(notification.KindMention))
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, engine.Close())

	delivered := 0
	for _, id := range ids {
		entry, err := historyStore.Get(ctx, id)
		require.NoError(t, err)
		if entry.WasDelivered {
			delivered++
			continue
		}
		// Everything over the cap was deferred into the queue.
		item, err := queueStore.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, item.RetryCount)
		assert.True(t, item.NextRetryAt.After(time.Now()))
	}
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 2, socket.sendCount())
}

// A dispatch that fails on every channel refunds its cap slot, so failed
// attempts never count against the user's budget.
func TestFailedDispatchRefundsFrequencyCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	socket := &scriptedGateway{name: channel.NameSocket, available: true, failWith: channel.ErrTransient, failCount: -1}
	engine, queueStore, _, hourly := newCapEngine(t, 1, socket)

	id, err := engine.Notify(ctx, "user-1", testContent(notification.KindMention))
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	item, err := queueStore.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, item.RetryCount)

	res, err := hourly.Check(ctx, preference.HourlyCapKey("user-1"), 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Count)
}
