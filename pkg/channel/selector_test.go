package channel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// fakeGateway is a controllable Gateway for selector and classification tests.
type fakeGateway struct {
	name      channel.Name
	available bool
	sendErr   error
}

func (f *fakeGateway) Name() channel.Name { return f.name }

func (f *fakeGateway) Available(ctx context.Context, userID string) bool { return f.available }

func (f *fakeGateway) Send(ctx context.Context, userID string, content notification.Content) error {
	return f.sendErr
}

func TestSelectorAutoOrder(t *testing.T) {
	t.Parallel()

	push := &fakeGateway{name: channel.NamePush, available: true}
	socket := &fakeGateway{name: channel.NameSocket, available: true}
	mail := &fakeGateway{name: channel.NameEmail, available: true}

	s := channel.NewSelector(mail, push, socket)
	order := s.Order(context.Background(), "user-1", "")

	require.Len(t, order, 3)
	assert.Equal(t, channel.NamePush, order[0].Name())
	assert.Equal(t, channel.NameSocket, order[1].Name())
	assert.Equal(t, channel.NameEmail, order[2].Name())
}

func TestSelectorSkipsUnavailable(t *testing.T) {
	t.Parallel()

	push := &fakeGateway{name: channel.NamePush, available: false}
	socket := &fakeGateway{name: channel.NameSocket, available: true}
	mail := &fakeGateway{name: channel.NameEmail, available: false}

	s := channel.NewSelector(push, socket, mail)
	order := s.Order(context.Background(), "user-1", "")

	require.Len(t, order, 1)
	assert.Equal(t, channel.NameSocket, order[0].Name())
}

func TestSelectorOnlyCollapsesChain(t *testing.T) {
	t.Parallel()

	push := &fakeGateway{name: channel.NamePush, available: true}
	mail := &fakeGateway{name: channel.NameEmail, available: true}

	s := channel.NewSelector(push, mail)
	order := s.Order(context.Background(), "user-1", channel.NameEmail)

	require.Len(t, order, 1)
	assert.Equal(t, channel.NameEmail, order[0].Name())
}

func TestSelectorEmptyWhenNothingReachable(t *testing.T) {
	t.Parallel()

	push := &fakeGateway{name: channel.NamePush, available: false}

	s := channel.NewSelector(push)
	assert.Empty(t, s.Order(context.Background(), "user-1", ""))
	assert.Empty(t, s.Order(context.Background(), "user-1", channel.NameSocket))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want channel.Outcome
	}{
		{name: "nil is delivered", err: nil, want: channel.OutcomeDelivered},
		{name: "transient sentinel", err: channel.ErrTransient, want: channel.OutcomeTransient},
		{name: "permanent sentinel", err: channel.ErrPermanent, want: channel.OutcomePermanent},
		{name: "missing configuration", err: channel.ErrConfigurationMissing, want: channel.OutcomePermanent},
		{name: "not connected", err: channel.ErrNotConnected, want: channel.OutcomePermanent},
		{name: "inactive recipient", err: email.ErrInactiveRecipient, want: channel.OutcomePermanent},
		{name: "timeout", err: context.DeadlineExceeded, want: channel.OutcomeTransient},
		{name: "unknown defaults to transient", err: errors.New("socket reset"), want: channel.OutcomeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, channel.Classify(tt.err))
		})
	}
}
