package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestContentValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content notification.Content
		wantErr error
	}{
		{
			name: "valid without payload",
			content: notification.Content{
				Kind:  notification.KindMention,
				Title: "You were mentioned",
				Body:  "@alice mentioned you in a post",
			},
		},
		{
			name: "valid with post payload",
			content: notification.Content{
				Kind:  notification.KindReply,
				Title: "New reply",
				Payload: &notification.Payload{
					Type: notification.PayloadPost,
					Post: &notification.Post{ID: "post-1", AuthorID: "user-2"},
				},
			},
		},
		{
			name: "unknown kind",
			content: notification.Content{
				Kind:  notification.Kind("newsletter"),
				Title: "Weekly digest",
			},
			wantErr: notification.ErrInvalidContent,
		},
		{
			name: "missing title",
			content: notification.Content{
				Kind: notification.KindLike,
			},
			wantErr: notification.ErrInvalidContent,
		},
		{
			name: "payload tag without matching arm",
			content: notification.Content{
				Kind:  notification.KindFollow,
				Title: "New follower",
				Payload: &notification.Payload{
					Type: notification.PayloadUser,
					Post: &notification.Post{ID: "post-1"},
				},
			},
			wantErr: notification.ErrInvalidPayload,
		},
		{
			name: "payload with two arms",
			content: notification.Content{
				Kind:  notification.KindFollow,
				Title: "New follower",
				Payload: &notification.Payload{
					Type: notification.PayloadUser,
					User: &notification.User{ID: "user-1", Username: "alice"},
					Post: &notification.Post{ID: "post-1"},
				},
			},
			wantErr: notification.ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.content.Validate()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKindUrgent(t *testing.T) {
	t.Parallel()

	assert.True(t, notification.KindModeration.Urgent())
	assert.True(t, notification.KindSystem.Urgent())
	assert.True(t, notification.KindPayment.Urgent())
	assert.False(t, notification.KindLike.Urgent())
	assert.False(t, notification.KindMention.Urgent())
}
