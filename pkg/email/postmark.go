package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// Postmark API error code for recipients that hard-bounced or manually
// deactivated their address.
const postmarkInactiveRecipient = 406

type postmarkSender struct {
	client *postmark.Client
	from   string
}

// NewPostmarkSender creates a Postmark-backed sender. Both tokens and the
// sender address are required; failing fast here beats discovering a broken
// email channel on first dispatch.
func NewPostmarkSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" || !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SenderEmail,
	}, nil
}

// Send implements Sender using Postmark's transactional API. Inactive
// recipients are surfaced as ErrInactiveRecipient so the delivery pipeline
// can stop retrying that address.
func (s *postmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.BodyHTML,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode == postmarkInactiveRecipient {
		return fmt.Errorf("%w: %s", ErrInactiveRecipient, resp.Message)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
