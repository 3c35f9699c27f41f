package notification

import "fmt"

// Kind identifies the event that produced a notification.
type Kind string

const (
	KindMention    Kind = "mention"
	KindReply      Kind = "reply"
	KindLike       Kind = "like"
	KindFollow     Kind = "follow"
	KindComment    Kind = "comment"
	KindMessage    Kind = "message"
	KindModeration Kind = "moderation"
	KindPayment    Kind = "payment"
	KindSystem     Kind = "system"
)

var validKinds = map[Kind]struct{}{
	KindMention: {}, KindReply: {}, KindLike: {}, KindFollow: {},
	KindComment: {}, KindMessage: {}, KindModeration: {}, KindPayment: {},
	KindSystem: {},
}

// Valid reports whether the kind is a known notification kind.
func (k Kind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// Urgent kinds bypass quiet hours. Moderation actions, payment events and
// system messages must reach the user regardless of the configured window.
func (k Kind) Urgent() bool {
	switch k {
	case KindModeration, KindPayment, KindSystem:
		return true
	default:
		return false
	}
}

// Content is the immutable message handed to the delivery pipeline.
// The producing event owns it; nothing downstream mutates it.
type Content struct {
	Kind    Kind              `json:"kind"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
	Payload *Payload          `json:"payload,omitempty"`
}

// Validate checks that the content can enter the pipeline.
func (c Content) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidContent, c.Kind)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidContent)
	}
	if c.Payload != nil {
		if err := c.Payload.Validate(); err != nil {
			return err
		}
	}
	return nil
}
