package notification

import "fmt"

// PayloadType tags the entity a notification refers to.
type PayloadType string

const (
	PayloadPost  PayloadType = "post"
	PayloadUser  PayloadType = "user"
	PayloadTopic PayloadType = "topic"
)

// Post is a reference to the post that triggered the notification.
type Post struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Preview  string `json:"preview,omitempty"`
}

// User is a reference to the user that triggered the notification.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// Topic is a reference to the topic a notification relates to.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Payload is a tagged variant: Type names the entity and exactly one of the
// arms is set. Replaces the untyped "content can be any entity" pattern.
type Payload struct {
	Type  PayloadType `json:"type"`
	Post  *Post       `json:"post,omitempty"`
	User  *User       `json:"user,omitempty"`
	Topic *Topic      `json:"topic,omitempty"`
}

// Validate checks that the arm set matches the declared type and that no
// other arm is populated.
func (p Payload) Validate() error {
	set := 0
	if p.Post != nil {
		set++
	}
	if p.User != nil {
		set++
	}
	if p.Topic != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one payload arm must be set, got %d", ErrInvalidPayload, set)
	}

	switch p.Type {
	case PayloadPost:
		if p.Post == nil {
			return fmt.Errorf("%w: type %q requires the post arm", ErrInvalidPayload, p.Type)
		}
	case PayloadUser:
		if p.User == nil {
			return fmt.Errorf("%w: type %q requires the user arm", ErrInvalidPayload, p.Type)
		}
	case PayloadTopic:
		if p.Topic == nil {
			return fmt.Errorf("%w: type %q requires the topic arm", ErrInvalidPayload, p.Type)
		}
	default:
		return fmt.Errorf("%w: unknown payload type %q", ErrInvalidPayload, p.Type)
	}
	return nil
}
