package mailer

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrInvalidConfig = errors.New("mailer: invalid configuration")
	ErrSendFailed    = errors.New("mailer: failed to send email")
)

// Config holds outbound email settings
type Config struct {
	PostmarkServerToken  string
	PostmarkAccountToken string
	SenderEmail          string
	SenderName           string
}

// Message is a rendered email ready for a transport.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	Tag      string
}

// Sender delivers rendered messages. Implementations must be safe for
// concurrent use; callers never block a request on delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
