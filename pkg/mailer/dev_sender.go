package mailer

import (
	"context"

	"go.uber.org/zap"
)

// devSender logs instead of delivering. Used when MAIL_ENABLED=false so
// local environments never need provider credentials.
type devSender struct {
	logger *zap.Logger
}

// NewDevSender creates a log-only sender for development environments.
func NewDevSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &devSender{logger: logger}
}

func (s *devSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Email delivery skipped (dev sender)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.Int("body_size", len(msg.HTMLBody)),
	)
	return nil
}
