package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Payphone-Digital/auth/internal/model"
	"github.com/Payphone-Digital/auth/pkg/circuit"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"github.com/Payphone-Digital/auth/pkg/mailer"
)

const notificationQueueSize = 256

// NotificationService delivers transactional email off the request path.
// Messages are queued to a background worker; delivery failures are logged
// and never propagate back into the originating flow.
type NotificationService struct {
	sender  mailer.Sender
	breaker *circuit.Breaker
	baseURL string

	queue chan mailer.Message
	wg    sync.WaitGroup
	once  sync.Once
}

func NewNotificationService(sender mailer.Sender, breaker *circuit.Breaker, baseURL string) *NotificationService {
	s := &NotificationService{
		sender:  sender,
		breaker: breaker,
		baseURL: baseURL,
		queue:   make(chan mailer.Message, notificationQueueSize),
	}

	s.wg.Add(1)
	go s.deliverLoop()

	return s
}

// deliverLoop drains the queue until Close
func (s *NotificationService) deliverLoop() {
	defer s.wg.Done()

	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.sender.Send(ctx, msg)
		})
		cancel()

		if err != nil {
			logger.ErrorWithContext(ctx, "Failed to deliver notification email").
				String("to", msg.To).
				String("tag", msg.Tag).
				Err(err).
				Log()
		}
	}
}

// Close stops accepting messages and waits for in-flight deliveries.
func (s *NotificationService) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

// enqueue renders and queues a message; a full queue drops the message
// rather than blocking the request.
func (s *NotificationService) enqueue(template, to string, data any) {
	msg, err := mailer.Render(template, to, data)
	if err != nil {
		logger.GetLogger().Error("Failed to render notification email")
		return
	}

	select {
	case s.queue <- msg:
	default:
		logger.GetLogger().Warn("Notification queue full, dropping email")
	}
}

func (s *NotificationService) VerificationCodeIssued(user *model.User, code string, ttl time.Duration) {
	s.enqueue(mailer.TemplateVerificationCode, user.Email, map[string]any{
		"Name":           user.Name,
		"Code":           code,
		"ExpiresMinutes": int(ttl.Minutes()),
	})
}

func (s *NotificationService) AccountVerified(user *model.User) {
	s.enqueue(mailer.TemplateWelcome, user.Email, map[string]any{
		"Name": user.Name,
	})
}

func (s *NotificationService) PasswordResetRequested(user *model.User, token string, ttl time.Duration) {
	s.enqueue(mailer.TemplatePasswordReset, user.Email, map[string]any{
		"Name":           user.Name,
		"ResetLink":      fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token),
		"ExpiresMinutes": int(ttl.Minutes()),
	})
}

func (s *NotificationService) PasswordChanged(user *model.User) {
	s.enqueue(mailer.TemplatePasswordChanged, user.Email, map[string]any{
		"Name": user.Name,
	})
}
