package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/Payphone-Digital/auth/internal/constants"
	"github.com/Payphone-Digital/auth/internal/dto"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"gorm.io/gorm"
)

// PasswordResetService owns the forgot-password flow: opaque single-use
// tokens with a fixed lifetime, restricted to verified local accounts.
type PasswordResetService struct {
	users    userStore
	tokens   resetTokenStore
	hasher   PasswordHasher
	notifier Notifier

	tokenTTL time.Duration

	generateToken func() (string, error)
	now           func() time.Time
}

func NewPasswordResetService(users userStore, tokens resetTokenStore, hasher PasswordHasher, notifier Notifier, tokenTTL time.Duration) *PasswordResetService {
	return &PasswordResetService{
		users:         users,
		tokens:        tokens,
		hasher:        hasher,
		notifier:      notifier,
		tokenTTL:      tokenTTL,
		generateToken: randomResetToken,
		now:           time.Now,
	}
}

func randomResetToken() (string, error) {
	raw := make([]byte, constants.ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// requireLocal rejects accounts that authenticate through an external
// provider, pointing the user at the right sign-in method.
func requireLocal(user *model.User) error {
	if user.IsLocal() {
		return nil
	}
	return apperrors.WithMessage(apperrors.ErrWrongProvider,
		user.AuthProvider.LoginHint())
}

// Request issues a reset token for a verified local account and queues the
// email carrying the reset link. Any prior token for the user is discarded.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	ctx = ctxutil.NewRequestContext(ctx, "password_reset", "Request")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	if !user.Verified {
		return apperrors.ErrAccountUnverified
	}
	if err := requireLocal(user); err != nil {
		return err
	}

	var token string
	for {
		candidate, err := s.generateToken()
		if err != nil {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}
		exists, err := s.tokens.ExistsByToken(ctx, candidate)
		if err != nil {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if !exists {
			token = candidate
			break
		}
	}

	record := &model.PasswordResetToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.tokens.ReplaceForUser(ctx, record); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Password reset token issued").
		Uint("user_id", user.ID).
		Log()

	s.notifier.PasswordResetRequested(user, token, s.tokenTTL)
	return nil
}

// Validate reports the state of a reset token without consuming it. It is
// meant for the pre-flight check a reset form performs before the user types
// a new password.
func (s *PasswordResetService) Validate(ctx context.Context, token string) *dto.ResetTokenStatus {
	ctx = ctxutil.NewRequestContext(ctx, "password_reset", "Validate")

	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return &dto.ResetTokenStatus{Valid: false, Reason: "not_found"}
	}
	if record.Used {
		return &dto.ResetTokenStatus{Valid: false, Reason: "used"}
	}
	if record.IsExpired(s.now()) {
		return &dto.ResetTokenStatus{Valid: false, Reason: "expired"}
	}

	remaining := int(record.ExpiresAt.Sub(s.now()).Minutes())
	return &dto.ResetTokenStatus{Valid: true, MinutesRemaining: remaining}
}

// Reset consumes a valid token, replaces the password, and revokes every
// session token the user holds so stolen sessions die with the old password.
func (s *PasswordResetService) Reset(ctx context.Context, token, password, confirmPassword string) error {
	ctx = ctxutil.NewRequestContext(ctx, "password_reset", "Reset")

	if password != confirmPassword {
		return apperrors.ErrPasswordMismatch
	}

	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}
	if record.Used {
		return apperrors.ErrResetTokenUsed
	}
	if record.IsExpired(s.now()) {
		return apperrors.ErrResetTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}
	if err := requireLocal(user); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	// The consume, password update, and session revocation commit together
	// or not at all. A lost race on the single-use token surfaces here as
	// gorm.ErrRecordNotFound.
	if err := s.tokens.CompleteReset(ctx, record.ID, user.ID, hashed); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrResetTokenUsed
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Password reset completed").
		Uint("user_id", user.ID).
		Log()

	s.notifier.PasswordChanged(user)
	return nil
}
