package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Payphone-Digital/auth/internal/constants"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
)

// VerificationService manages email verification codes: issuing them on
// registration, validating them, and resending under a cooldown.
type VerificationService struct {
	users    userStore
	codes    verificationCodeStore
	notifier Notifier

	codeTTL        time.Duration
	resendCooldown time.Duration

	// overridable for deterministic tests
	generateCode func() (string, error)
	now          func() time.Time
}

func NewVerificationService(users userStore, codes verificationCodeStore, notifier Notifier, codeTTL, resendCooldown time.Duration) *VerificationService {
	return &VerificationService{
		users:          users,
		codes:          codes,
		notifier:       notifier,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		generateCode:   randomDigits,
		now:            time.Now,
	}
}

// randomDigits produces a zero-padded numeric code of VerificationCodeLength.
func randomDigits() (string, error) {
	upper := big.NewInt(1)
	for i := 0; i < constants.VerificationCodeLength; i++ {
		upper.Mul(upper, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", constants.VerificationCodeLength, n), nil
}

// Issue replaces any prior code for the user with a fresh one and queues the
// notification email. Codes are globally unique; generation retries a bounded
// number of times on collision.
func (s *VerificationService) Issue(ctx context.Context, user *model.User) error {
	ctx = ctxutil.NewRequestContext(ctx, "verification", "Issue")

	var code string
	for attempt := 0; ; attempt++ {
		if attempt >= constants.VerificationCodeAttempts {
			return apperrors.ErrCodeExhausted
		}

		candidate, err := s.generateCode()
		if err != nil {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}

		exists, err := s.codes.ExistsByCode(ctx, candidate)
		if err != nil {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if !exists {
			code = candidate
			break
		}
	}

	record := &model.VerificationCode{
		Code:      code,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.codeTTL),
	}
	if err := s.codes.ReplaceForUser(ctx, record); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Verification code issued").
		Uint("user_id", user.ID).
		Log()

	s.notifier.VerificationCodeIssued(user, code, s.codeTTL)
	return nil
}

// Verify checks the submitted code for the given email and marks the account
// verified. A second call with the same valid code succeeds without touching
// anything; the returned flag reports that case. The code is checked before
// the idempotent path so a wrong code is rejected even for a verified
// account.
func (s *VerificationService) Verify(ctx context.Context, email, code string) (alreadyVerified bool, err error) {
	ctx = ctxutil.NewRequestContext(ctx, "verification", "Verify")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, apperrors.ErrUserNotFound
	}

	record, err := s.codes.GetByCode(ctx, code)
	if err != nil || record.UserID != user.ID {
		return false, apperrors.ErrInvalidCode
	}

	if record.Verified || user.Verified {
		return true, nil
	}

	if record.IsExpired(s.now()) {
		return false, apperrors.ErrCodeExpired
	}

	if err := s.codes.MarkVerified(ctx, record.ID); err != nil {
		return false, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return false, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account verified").
		Uint("user_id", user.ID).
		Log()

	s.notifier.AccountVerified(user)
	return false, nil
}

// Resend issues a fresh code unless the previous one was issued within the
// cooldown window. An already verified account is reported via the flag and
// receives no code.
func (s *VerificationService) Resend(ctx context.Context, email string) (alreadyVerified bool, err error) {
	ctx = ctxutil.NewRequestContext(ctx, "verification", "Resend")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, apperrors.ErrUserNotFound
	}

	if user.Verified {
		return true, nil
	}

	// The issue time is reconstructed from the stored expiry.
	if prior, err := s.codes.GetLiveByUser(ctx, user.ID); err == nil && prior != nil {
		issuedAt := prior.ExpiresAt.Add(-s.codeTTL)
		if s.now().Sub(issuedAt) < s.resendCooldown {
			return false, apperrors.ErrResendCooldown
		}
	}

	if err := s.Issue(ctx, user); err != nil {
		return false, err
	}
	return false, nil
}
