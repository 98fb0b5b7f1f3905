package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/model"
)

const testResetTTL = time.Hour

func newResetFixture(t *testing.T) (*PasswordResetService, *fakeUsers, *fakeResetTokens, *fakeSessions, *fakeNotifier) {
	t.Helper()
	users := newFakeUsers()
	sessions := newFakeSessions()
	tokens := newFakeResetTokens(users, sessions)
	notifier := &fakeNotifier{}
	svc := NewPasswordResetService(users, tokens, plainHasher{}, notifier, testResetTTL)
	return svc, users, tokens, sessions, notifier
}

func TestRequestIssuesToken(t *testing.T) {
	svc, users, tokens, _, notifier := newResetFixture(t)
	user := createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))

	token := notifier.lastResetToken()
	require.NotEmpty(t, token)

	record, err := tokens.GetByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
	assert.False(t, record.Used)
}

func TestRequestReplacesPriorToken(t *testing.T) {
	svc, users, tokens, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	first := notifier.lastResetToken()

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	second := notifier.lastResetToken()
	require.NotEqual(t, first, second)

	_, err := tokens.GetByToken(context.Background(), first)
	assert.Error(t, err, "first token must be discarded by the second request")
}

func TestRequestRejectsUnknownEmail(t *testing.T) {
	svc, _, _, _, _ := newResetFixture(t)

	err := svc.Request(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestRequestRejectsUnverifiedAccount(t *testing.T) {
	svc, users, _, _, _ := newResetFixture(t)
	createUser(t, users, "alice@example.com", false)

	err := svc.Request(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, apperrors.ErrAccountUnverified)
}

func TestRequestRejectsExternalProviderAccount(t *testing.T) {
	svc, users, _, _, _ := newResetFixture(t)
	user := createUser(t, users, "alice@example.com", true)
	require.NoError(t, users.update(user.ID, func(u *model.User) { u.AuthProvider = model.ProviderGoogle }))

	err := svc.Request(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, apperrors.ErrWrongProvider)
	assert.Contains(t, apperrors.GetErrorMessage(err), "Google")
}

func TestValidateReportsTokenState(t *testing.T) {
	svc, users, tokens, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	status := svc.Validate(context.Background(), token)
	assert.True(t, status.Valid)
	assert.InDelta(t, 59, status.MinutesRemaining, 1)

	status = svc.Validate(context.Background(), "no-such-token")
	assert.False(t, status.Valid)
	assert.Equal(t, "not_found", status.Reason)

	record, err := tokens.GetByToken(context.Background(), token)
	require.NoError(t, err)
	tokens.markUsed(record.ID)

	status = svc.Validate(context.Background(), token)
	assert.False(t, status.Valid)
	assert.Equal(t, "used", status.Reason)
}

func TestValidateReportsExpiredToken(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }
	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	svc.now = func() time.Time { return issuedAt.Add(testResetTTL + time.Second) }
	status := svc.Validate(context.Background(), token)
	assert.False(t, status.Valid)
	assert.Equal(t, "expired", status.Reason)
}

func TestValidateDoesNotConsumeToken(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	for i := 0; i < 3; i++ {
		status := svc.Validate(context.Background(), token)
		assert.True(t, status.Valid)
	}
}

func TestResetReplacesPasswordAndRevokesSessions(t *testing.T) {
	svc, users, tokens, sessions, notifier := newResetFixture(t)
	user := createUser(t, users, "alice@example.com", true)

	require.NoError(t, sessions.RotateForLogin(context.Background(), user.ID, "access-1", "refresh-1"))

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	require.NoError(t, svc.Reset(context.Background(), token, "newsecret", "newsecret"))

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:newsecret", stored.Password)

	assert.False(t, sessions.IsUsable(context.Background(), "access-1"))
	assert.False(t, sessions.IsUsable(context.Background(), "refresh-1"))

	record, err := tokens.GetByToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, record.Used)
	assert.Equal(t, 1, notifier.passwordNotes)
}

func TestResetRejectsMismatchedConfirmation(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	err := svc.Reset(context.Background(), token, "newsecret", "different")
	assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)

	// Token survives the failed attempt.
	status := svc.Validate(context.Background(), token)
	assert.True(t, status.Valid)
}

func TestResetTokenIsSingleUse(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	require.NoError(t, svc.Reset(context.Background(), token, "newsecret", "newsecret"))

	err := svc.Reset(context.Background(), token, "another", "another")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)
}

func TestResetLosesRaceToCompetingConsume(t *testing.T) {
	svc, users, tokens, _, notifier := newResetFixture(t)
	user := createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	record, err := tokens.GetByToken(context.Background(), token)
	require.NoError(t, err)

	// A competing reset consumes the token between this reset's read and
	// its conditional consume. The late writer must not win.
	tokens.beforeConsume = func() {
		tokens.beforeConsume = nil
		tokens.markUsed(record.ID)
	}

	err = svc.Reset(context.Background(), token, "newsecret", "newsecret")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hashed:newsecret", stored.Password)
	assert.Equal(t, 0, notifier.passwordNotes)
}

func TestConcurrentResetsConsumeTokenOnce(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	results := make(chan error, 2)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			results <- svc.Reset(context.Background(), token, "newsecret", "newsecret")
		}()
	}
	start.Done()

	var succeeded, lost int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)
			lost++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, lost)
}

func TestResetFailsWhenSessionRevocationFails(t *testing.T) {
	svc, users, tokens, sessions, notifier := newResetFixture(t)
	user := createUser(t, users, "alice@example.com", true)

	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	sessions.revokeErr = errors.New("connection reset by peer")

	err := svc.Reset(context.Background(), token, "newsecret", "newsecret")
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	// Nothing committed: the old password still stands and the token is
	// still live for a retry.
	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hashed:newsecret", stored.Password)

	record, err := tokens.GetByToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, record.Used)
	assert.Equal(t, 0, notifier.passwordNotes)
}

func TestResetRejectsExpiredToken(t *testing.T) {
	svc, users, _, _, notifier := newResetFixture(t)
	createUser(t, users, "alice@example.com", true)

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }
	require.NoError(t, svc.Request(context.Background(), "alice@example.com"))
	token := notifier.lastResetToken()

	svc.now = func() time.Time { return issuedAt.Add(testResetTTL + time.Second) }
	err := svc.Reset(context.Background(), token, "newsecret", "newsecret")
	assert.ErrorIs(t, err, apperrors.ErrResetTokenExpired)
}

func TestResetRejectsUnknownToken(t *testing.T) {
	svc, _, _, _, _ := newResetFixture(t)

	err := svc.Reset(context.Background(), "no-such-token", "newsecret", "newsecret")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
}
