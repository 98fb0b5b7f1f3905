package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Payphone-Digital/auth/internal/dto"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/model"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUsers
	codes    *fakeCodes
	sessions *fakeSessions
	notifier *fakeNotifier
	google   *fakeGoogle
	verify   *VerificationService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUsers()
	codes := newFakeCodes()
	sessions := newFakeSessions()
	notifier := &fakeNotifier{}
	google := &fakeGoogle{}

	jwtService := NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)
	verify := NewVerificationService(users, codes, notifier, testCodeTTL, testResendCooldown)
	verify.generateCode = func() (string, error) { return "123456", nil }

	svc := NewAuthService(users, sessions, jwtService, plainHasher{}, verify, google)
	return &authFixture{
		svc:      svc,
		users:    users,
		codes:    codes,
		sessions: sessions,
		notifier: notifier,
		google:   google,
		verify:   verify,
	}
}

func (f *authFixture) register(t *testing.T, email string) *dto.UserResponse {
	t.Helper()
	user, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Alice",
		Email:    email,
		Password: "secret",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterCreatesUnverifiedAccountAndSendsCode(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "alice@example.com")
	assert.False(t, user.Verified)
	assert.Equal(t, string(model.ProviderLocal), user.AuthProvider)
	assert.Equal(t, "123456", f.notifier.lastCode())

	stored, err := f.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:secret", stored.Password)
}

func TestRegisterRejectsOccupiedEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Imposter",
		Email:    "alice@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestRegisterHintsAtProviderForOAuthAccounts(t *testing.T) {
	f := newAuthFixture(t)
	f.google.info = &GoogleUserInfo{ID: "g-1", Email: "alice@example.com", Name: "Alice"}
	_, err := f.svc.RegisterWithGoogle(context.Background(), "google-token")
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
	assert.Contains(t, apperrors.GetErrorMessage(err), "Google")
}

func TestLoginRequiresVerification(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret",
	})
	assert.ErrorIs(t, err, apperrors.ErrAccountUnverified)
}

func TestLoginFullLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")

	already, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.False(t, already)

	login, err := f.svc.Login(ctx, &dto.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, int((15 * time.Minute).Seconds()), login.ExpiresIn)
	assert.True(t, f.sessions.IsUsable(ctx, login.AccessToken))
	assert.True(t, f.sessions.IsUsable(ctx, login.RefreshToken))

	// Refresh rotates the access token; the refresh token stays live.
	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.False(t, f.sessions.IsUsable(ctx, login.AccessToken))
	assert.True(t, f.sessions.IsUsable(ctx, refreshed.AccessToken))
	assert.True(t, f.sessions.IsUsable(ctx, login.RefreshToken))
}

func TestLoginReturnsSameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	_, errUnknown := f.svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "secret"})
	_, errWrongPw := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "wrong"})

	assert.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, apperrors.ErrInvalidCredentials)
	assert.Equal(t, apperrors.GetErrorMessage(errUnknown), apperrors.GetErrorMessage(errWrongPw))
}

func TestLoginRotatesPriorSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	first, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	second, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.False(t, f.sessions.IsUsable(ctx, first.AccessToken))
	assert.False(t, f.sessions.IsUsable(ctx, first.RefreshToken))
	assert.True(t, f.sessions.IsUsable(ctx, second.AccessToken))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrWrongTokenType)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, user.ID))

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestLogoutRevokesEverything(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, user.ID))

	assert.False(t, f.sessions.IsUsable(ctx, login.AccessToken))
	assert.False(t, f.sessions.IsUsable(ctx, login.RefreshToken))
}

func TestGoogleLoginCreatesVerifiedAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.google.info = &GoogleUserInfo{
		ID:      "g-1",
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://example.com/alice.png",
	}

	login, err := f.svc.LoginWithGoogle(context.Background(), "google-token")
	require.NoError(t, err)
	assert.True(t, login.User.Verified)
	assert.Equal(t, string(model.ProviderGoogle), login.User.AuthProvider)
	assert.Equal(t, "https://example.com/alice.png", login.User.AvatarURL)
	assert.NotEmpty(t, login.AccessToken)
}

func TestGoogleLoginMigratesLocalAccountOnExactEmailMatch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	_, err := f.verify.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)

	f.google.info = &GoogleUserInfo{ID: "g-1", Email: "alice@example.com", Name: "Alice"}

	login, err := f.svc.LoginWithGoogle(ctx, "google-token")
	require.NoError(t, err)
	assert.Equal(t, string(model.ProviderGoogle), login.User.AuthProvider)

	stored, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGoogle, stored.AuthProvider)
	require.NotNil(t, stored.ExternalID)
	assert.Equal(t, "g-1", *stored.ExternalID)

	// Password login is gone after migration.
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret"})
	assert.ErrorIs(t, err, apperrors.ErrWrongProvider)
}

func TestGoogleLoginDoesNotMigrateDifferentEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com")
	f.google.info = &GoogleUserInfo{ID: "g-1", Email: "alice+work@example.com", Name: "Alice"}

	_, err := f.svc.LoginWithGoogle(ctx, "google-token")
	require.NoError(t, err)

	// The local account is untouched; a second, separate account exists.
	local, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderLocal, local.AuthProvider)

	created, err := f.users.GetByEmail(ctx, "alice+work@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGoogle, created.AuthProvider)
}

func TestGoogleRegisterRejectsAnyExistingAccount(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "alice@example.com")
	f.google.info = &GoogleUserInfo{ID: "g-1", Email: "alice@example.com", Name: "Alice"}

	_, err := f.svc.RegisterWithGoogle(context.Background(), "google-token")
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestGoogleLoginPropagatesProviderFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.google.err = apperrors.ErrInvalidToken

	_, err := f.svc.LoginWithGoogle(context.Background(), "bad-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
