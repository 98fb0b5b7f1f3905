package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/Payphone-Digital/auth/internal/dto"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
)

// AuthService orchestrates account registration, login, session refresh and
// the Google sign-in flows. It owns no storage of its own; every mutation
// goes through the injected stores.
type AuthService struct {
	users        userStore
	sessions     sessionTokenStore
	jwt          *JWTService
	hasher       PasswordHasher
	verification *VerificationService
	google       GoogleUserInfoProvider
}

func NewAuthService(users userStore, sessions sessionTokenStore, jwt *JWTService, hasher PasswordHasher, verification *VerificationService, google GoogleUserInfoProvider) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		jwt:          jwt,
		hasher:       hasher,
		verification: verification,
		google:       google,
	}
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		AuthProvider:    string(user.AuthProvider),
		Verified:        user.Verified,
		ProfileComplete: user.ProfileComplete,
		AvatarURL:       user.AvatarURL,
		LastActive:      user.LastActive,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

// Register creates an unverified local account and issues its first
// verification code. An occupied email is rejected with a hint at the
// sign-in method the existing account uses.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "Register")

	if existing, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		if !existing.IsLocal() {
			return nil, apperrors.WithMessage(apperrors.ErrEmailExists, existing.AuthProvider.LoginHint())
		}
		return nil, apperrors.ErrEmailExists
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashed,
		AuthProvider: model.ProviderLocal,
		LastActive:   time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account registered").
		Uint("user_id", user.ID).
		Log()

	if err := s.verification.Issue(ctx, user); err != nil {
		// The account exists; the user can recover through resend.
		logger.WarnWithContext(ctx, "Failed to issue verification code after registration").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// Login authenticates a verified local account and rotates its session:
// every previously issued token is revoked before the new pair is recorded.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "Login")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsLocal() {
		return nil, apperrors.WithMessage(apperrors.ErrWrongProvider, user.AuthProvider.LoginHint())
	}
	if !s.hasher.Verify(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, apperrors.ErrAccountUnverified
	}

	return s.openSession(ctx, user)
}

// openSession mints an access/refresh pair and makes it the user's only
// live session.
func (s *AuthService) openSession(ctx context.Context, user *model.User) (*dto.LoginResponse, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.sessions.RotateForLogin(ctx, user.ID, accessToken, refreshToken); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdateLastActive(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to update last active timestamp").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Session opened").
		Uint("user_id", user.ID).
		String("provider", string(user.AuthProvider)).
		Log()

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwt.AccessTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token stays valid; only the access token is rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshTokenResponse, error) {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "Refresh")

	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	if claims.TokenType != model.TokenTypeRefresh {
		return nil, apperrors.ErrWrongTokenType
	}

	if !s.sessions.IsUsable(ctx, refreshToken) {
		return nil, apperrors.ErrTokenRevoked
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.sessions.RotateAccess(ctx, user.ID, accessToken); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Access token refreshed").
		Uint("user_id", user.ID).
		Log()

	return &dto.RefreshTokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwt.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes every token the user holds.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "Logout")

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Session closed").
		Uint("user_id", userID).
		Log()
	return nil
}

// LoginWithGoogle signs in with a Google access token. A local account with
// the exact same email is migrated to Google sign-in; an account already on
// Google gets its cached profile refreshed; an unknown email gets a fresh,
// already-verified account.
func (s *AuthService) LoginWithGoogle(ctx context.Context, accessToken string) (*dto.LoginResponse, error) {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "LoginWithGoogle")

	info, err := s.google.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, info.Email)
	if err != nil {
		user, err = s.createGoogleUser(ctx, info)
		if err != nil {
			return nil, err
		}
		return s.openSession(ctx, user)
	}

	profile, err := providerProfileJSON(info)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	switch user.AuthProvider {
	case model.ProviderLocal:
		if err := s.users.MigrateToProvider(ctx, user.ID, model.ProviderGoogle, info.ID, profile, info.Picture); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		user.AuthProvider = model.ProviderGoogle
		user.ExternalID = &info.ID
		user.Verified = true
		user.AvatarURL = info.Picture

		logger.InfoWithContext(ctx, "Account migrated to Google sign-in").
			Uint("user_id", user.ID).
			Log()

	case model.ProviderGoogle:
		if err := s.users.RefreshProviderProfile(ctx, user.ID, profile, info.Picture); err != nil {
			logger.WarnWithContext(ctx, "Failed to refresh provider profile").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
		user.AvatarURL = info.Picture

	default:
		return nil, apperrors.WithMessage(apperrors.ErrWrongProvider, user.AuthProvider.LoginHint())
	}

	return s.openSession(ctx, user)
}

// RegisterWithGoogle creates a Google-backed account. Unlike
// LoginWithGoogle it never adopts an existing account: any account under
// the email is a conflict.
func (s *AuthService) RegisterWithGoogle(ctx context.Context, accessToken string) (*dto.LoginResponse, error) {
	ctx = ctxutil.NewRequestContext(ctx, "auth", "RegisterWithGoogle")

	info, err := s.google.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if existing, err := s.users.GetByEmail(ctx, info.Email); err == nil {
		return nil, apperrors.WithMessage(apperrors.ErrEmailExists, existing.AuthProvider.LoginHint())
	}

	user, err := s.createGoogleUser(ctx, info)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) createGoogleUser(ctx context.Context, info *GoogleUserInfo) (*model.User, error) {
	password, err := syntheticPassword(s.hasher)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	profile, err := providerProfileJSON(info)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	externalID := info.ID
	user := &model.User{
		Name:            info.Name,
		Email:           info.Email,
		Password:        password,
		AuthProvider:    model.ProviderGoogle,
		ExternalID:      &externalID,
		Verified:        true, // Google asserts email ownership
		AvatarURL:       info.Picture,
		ProviderProfile: profile,
		LastActive:      time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account created via Google sign-in").
		Uint("user_id", user.ID).
		Log()
	return user, nil
}

func providerProfileJSON(info *GoogleUserInfo) (datatypes.JSON, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
