package service

import (
	"context"
	"time"

	"github.com/Payphone-Digital/auth/internal/model"
	"gorm.io/datatypes"
)

// Storage dependencies are consumed through narrow interfaces so flows can
// be exercised against fakes. The gorm repositories satisfy them.

type userStore interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	MarkVerified(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hashedPassword string) error
	UpdateLastActive(ctx context.Context, id uint) error
	MigrateToProvider(ctx context.Context, id uint, provider model.AuthProvider, externalID string, profile datatypes.JSON, avatarURL string) error
	RefreshProviderProfile(ctx context.Context, id uint, profile datatypes.JSON, avatarURL string) error
}

type verificationCodeStore interface {
	ReplaceForUser(ctx context.Context, code *model.VerificationCode) error
	GetByCode(ctx context.Context, code string) (*model.VerificationCode, error)
	GetLiveByUser(ctx context.Context, userID uint) (*model.VerificationCode, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	MarkVerified(ctx context.Context, id uint) error
}

type resetTokenStore interface {
	ReplaceForUser(ctx context.Context, token *model.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	ExistsByToken(ctx context.Context, token string) (bool, error)
	CompleteReset(ctx context.Context, tokenID, userID uint, hashedPassword string) error
}

type sessionTokenStore interface {
	RotateForLogin(ctx context.Context, userID uint, accessToken, refreshToken string) error
	RotateAccess(ctx context.Context, userID uint, accessToken string) error
	RevokeAll(ctx context.Context, userID uint) error
	IsUsable(ctx context.Context, token string) bool
}

// Notifier hands emails to the delivery layer. Calls are fire-and-forget:
// implementations must never block the flow or surface delivery errors.
type Notifier interface {
	VerificationCodeIssued(user *model.User, code string, ttl time.Duration)
	AccountVerified(user *model.User)
	PasswordResetRequested(user *model.User, token string, ttl time.Duration)
	PasswordChanged(user *model.User)
}

// PasswordHasher is the one-way hash capability for local credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}
