package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRepository is the durable credential store: identity, password hash,
// provider and verification flags.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByID")

	var user model.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get user by ID").
				Uint("user_id", id).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByEmail finds a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByEmail")

	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get user by email").
				String("email", email).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

// Create inserts a new user record
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	user.Email = NormalizeEmail(user.Email)
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created").
		String("email", user.Email).
		Uint("user_id", user.ID).
		String("provider", string(user.AuthProvider)).
		Log()

	return nil
}

// MarkVerified sets the verified flag on a user
func (r *UserRepository) MarkVerified(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "MarkVerified")
	return r.updateColumns(ctx, id, map[string]interface{}{"verified": true})
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hashedPassword string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdatePassword")
	return r.updateColumns(ctx, id, map[string]interface{}{"password": hashedPassword})
}

// UpdateLastActive stamps the last activity time
func (r *UserRepository) UpdateLastActive(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateLastActive")
	return r.updateColumns(ctx, id, map[string]interface{}{"last_active": time.Now()})
}

// MigrateToProvider performs the LOCAL -> external provider migration in
// place, recording the provider-assigned subject id and marking the account
// verified (the provider asserted the email).
func (r *UserRepository) MigrateToProvider(ctx context.Context, id uint, provider model.AuthProvider, externalID string, profile datatypes.JSON, avatarURL string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "MigrateToProvider")

	updates := map[string]interface{}{
		"auth_provider":    provider,
		"external_id":      externalID,
		"verified":         true,
		"provider_profile": profile,
	}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}

	if err := r.updateColumns(ctx, id, updates); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "User migrated to external provider").
		Uint("user_id", id).
		String("provider", string(provider)).
		Log()

	return nil
}

// RefreshProviderProfile updates the cached external profile fields
func (r *UserRepository) RefreshProviderProfile(ctx context.Context, id uint, profile datatypes.JSON, avatarURL string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RefreshProviderProfile")

	updates := map[string]interface{}{"provider_profile": profile}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	return r.updateColumns(ctx, id, updates)
}

func (r *UserRepository) updateColumns(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			Uint("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	return nil
}
