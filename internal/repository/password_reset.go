package repository

import (
	"context"

	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"gorm.io/gorm"
)

// PasswordResetTokenRepository stores the single-use password recovery tokens.
type PasswordResetTokenRepository struct {
	db *gorm.DB
}

func NewPasswordResetTokenRepository(db *gorm.DB) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *PasswordResetTokenRepository) WithTx(tx *gorm.DB) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: tx}
}

// ReplaceForUser atomically deletes prior tokens for the user and inserts the
// new one, preserving the at-most-one-active-token invariant.
func (r *PasswordResetTokenRepository) ReplaceForUser(ctx context.Context, token *model.PasswordResetToken) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "ReplaceForUser")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", token.UserID).Delete(&model.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to replace password reset token").
			Uint("user_id", token.UserID).
			Err(err).
			Log()
		return err
	}

	return nil
}

// GetByToken looks up a reset token by its opaque value
func (r *PasswordResetTokenRepository) GetByToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByToken")

	var record model.PasswordResetToken
	result := r.db.WithContext(ctx).Where("token = ?", token).First(&record)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get password reset token").
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &record, nil
}

// ExistsByToken reports whether a token value is already in use.
// Collisions are vanishingly unlikely but still checked at issuance.
func (r *PasswordResetTokenRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.PasswordResetToken{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CompleteReset consumes the token and applies the password change in a
// single transaction: the token is flagged used, the password hash replaced,
// and every issued session token revoked. The consume is conditional on the
// token still being unused, so of two racing resets only one can commit;
// the loser gets gorm.ErrRecordNotFound.
func (r *PasswordResetTokenRepository) CompleteReset(ctx context.Context, tokenID, userID uint, hashedPassword string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CompleteReset")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.PasswordResetToken{}).
			Where("id = ? AND used = ?", tokenID, false).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := NewUserRepository(tx).UpdatePassword(ctx, userID, hashedPassword); err != nil {
			return err
		}
		return NewIssuedTokenRepository(tx).RevokeAll(ctx, userID)
	})
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to complete password reset").
				Uint("token_id", tokenID).
				Uint("user_id", userID).
				Err(err).
				Log()
		}
		return err
	}

	return nil
}
