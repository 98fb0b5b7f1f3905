package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"gorm.io/gorm"
)

// IssuedTokenRepository is the revocation store: every minted JWT is recorded
// here, and a token is only usable while its row is neither expired nor
// revoked. Rows are retained for audit, never deleted.
type IssuedTokenRepository struct {
	db *gorm.DB
}

func NewIssuedTokenRepository(db *gorm.DB) *IssuedTokenRepository {
	return &IssuedTokenRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *IssuedTokenRepository) WithTx(tx *gorm.DB) *IssuedTokenRepository {
	return &IssuedTokenRepository{db: tx}
}

// Record appends a newly issued token row
func (r *IssuedTokenRepository) Record(ctx context.Context, userID uint, token string, tokenType model.TokenType) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Record")

	row := &model.IssuedToken{
		Token:     token,
		UserID:    userID,
		TokenType: tokenType,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to record issued token").
			Uint("user_id", userID).
			String("token_type", string(tokenType)).
			Err(err).
			Log()
		return err
	}

	return nil
}

// RevokeAllByType bulk-flags the user's live tokens of one type
func (r *IssuedTokenRepository) RevokeAllByType(ctx context.Context, userID uint, tokenType model.TokenType) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeAllByType")
	return r.revoke(ctx, r.db.WithContext(ctx).
		Model(&model.IssuedToken{}).
		Where("user_id = ? AND token_type = ? AND (expired = false OR revoked = false)", userID, tokenType))
}

// RevokeAll bulk-flags every live token the user holds, both types
func (r *IssuedTokenRepository) RevokeAll(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeAll")
	return r.revoke(ctx, r.db.WithContext(ctx).
		Model(&model.IssuedToken{}).
		Where("user_id = ? AND (expired = false OR revoked = false)", userID))
}

func (r *IssuedTokenRepository) revoke(ctx context.Context, query *gorm.DB) error {
	result := query.Updates(map[string]interface{}{"expired": true, "revoked": true})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke tokens").
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Tokens revoked").
		Int64("revoked_count", result.RowsAffected).
		Log()

	return nil
}

// RotateForLogin revokes every live token the user holds and records the
// fresh access+refresh pair, all inside one transaction so two concurrent
// logins can never leave extra live tokens behind.
func (r *IssuedTokenRepository) RotateForLogin(ctx context.Context, userID uint, accessToken, refreshToken string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RotateForLogin")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := r.WithTx(tx)
		if err := bound.RevokeAll(ctx, userID); err != nil {
			return err
		}
		if err := bound.Record(ctx, userID, accessToken, model.TokenTypeAccess); err != nil {
			return err
		}
		return bound.Record(ctx, userID, refreshToken, model.TokenTypeRefresh)
	})
}

// RotateAccess revokes the user's live access tokens and records the
// replacement in one transaction. The refresh token is left untouched.
func (r *IssuedTokenRepository) RotateAccess(ctx context.Context, userID uint, accessToken string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RotateAccess")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := r.WithTx(tx)
		if err := bound.RevokeAllByType(ctx, userID, model.TokenTypeAccess); err != nil {
			return err
		}
		return bound.Record(ctx, userID, accessToken, model.TokenTypeAccess)
	})
}

// GetByToken looks up an issued token row by token string
func (r *IssuedTokenRepository) GetByToken(ctx context.Context, token string) (*model.IssuedToken, error) {
	var record model.IssuedToken
	result := r.db.WithContext(ctx).Where("token = ?", token).First(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

// IsUsable reports whether a token string maps to a live row. Absent rows,
// revoked rows and expired rows are all unusable.
func (r *IssuedTokenRepository) IsUsable(ctx context.Context, token string) bool {
	record, err := r.GetByToken(ctx, token)
	if err != nil {
		return false
	}
	return record.Usable()
}

// MarkExpiredBefore flags rows created before the cutoff as expired.
// Periodic housekeeping; revoked stays untouched so audit can tell the
// difference between natural expiry and forced revocation.
func (r *IssuedTokenRepository) MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "MarkExpiredBefore")

	result := r.db.WithContext(ctx).
		Model(&model.IssuedToken{}).
		Where("created_at < ? AND expired = false", cutoff).
		Update("expired", true)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to expire old tokens").
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
