package repository

import (
	"context"

	"github.com/Payphone-Digital/auth/internal/model"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"gorm.io/gorm"
)

// VerificationCodeRepository stores the short numeric email-ownership codes.
type VerificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *VerificationCodeRepository) WithTx(tx *gorm.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: tx}
}

// ReplaceForUser atomically deletes any prior code for the user and inserts
// the new one, preserving the at-most-one-live-code invariant.
func (r *VerificationCodeRepository) ReplaceForUser(ctx context.Context, code *model.VerificationCode) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "ReplaceForUser")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", code.UserID).Delete(&model.VerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to replace verification code").
			Uint("user_id", code.UserID).
			Err(err).
			Log()
		return err
	}

	return nil
}

// GetByCode looks up a code by its value
func (r *VerificationCodeRepository) GetByCode(ctx context.Context, code string) (*model.VerificationCode, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByCode")

	var record model.VerificationCode
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&record)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			logger.ErrorWithContext(ctx, "Failed to get verification code").
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &record, nil
}

// GetLiveByUser returns the user's current code, if any
func (r *VerificationCodeRepository) GetLiveByUser(ctx context.Context, userID uint) (*model.VerificationCode, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetLiveByUser")

	var record model.VerificationCode
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record)
	if result.Error != nil {
		return nil, result.Error
	}

	return &record, nil
}

// ExistsByCode reports whether a code value is already in use.
// Used by issuance to guarantee global uniqueness.
func (r *VerificationCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.VerificationCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkVerified flags a code as consumed
func (r *VerificationCodeRepository) MarkVerified(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "MarkVerified")

	result := r.db.WithContext(ctx).Model(&model.VerificationCode{}).Where("id = ?", id).Update("verified", true)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark verification code as used").
			Uint("code_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
