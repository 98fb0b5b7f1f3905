package model

import (
	"time"

	"gorm.io/gorm"
)

// TokenType distinguishes access JWTs from refresh JWTs. The type lives in
// the token's claims and in the issued-token row; callers must check it
// before trusting a token for a given operation.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
)

// VerificationCode is the short numeric secret proving email ownership at
// registration. At most one live code exists per user.
type VerificationCode struct {
	gorm.Model
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	UserID    uint      `gorm:"column:user_id;index;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Verified  bool      `gorm:"column:verified;default:false;not null"`
}

// IsExpired reports whether the code can no longer be consumed.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// PasswordResetToken is a single-use opaque secret authorizing a password
// change without the old password. At most one active token exists per user.
type PasswordResetToken struct {
	gorm.Model
	Token     string    `gorm:"column:token;uniqueIndex;not null"`
	UserID    uint      `gorm:"column:user_id;index;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Used      bool      `gorm:"column:used;default:false;not null"`
}

// IsExpired reports whether the token is past its lifetime.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IssuedToken tracks every JWT handed out, so revocation can be enforced
// independently of cryptographic validity. Rows are flagged, never deleted.
type IssuedToken struct {
	gorm.Model
	Token     string    `gorm:"column:token;uniqueIndex;not null"`
	UserID    uint      `gorm:"column:user_id;index;not null"`
	TokenType TokenType `gorm:"column:token_type;not null"`
	Expired   bool      `gorm:"column:expired;default:false;not null"`
	Revoked   bool      `gorm:"column:revoked;default:false;not null"`
}

// Usable reports whether the row still backs a live session. Signature
// validity is checked separately by the token issuer.
func (t *IssuedToken) Usable() bool {
	return !t.Expired && !t.Revoked
}
