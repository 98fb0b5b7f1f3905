package constants

// Field Length Limits
const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
	MinNameLength     = 2
	MaxNameLength     = 100
	MaxEmailLength    = 255
)

// Secret Lifetimes
const (
	VerificationCodeLength   = 6
	VerificationCodeAttempts = 5 // collision retries before giving up
	ResetTokenBytes          = 32
)

// Token Settings (in seconds)
const (
	AccessTokenExpiry  = 15 * 60          // 15 minutes
	RefreshTokenExpiry = 7 * 24 * 60 * 60 // 7 days
)

// Validation Patterns
const (
	EmailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
)
