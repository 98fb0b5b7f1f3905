package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuthProvider identifies where an account's credentials live.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "LOCAL"
	ProviderGoogle   AuthProvider = "GOOGLE"
	ProviderFacebook AuthProvider = "FACEBOOK"
)

// providerLoginHints maps each provider to the message shown when a user
// tries the wrong login path for their account. Adding a provider only
// requires a new entry here.
var providerLoginHints = map[AuthProvider]string{
	ProviderLocal:    "this email is registered with a password, please log in with your credentials",
	ProviderGoogle:   "this email is registered via Google, please use Google sign-in",
	ProviderFacebook: "this email is registered via Facebook, please use Facebook sign-in",
}

// LoginHint returns the provider-specific redirect message.
func (p AuthProvider) LoginHint() string {
	if hint, ok := providerLoginHints[p]; ok {
		return hint
	}
	return "this email is registered via an external provider"
}

type User struct {
	gorm.Model
	Name            string         `gorm:"column:name;not null"`
	Email           string         `gorm:"column:email;uniqueIndex;not null"`
	Password        string         `gorm:"column:password;not null"`
	AuthProvider    AuthProvider   `gorm:"column:auth_provider;default:LOCAL;not null"`
	ExternalID      *string        `gorm:"column:external_id;index"`
	Verified        bool           `gorm:"column:verified;default:false;not null"`
	ProfileComplete bool           `gorm:"column:profile_complete;default:false;not null"`
	AvatarURL       string         `gorm:"column:avatar_url"`
	ProviderProfile datatypes.JSON `gorm:"column:provider_profile"`
	LastActive      time.Time      `gorm:"column:last_active"`
}

// IsLocal reports whether the account authenticates with a local password.
func (u *User) IsLocal() bool {
	return u.AuthProvider == ProviderLocal
}
