package service

import (
	"errors"
	"time"

	"github.com/Payphone-Digital/auth/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the session token payload. Subject is the account email;
// TokenType distinguishes access from refresh and must be checked by every
// caller before trusting the token for an operation.
type Claims struct {
	TokenType model.TokenType `json:"type"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateAccessToken creates a short-lived access JWT for the user
func (s *JWTService) GenerateAccessToken(user *model.User) (string, error) {
	return s.generate(user, model.TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken creates a long-lived refresh JWT for the user
func (s *JWTService) GenerateRefreshToken(user *model.User) (string, error) {
	return s.generate(user, model.TokenTypeRefresh, s.refreshTTL)
}

func (s *JWTService) generate(user *model.User, tokenType model.TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken validates signature and expiry and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// IsValid reports whether the token parses, is unexpired by claim, and
// belongs to the given user.
func (s *JWTService) IsValid(tokenString string, user *model.User) bool {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject == user.Email
}

// AccessTTL exposes the configured access token lifetime for responses
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}
