package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/auth/internal/constants"
	"github.com/Payphone-Digital/auth/internal/model"
	"github.com/Payphone-Digital/auth/internal/repository"
	"github.com/Payphone-Digital/auth/internal/service"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
)

type JWTMiddleware struct {
	jwtService *service.JWTService
	sessions   *repository.IssuedTokenRepository
	users      *repository.UserRepository
}

func NewJWTMiddleware(jwtService *service.JWTService, sessions *repository.IssuedTokenRepository, users *repository.UserRepository) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
		sessions:   sessions,
		users:      users,
	}
}

// RequireAuth admits only live access tokens: the JWT must parse, carry the
// ACCESS type, still be usable in the issued-token store, and belong to an
// existing account. Refresh tokens are rejected here regardless of validity.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			unauthorized(c)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.WarnWithContext(c.Request.Context(), "Rejected invalid or expired token").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			unauthorized(c)
			return
		}

		if claims.TokenType != model.TokenTypeAccess {
			logger.WarnWithContext(c.Request.Context(), "Rejected non-access token on protected route").
				String("path", c.Request.URL.Path).
				String("token_type", string(claims.TokenType)).
				Log()
			unauthorized(c)
			return
		}

		ctx := c.Request.Context()
		if !m.sessions.IsUsable(ctx, tokenString) {
			logger.WarnWithContext(ctx, "Rejected revoked token").
				String("path", c.Request.URL.Path).
				Log()
			unauthorized(c)
			return
		}

		user, err := m.users.GetByEmail(ctx, claims.Subject)
		if err != nil {
			logger.WarnWithContext(ctx, "Token subject has no account").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			unauthorized(c)
			return
		}

		ctx = ctxutil.WithUserID(ctx, user.ID)
		ctx = ctxutil.WithUserEmail(ctx, user.Email)
		c.Request = c.Request.WithContext(ctx)

		c.Set(string(ctxutil.UserIDKey), user.ID)
		c.Set(string(ctxutil.UserEmailKey), user.Email)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
	c.Abort()
}
