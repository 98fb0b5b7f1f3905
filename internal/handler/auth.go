package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/auth/internal/constants"
	"github.com/Payphone-Digital/auth/internal/dto"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/internal/service"
	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"github.com/Payphone-Digital/auth/pkg/validation"
)

type AuthHandler struct {
	authService         *service.AuthService
	verificationService *service.VerificationService
	resetService        *service.PasswordResetService
}

func NewAuthHandler(authService *service.AuthService, verificationService *service.VerificationService, resetService *service.PasswordResetService) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		verificationService: verificationService,
		resetService:        resetService,
	}
}

// bindJSON decodes and validates the request body, writing the 400 response
// itself on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.WarnWithContext(c.Request.Context(), "Invalid request payload").
			String("path", c.Request.URL.Path).
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, validation.MessagesFor(err)))
		return false
	}
	return true
}

func respondError(c *gin.Context, message string, err error) {
	c.JSON(apperrors.ToHTTPStatus(err), constants.BuildErrorResponse(message, apperrors.GetErrorMessage(err)))
}

// Register creates a new local account and sends the verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "Register")

	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Registration failed").
			String("email", req.Email).
			Err(err).
			Log()
		respondError(c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, constants.BuildDataResponse(constants.MsgRegistered, user))
}

// VerifyEmail consumes a verification code. A repeat call for an already
// verified account succeeds idempotently.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "VerifyEmail")

	var req dto.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	alreadyVerified, err := h.verificationService.Verify(ctx, req.Email, req.Code)
	if err != nil {
		logger.WarnWithContext(ctx, "Email verification failed").
			String("email", req.Email).
			Err(err).
			Log()
		respondError(c, "Verification failed", err)
		return
	}

	message := constants.MsgVerified
	if alreadyVerified {
		message = constants.MsgAlreadyVerified
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

// ResendCode issues a fresh verification code, subject to the cooldown.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "ResendCode")

	var req dto.ResendCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	alreadyVerified, err := h.verificationService.Resend(ctx, req.Email)
	if err != nil {
		logger.WarnWithContext(ctx, "Verification code resend failed").
			String("email", req.Email).
			Err(err).
			Log()
		respondError(c, "Could not resend verification code", err)
		return
	}

	message := constants.MsgCodeResent
	if alreadyVerified {
		message = constants.MsgAlreadyVerified
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

// Login authenticates a local account.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "Login")

	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.Login(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Login failed").
			String("email", req.Email).
			Err(err).
			Log()
		respondError(c, "Authentication failed", err)
		return
	}

	logger.InfoWithContext(ctx, "User logged in").
		Uint("user_id", response.User.ID).
		Log()

	c.JSON(http.StatusOK, response)
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "RefreshToken")

	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Token refresh failed").
			Err(err).
			Log()
		respondError(c, "Token refresh failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout revokes every token of the authenticated user.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "Logout")

	userID, ok := ctxutil.GetUserIDUint(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	if err := h.authService.Logout(ctx, userID); err != nil {
		logger.ErrorWithContext(ctx, "Logout failed").
			Uint("user_id", userID).
			Err(err).
			Log()
		respondError(c, "Logout failed", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgLogout))
}

// ForgotPassword starts the password reset flow.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "ForgotPassword")

	var req dto.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.resetService.Request(ctx, req.Email); err != nil {
		logger.WarnWithContext(ctx, "Password reset request failed").
			String("email", req.Email).
			Err(err).
			Log()
		respondError(c, "Password reset request failed", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgResetRequested))
}

// ValidateResetToken reports the state of a reset token without consuming
// it. An invalid token is a 200 with valid=false; the form decides what to
// show.
func (h *AuthHandler) ValidateResetToken(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "ValidateResetToken")

	var req dto.ValidateResetTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	status := h.resetService.Validate(ctx, req.Token)
	c.JSON(http.StatusOK, status)
}

// ResetPassword consumes a reset token and replaces the password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "ResetPassword")

	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.resetService.Reset(ctx, req.Token, req.Password, req.ConfirmPassword); err != nil {
		logger.WarnWithContext(ctx, "Password reset failed").
			Err(err).
			Log()
		respondError(c, "Password reset failed", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgPasswordChanged))
}

// GoogleLogin signs in with a Google access token, migrating a matching
// local account to Google sign-in.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "GoogleLogin")

	var req dto.GoogleAuthRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.LoginWithGoogle(ctx, req.AccessToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Google login failed").
			Err(err).
			Log()
		respondError(c, "Google sign-in failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GoogleRegister creates a fresh account from a Google access token.
func (h *AuthHandler) GoogleRegister(c *gin.Context) {
	ctx := ctxutil.NewRequestContext(c.Request.Context(), "handler", "GoogleRegister")

	var req dto.GoogleAuthRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.RegisterWithGoogle(ctx, req.AccessToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Google registration failed").
			Err(err).
			Log()
		respondError(c, "Google registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, response)
}
