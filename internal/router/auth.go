package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Public routes (no authentication required)
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/verify", r.authHandler.VerifyEmail)
		auth.POST("/resend", r.authHandler.ResendCode)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/refresh", r.authHandler.RefreshToken)

		auth.POST("/forgot-password", r.authHandler.ForgotPassword)
		auth.POST("/reset-password/validate", r.authHandler.ValidateResetToken)
		auth.POST("/reset-password", r.authHandler.ResetPassword)

		auth.POST("/google/login", r.authHandler.GoogleLogin)
		auth.POST("/google/register", r.authHandler.GoogleRegister)

		// Protected routes (JWT authentication required)
		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
		}
	}
}
