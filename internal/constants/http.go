package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized  = "Unauthorized access"
	MsgNotFound      = "Resource not found"
	MsgBadRequest    = "Invalid request"
	MsgInternalError = "Internal server error"
	MsgConflict      = "Resource already exists"
	MsgTooManyReq    = "Too many requests"
)

// HTTP Success Messages
const (
	MsgRegistered      = "Registration successful, check your email for the verification code"
	MsgVerified        = "Email verified successfully"
	MsgAlreadyVerified = "Email is already verified"
	MsgCodeResent      = "A new verification code has been sent"
	MsgLogout          = "Logout successful"
	MsgResetRequested  = "A password reset link has been sent to your email"
	MsgPasswordChanged = "Password changed successfully, please log in again"
)
