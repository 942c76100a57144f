package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/transport/http/middleware"
	"github.com/halcyonsoft/halcyon/internal/usecase"
)

// IdentityHandler exposes registration and authentication endpoints.
type IdentityHandler struct {
	registration *usecase.RegistrationService
	identity     *usecase.IdentityService
	logger       *zap.Logger
}

// NewIdentityHandler constructs an identity handler.
func NewIdentityHandler(registration *usecase.RegistrationService, identity *usecase.IdentityService, log *zap.Logger) *IdentityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityHandler{registration: registration, identity: identity, logger: log}
}

// IdentityRouteGuards carries per-endpoint middleware, typically rate limits,
// applied ahead of the abuse-prone identity endpoints.
type IdentityRouteGuards struct {
	Login    []gin.HandlerFunc
	Register []gin.HandlerFunc
	Refresh  []gin.HandlerFunc
	Reset    []gin.HandlerFunc
}

// RegisterRoutes binds the identity routes to the provided router group.
func (h *IdentityHandler) RegisterRoutes(r *gin.RouterGroup, guards IdentityRouteGuards) {
	if r == nil {
		return
	}

	r.POST("/register", append(guards.Register, h.Register)...)
	r.POST("/verify-email", h.VerifyEmail)
	r.POST("/resend-verification", append(guards.Register, h.ResendVerification)...)
	r.POST("/login", append(guards.Login, h.Login)...)
	r.POST("/verify-code", append(guards.Login, h.VerifyCode)...)
	r.POST("/magic-link", append(guards.Reset, h.RequestMagicLink)...)
	r.POST("/magic-link/redeem", append(guards.Login, h.RedeemMagicLink)...)
	r.POST("/refresh", append(guards.Refresh, h.Refresh)...)
	r.POST("/logout", h.Logout)
	r.POST("/reset-password", append(guards.Reset, h.RequestPasswordReset)...)
	r.POST("/reset-password/confirm", append(guards.Reset, h.ConfirmPasswordReset)...)
}

// Register creates a new account. Depending on configuration the response
// carries either a verification notice or a signed-in session.
func (h *IdentityHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("userName, email, password, and confirmPassword are required"))
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, NewErrors("The passwords do not match."))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	}, h.deviceInfo(c, ""))
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrDuplicateEmail, Status: http.StatusBadRequest, Message: "An account with this email already exists."},
			ErrorCase{Err: usecase.ErrDuplicateUserName, Status: http.StatusBadRequest, Message: "This user name is already taken."},
		)
		return
	}

	payload := RegisterResponse{
		User:                      newUserPayload(*result.User),
		EmailVerificationRequired: result.EmailVerificationRequired,
	}
	if result.Login != nil {
		tokens := newLoginResponse(result.Login)
		payload.Tokens = &tokens
	}

	c.JSON(http.StatusCreated, NewResult(payload))
}

// VerifyEmail confirms an address using the mailed token.
func (h *IdentityHandler) VerifyEmail(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token is required"))
		return
	}

	if err := h.registration.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "The verification link is invalid or has expired."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Email confirmed."}))
}

// ResendVerification mails a fresh verification link. Unknown addresses are
// accepted without comment.
func (h *IdentityHandler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email is required"))
		return
	}

	if err := h.registration.ResendVerification(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "If the address is registered, a verification email has been sent."}))
}

// Login exchanges credentials for tokens, or reports that a second factor is due.
func (h *IdentityHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email and password are required"))
		return
	}

	result, err := h.identity.Login(c.Request.Context(), req.Email, req.Password, h.deviceInfo(c, req.Details))
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(newLoginResponse(result)))
}

// VerifyCode finishes a two-factor login.
func (h *IdentityHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email and code are required"))
		return
	}

	result, err := h.identity.VerifyTwoFactor(c.Request.Context(), req.Email, req.Code, h.deviceInfo(c, req.Details))
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "The verification code is invalid or has expired."},
			ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "The login details are incorrect."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(newLoginResponse(result)))
}

// RequestMagicLink mails a single-use login link. Unknown addresses are
// accepted without comment.
func (h *IdentityHandler) RequestMagicLink(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email is required"))
		return
	}

	if err := h.identity.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "If the address is registered, a login link has been sent."}))
}

// RedeemMagicLink exchanges a mailed login token for tokens.
func (h *IdentityHandler) RedeemMagicLink(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token is required"))
		return
	}

	result, err := h.identity.RedeemMagicLink(c.Request.Context(), req.Token, h.deviceInfo(c, ""))
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(newLoginResponse(result)))
}

// Refresh reissues an access token off a valid refresh token.
func (h *IdentityHandler) Refresh(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token is required"))
		return
	}

	result, err := h.identity.Refresh(c.Request.Context(), req.Token, h.deviceInfo(c, ""))
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "The session is no longer valid."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(newLoginResponse(result)))
}

// Logout revokes the session behind the refresh token. Idempotent.
func (h *IdentityHandler) Logout(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token is required"))
		return
	}

	if err := h.identity.Logout(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Logged out."}))
}

// RequestPasswordReset mails a reset link. Unknown addresses are accepted
// without comment.
func (h *IdentityHandler) RequestPasswordReset(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email is required"))
		return
	}

	if err := h.identity.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "If the address is registered, a reset email has been sent."}))
}

// ConfirmPasswordReset applies a mailed reset token.
func (h *IdentityHandler) ConfirmPasswordReset(c *gin.Context) {
	var req ResetPasswordConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token, password, and confirmPassword are required"))
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, NewErrors("The passwords do not match."))
		return
	}

	if err := h.identity.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "The reset link is invalid or has expired."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Password updated."}))
}

func (h *IdentityHandler) respondLoginError(c *gin.Context, err error) {
	RespondWithMappedError(c, h.logger, err,
		ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "The login details are incorrect."},
		ErrorCase{Err: usecase.ErrAccountLocked, Status: http.StatusBadRequest, Message: "This account is locked. Contact an administrator."},
		ErrorCase{Err: usecase.ErrEmailNotConfirmed, Status: http.StatusBadRequest, Message: "Confirm your email address before logging in."},
		ErrorCase{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "The login link is invalid or has expired."},
	)
}

func (h *IdentityHandler) deviceInfo(c *gin.Context, details string) usecase.DeviceInfo {
	if details == "" {
		details = c.Request.UserAgent()
	}

	info := usecase.DeviceInfo{Details: details}
	if ip := middleware.GetRequestContext(c).IP; ip != "" {
		info.IP = &ip
	}
	return info
}

func newLoginResponse(result *usecase.LoginResult) LoginResponse {
	resp := LoginResponse{
		AccessToken:       result.AccessToken,
		RefreshToken:      result.RefreshToken,
		TwoFactorRequired: result.TwoFactorRequired,
	}
	if !result.ExpiresAt.IsZero() {
		expiresAt := result.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
