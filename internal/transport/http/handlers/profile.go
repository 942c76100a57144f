package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/transport/http/middleware"
	"github.com/halcyonsoft/halcyon/internal/usecase"
)

// ProfileHandler exposes the authenticated caller's own account: profile,
// settings, password, email, devices, two-factor, and notifications.
type ProfileHandler struct {
	profile       *usecase.ProfileService
	notifications *usecase.NotificationService
	logger        *zap.Logger
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(profile *usecase.ProfileService, notifications *usecase.NotificationService, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{profile: profile, notifications: notifications, logger: log}
}

// RegisterRoutes binds the profile routes to the provided router group. The
// group must already require authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.GetProfile)
	r.PUT("", h.UpdateProfile)
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.UpdateSettings)
	r.POST("/change-password", h.ChangePassword)
	r.POST("/email-change", h.RequestEmailChange)
	r.POST("/email-change/confirm", h.ConfirmEmailChange)
	r.GET("/devices", h.ListDevices)
	r.DELETE("/devices/:device_id", h.RevokeDevice)
	r.POST("/two-factor", h.BeginTwoFactor)
	r.POST("/two-factor/confirm", h.ConfirmTwoFactor)
	r.DELETE("/two-factor", h.DisableTwoFactor)
	r.GET("/notifications", h.SearchNotifications)
	r.POST("/notifications/:notification_id/read", h.MarkNotificationRead)
	r.POST("/notifications/read-all", h.MarkAllNotificationsRead)
}

// GetProfile returns the caller's account.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	user, err := h.profile.GetProfile(c.Request.Context(), actor)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayload(*user)))
}

// UpdateProfile applies editable profile fields.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("userName is required"))
		return
	}

	user, err := h.profile.UpdateProfile(c.Request.Context(), actor, req.UserName)
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrDuplicateUserName, Status: http.StatusBadRequest, Message: "This user name is already taken."},
			notFoundCase(usecase.ErrUserNotFound, "The account could not be found."),
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayload(*user)))
}

// GetSettings returns the caller's opaque settings blob.
func (h *ProfileHandler) GetSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	settings, err := h.profile.GetSettings(c.Request.Context(), actor)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(settings))
}

// UpdateSettings stores the caller's settings blob.
func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("settings must be a JSON object"))
		return
	}

	if err := h.profile.UpdateSettings(c.Request.Context(), actor, req.Settings); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Settings saved."}))
}

// ChangePassword applies a new password after re-verifying the current one.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("currentPassword, newPassword, and confirmPassword are required"))
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, NewErrors("The passwords do not match."))
		return
	}

	sessionID := middleware.AuthenticatedSessionID(c)
	if err := h.profile.ChangePassword(c.Request.Context(), actor, req.CurrentPassword, req.NewPassword, sessionID); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "The current password is incorrect."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Password updated."}))
}

// RequestEmailChange mails a confirmation link to the proposed address.
func (h *ProfileHandler) RequestEmailChange(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("email is required"))
		return
	}

	if err := h.profile.RequestEmailChange(c.Request.Context(), actor, req.Email); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrDuplicateEmail, Status: http.StatusBadRequest, Message: "An account with this email already exists."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "A confirmation email has been sent to the new address."}))
}

// ConfirmEmailChange applies the address stored with the mailed token.
func (h *ProfileHandler) ConfirmEmailChange(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("token is required"))
		return
	}

	if err := h.profile.ConfirmEmailChange(c.Request.Context(), actor, req.Token); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "The confirmation link is invalid or has expired."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Email updated."}))
}

// ListDevices returns the caller's active sessions.
func (h *ProfileHandler) ListDevices(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	devices, err := h.profile.ListDevices(c.Request.Context(), actor)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(newDevicePayloads(devices)))
}

// RevokeDevice revokes one of the caller's sessions.
func (h *ProfileHandler) RevokeDevice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.profile.RevokeDevice(c.Request.Context(), actor, c.Param("device_id")); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrDeviceNotFound, "The device could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Device signed out."}))
}

// BeginTwoFactor provisions an authenticator secret for the caller.
func (h *ProfileHandler) BeginTwoFactor(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	enrollment, err := h.profile.BeginTwoFactorEnrollment(c.Request.Context(), actor)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(gin.H{
		"secret": enrollment.Secret,
		"url":    enrollment.URL,
	}))
}

// ConfirmTwoFactor verifies the first authenticator code and enables two-factor.
func (h *ProfileHandler) ConfirmTwoFactor(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req TwoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("code is required"))
		return
	}

	if err := h.profile.ConfirmTwoFactorEnrollment(c.Request.Context(), actor, req.Code); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "The verification code is incorrect."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Two-factor authentication enabled."}))
}

// DisableTwoFactor turns two-factor off after re-verifying the password.
func (h *ProfileHandler) DisableTwoFactor(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("password is required"))
		return
	}

	if err := h.profile.DisableTwoFactor(c.Request.Context(), actor, req.Password); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "The password is incorrect."},
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Two-factor authentication disabled."}))
}

// SearchNotifications pages through the caller's notifications.
func (h *ProfileHandler) SearchNotifications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := port.NotificationSearchFilter{
		PageNumber: queryInt(c, "pageNumber", 1),
		PageSize:   queryInt(c, "pageSize", 10),
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.NotificationStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		notificationType := domain.NotificationType(raw)
		filter.Type = &notificationType
	}
	if raw := c.Query("sinceId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.SinceID = &id
		}
	}
	if raw := c.Query("priorToId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.PriorToID = &id
		}
	}

	page, err := h.notifications.Search(c.Request.Context(), actor, filter)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	items := make([]NotificationPayload, 0, len(page.Items))
	for _, notification := range page.Items {
		items = append(items, newNotificationPayload(notification))
	}

	c.JSON(http.StatusOK, NewResult(NotificationPagedResult{
		PagedResult: PagedResult{
			Data:       items,
			PageNumber: filter.PageNumber,
			PageSize:   filter.PageSize,
			TotalCount: page.TotalCount,
		},
		UnreadCount: page.UnreadCount,
	}))
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *ProfileHandler) MarkNotificationRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("notification_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("notification id must be numeric"))
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), actor, id); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrNotificationNotFound, "The notification could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Notification marked read."}))
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (h *ProfileHandler) MarkAllNotificationsRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkAllRead(c.Request.Context(), actor); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "All notifications marked read."}))
}

// requireActor resolves the authenticated caller, aborting with 401 when the
// auth middleware has not populated the context.
func requireActor(c *gin.Context) (usecase.Actor, bool) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrors("Authentication required."))
		return usecase.Actor{}, false
	}

	roles, _ := middleware.AuthenticatedRoles(c)
	return usecase.Actor{UserID: userID, Roles: roles}, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
