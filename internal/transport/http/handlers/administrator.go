package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/usecase"
)

// AdministratorHandler exposes user, role, claim, and device management.
type AdministratorHandler struct {
	administrator *usecase.AdministratorService
	logger        *zap.Logger
}

// NewAdministratorHandler constructs an administrator handler.
func NewAdministratorHandler(administrator *usecase.AdministratorService, log *zap.Logger) *AdministratorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdministratorHandler{administrator: administrator, logger: log}
}

// RegisterUserRoutes binds the per-user management routes. These carry the
// claim-policy guard in addition to the group's role requirement.
func (h *AdministratorHandler) RegisterUserRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/:user_id", h.GetUser)
	r.PUT("/:user_id", h.UpdateUser)
	r.DELETE("/:user_id", h.DeleteUser)
	r.POST("/:user_id/lock", h.LockUser)
	r.POST("/:user_id/unlock", h.UnlockUser)
	r.GET("/:user_id/roles", h.GetUserRoles)
	r.POST("/:user_id/roles/:role", h.AddUserToRole)
	r.DELETE("/:user_id/roles/:role", h.RemoveUserFromRole)
	r.GET("/:user_id/claims", h.GetUserClaims)
	r.POST("/:user_id/claims", h.AddClaim)
	r.DELETE("/:user_id/claims", h.RemoveClaim)
	r.GET("/:user_id/devices", h.ListUserDevices)
	r.DELETE("/:user_id/devices/:device_id", h.RevokeUserDevice)
}

// RegisterRoutes binds the collection-level management routes.
func (h *AdministratorHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/users", h.SearchUsers)
	r.GET("/roles", h.ListRoles)
	r.GET("/roles/:role/users", h.GetUsersInRole)
	r.GET("/claims/users", h.GetUsersWithClaim)
}

// SearchUsers pages through users matching the query filters.
func (h *AdministratorHandler) SearchUsers(c *gin.Context) {
	filter := port.UserSearchFilter{
		Email:      c.Query("email"),
		UserName:   c.Query("userName"),
		SortBy:     port.UserSortBy(c.Query("sortBy")),
		PageNumber: queryInt(c, "pageNumber", 1),
		PageSize:   queryInt(c, "pageSize", 10),
	}
	if raw := c.Query("reverseSort"); raw != "" {
		if reversed, err := strconv.ParseBool(raw); err == nil {
			filter.ReverseSort = reversed
		}
	}

	users, total, err := h.administrator.SearchUsers(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(PagedResult{
		Data:       newUserPayloads(users),
		PageNumber: filter.PageNumber,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}))
}

// GetUser returns a single user.
func (h *AdministratorHandler) GetUser(c *gin.Context) {
	user, err := h.administrator.GetUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayload(*user)))
}

// UpdateUser applies administrator-editable fields.
func (h *AdministratorHandler) UpdateUser(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("userName is required"))
		return
	}

	user, err := h.administrator.UpdateUser(c.Request.Context(), c.Param("user_id"), req.UserName)
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrDuplicateUserName, Status: http.StatusBadRequest, Message: "This user name is already taken."},
			notFoundCase(usecase.ErrUserNotFound, "The user could not be found."),
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayload(*user)))
}

// DeleteUser removes an account.
func (h *AdministratorHandler) DeleteUser(c *gin.Context) {
	if err := h.administrator.DeleteUser(c.Request.Context(), c.Param("user_id")); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrAdministratorDeletion, Status: http.StatusBadRequest, Message: "Remove the Administrator role before deleting this account."},
			notFoundCase(usecase.ErrUserNotFound, "The user could not be found."),
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "User deleted."}))
}

// LockUser locks an account indefinitely.
func (h *AdministratorHandler) LockUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.administrator.LockUser(c.Request.Context(), actor, c.Param("user_id")); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "User locked."}))
}

// UnlockUser clears any lockout.
func (h *AdministratorHandler) UnlockUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.administrator.UnlockUser(c.Request.Context(), actor, c.Param("user_id")); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "User unlocked."}))
}

// ListRoles returns the role catalogue.
func (h *AdministratorHandler) ListRoles(c *gin.Context) {
	roles, err := h.administrator.ListRoles(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	payloads := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, RolePayload{
			Name:        role.Name,
			DisplayName: role.DisplayName,
			Description: role.Description,
		})
	}

	c.JSON(http.StatusOK, NewResult(payloads))
}

// GetUserRoles returns the role names held by a user.
func (h *AdministratorHandler) GetUserRoles(c *gin.Context) {
	roles, err := h.administrator.GetUserRoles(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(roles))
}

// GetUsersInRole returns the members of a role.
func (h *AdministratorHandler) GetUsersInRole(c *gin.Context) {
	users, err := h.administrator.GetUsersInRole(c.Request.Context(), c.Param("role"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrRoleNotFound, "The role could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayloads(users)))
}

// AddUserToRole grants role membership.
func (h *AdministratorHandler) AddUserToRole(c *gin.Context) {
	if err := h.administrator.AddUserToRole(c.Request.Context(), c.Param("user_id"), c.Param("role")); err != nil {
		RespondWithMappedError(c, h.logger, err,
			notFoundCase(usecase.ErrUserNotFound, "The user could not be found."),
			notFoundCase(usecase.ErrRoleNotFound, "The role could not be found."),
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Role assigned."}))
}

// RemoveUserFromRole revokes role membership.
func (h *AdministratorHandler) RemoveUserFromRole(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.administrator.RemoveUserFromRole(c.Request.Context(), actor, c.Param("user_id"), c.Param("role")); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrSelfAdministratorRemoval, Status: http.StatusBadRequest, Message: "You cannot remove your own Administrator role."},
			notFoundCase(usecase.ErrRoleNotFound, "The role could not be found."),
		)
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Role removed."}))
}

// GetUserClaims returns the claims attached to a user.
func (h *AdministratorHandler) GetUserClaims(c *gin.Context) {
	claims, err := h.administrator.GetUserClaims(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	payloads := make([]ClaimPayload, 0, len(claims))
	for _, claim := range claims {
		payloads = append(payloads, ClaimPayload{Type: claim.Type, Value: claim.Value})
	}

	c.JSON(http.StatusOK, NewResult(payloads))
}

// GetUsersWithClaim returns every user holding the exact claim.
func (h *AdministratorHandler) GetUsersWithClaim(c *gin.Context) {
	claim := domain.Claim{Type: c.Query("type"), Value: c.Query("value")}
	if claim.Type == "" || claim.Value == "" {
		c.JSON(http.StatusBadRequest, NewErrors("type and value are required"))
		return
	}

	users, err := h.administrator.GetUsersWithClaim(c.Request.Context(), claim)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewResult(newUserPayloads(users)))
}

// AddClaim attaches a claim to a user.
func (h *AdministratorHandler) AddClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("type and value are required"))
		return
	}

	claim := domain.Claim{Type: req.Type, Value: req.Value}
	if err := h.administrator.AddClaim(c.Request.Context(), c.Param("user_id"), claim); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Claim added."}))
}

// RemoveClaim detaches a claim from a user.
func (h *AdministratorHandler) RemoveClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("type and value are required"))
		return
	}

	claim := domain.Claim{Type: req.Type, Value: req.Value}
	if err := h.administrator.RemoveClaim(c.Request.Context(), c.Param("user_id"), claim); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The claim could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Claim removed."}))
}

// ListUserDevices returns the target user's active sessions.
func (h *AdministratorHandler) ListUserDevices(c *gin.Context) {
	devices, err := h.administrator.ListUserDevices(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrUserNotFound, "The user could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newDevicePayloads(devices)))
}

// RevokeUserDevice revokes one of the target user's sessions.
func (h *AdministratorHandler) RevokeUserDevice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.administrator.RevokeUserDevice(c.Request.Context(), actor, c.Param("user_id"), c.Param("device_id")); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrDeviceNotFound, "The device could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Device signed out."}))
}
