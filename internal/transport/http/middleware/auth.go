package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/halcyonsoft/halcyon/internal/infra/security"
)

const (
	// RolesKey is the context key for the authenticated user's roles.
	RolesKey = "roles"
	// ClaimsKey is the context key for the authenticated user's claims.
	ClaimsKey = "claims"
	// SessionIDKey is the context key for the session backing the access token.
	SessionIDKey = "session_id"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and stores the token's
// identity in the request context.
func RequireAuth(tokens *security.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid or expired access token"))
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(RolesKey, claims.Roles)
		c.Set(ClaimsKey, claims.Claims)
		c.Set(SessionIDKey, claims.SessionID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.Subject
		}

		c.Next()
	}
}

// RequireRole allows the request through when the user holds any of the
// listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoles, ok := AuthenticatedRoles(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !hasAnyRole(userRoles, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

func hasAnyRole(userRoles []string, requiredRoles []string) bool {
	roleMap := make(map[string]bool, len(userRoles))
	for _, role := range userRoles {
		roleMap[role] = true
	}

	for _, required := range requiredRoles {
		if roleMap[required] {
			return true
		}
	}
	return false
}

// GetAuthenticatedUserID retrieves the user ID from context.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}

// AuthenticatedRoles retrieves the user's roles from context.
func AuthenticatedRoles(c *gin.Context) ([]string, bool) {
	value, exists := c.Get(RolesKey)
	if !exists {
		return nil, false
	}
	roles, ok := value.([]string)
	return roles, ok
}

// AuthenticatedClaims retrieves the user's flattened "type:value" claims.
func AuthenticatedClaims(c *gin.Context) []string {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := value.([]string)
	return claims
}

// AuthenticatedSessionID retrieves the session identifier from context.
func AuthenticatedSessionID(c *gin.Context) string {
	value, exists := c.Get(SessionIDKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return id
}
