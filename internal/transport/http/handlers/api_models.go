package handlers

import (
	"encoding/json"
	"time"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// Envelope is the uniform response wrapper. Either Result carries a payload
// or Errors carries one or more user-facing messages, never both.
type Envelope struct {
	Result any      `json:"result"`
	Errors []string `json:"errors"`
}

// NewResult wraps a successful payload.
func NewResult(result any) Envelope {
	return Envelope{Result: result, Errors: []string{}}
}

// NewErrors wraps one or more user-facing error messages.
func NewErrors(messages ...string) Envelope {
	return Envelope{Errors: messages}
}

// PagedResult is the envelope payload for paginated collections.
type PagedResult struct {
	Data       any `json:"data"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// NotificationPagedResult extends PagedResult with the caller's unread count.
type NotificationPagedResult struct {
	PagedResult
	UnreadCount int `json:"unreadCount"`
}

// UserPayload is the API view of a user.
type UserPayload struct {
	ID               string     `json:"id"`
	UserName         string     `json:"userName"`
	Email            string     `json:"email"`
	EmailConfirmed   bool       `json:"emailConfirmed"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	LockoutEnd       *time.Time `json:"lockoutEnd,omitempty"`
	CreatedDate      time.Time  `json:"createdDate"`
	LastModifiedDate time.Time  `json:"lastModifiedDate"`
}

func newUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:               user.ID,
		UserName:         user.UserName,
		Email:            user.Email,
		EmailConfirmed:   user.EmailConfirmed,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LockoutEnd:       user.LockoutEnd,
		CreatedDate:      user.CreatedAt,
		LastModifiedDate: user.ModifiedAt,
	}
}

func newUserPayloads(users []domain.User) []UserPayload {
	payloads := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newUserPayload(user))
	}
	return payloads
}

// DevicePayload is the API view of an active session.
type DevicePayload struct {
	ID        string    `json:"id"`
	Details   string    `json:"details"`
	IP        *string   `json:"ip,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

func newDevicePayloads(sessions []domain.Session) []DevicePayload {
	payloads := make([]DevicePayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, DevicePayload{
			ID:        session.ID,
			Details:   session.Details,
			IP:        session.IP,
			IssuedAt:  session.IssuedAt,
			ExpiresAt: session.ExpiresAt,
			LastSeen:  session.LastSeen,
		})
	}
	return payloads
}

// NotificationPayload is the API view of a notification.
type NotificationPayload struct {
	ID        int64             `json:"id"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

func newNotificationPayload(notification domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:        notification.ID,
		Type:      string(notification.Type),
		Status:    string(notification.Status),
		Timestamp: notification.Timestamp,
		Data:      notification.Data,
	}
}

// AccountPayload is the API view of an account.
type AccountPayload struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
	Balance     float64 `json:"balance"`
}

func newAccountPayload(account domain.Account) AccountPayload {
	return AccountPayload{
		ID:          account.ID,
		Name:        account.Name,
		Type:        account.Type,
		Description: account.Description,
		Balance:     account.Balance,
	}
}

// ClaimPayload is the API view of a user claim.
type ClaimPayload struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RolePayload is the API view of a role.
type RolePayload struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	UserName        string `json:"userName" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// RegisterResponse reports the registration outcome. Tokens are present only
// when email verification is not required.
type RegisterResponse struct {
	User                      UserPayload    `json:"user"`
	EmailVerificationRequired bool           `json:"emailVerificationRequired"`
	Tokens                    *LoginResponse `json:"tokens,omitempty"`
}

// LoginRequest is the credential login payload. Email also accepts a user
// name.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Details  string `json:"details"`
}

// LoginResponse carries issued tokens, or signals that a second factor is due.
type LoginResponse struct {
	AccessToken       string     `json:"accessToken,omitempty"`
	RefreshToken      string     `json:"refreshToken,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	TwoFactorRequired bool       `json:"twoFactorRequired"`
}

// VerifyCodeRequest finishes a two-factor login.
type VerifyCodeRequest struct {
	Email   string `json:"email" binding:"required"`
	Code    string `json:"code" binding:"required"`
	Details string `json:"details"`
}

// TokenRequest carries a single opaque token (verification, magic link, logout).
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// EmailRequest carries a bare email address.
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordConfirmRequest applies a password reset token.
type ResetPasswordConfirmRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// UpdateProfileRequest edits profile fields.
type UpdateProfileRequest struct {
	UserName string `json:"userName" binding:"required"`
}

// ChangePasswordRequest is the authenticated password change payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// SettingsRequest carries the opaque browser settings blob.
type SettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}

// TwoFactorCodeRequest carries an authenticator code.
type TwoFactorCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// PasswordRequest carries a password re-verification.
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ClaimRequest attaches or detaches a claim.
type ClaimRequest struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// AccountRequest is the account create/update payload.
type AccountRequest struct {
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Description *string `json:"description"`
	Balance     float64 `json:"balance"`
}

// MessageResponse is a simple acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}
