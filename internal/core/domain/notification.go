package domain

import "time"

// NotificationStatus enumerates the lifecycle states of a notification.
type NotificationStatus string

const (
	NotificationStatusUnread   NotificationStatus = "unread"
	NotificationStatusRead     NotificationStatus = "read"
	NotificationStatusArchived NotificationStatus = "archived"
)

// NotificationType identifies the schema of a notification payload.
type NotificationType string

// NotificationTypeNewUserRegistered is raised for administrators when a new
// account registers.
const NotificationTypeNewUserRegistered NotificationType = "new_user_registered"

// Notification belongs to exactly one user; the owner never changes. The
// payload is an opaque string map whose schema is keyed by Type.
type Notification struct {
	ID        int64
	UserID    string
	Type      NotificationType
	Status    NotificationStatus
	Timestamp time.Time
	Data      map[string]string
}

// MarkRead transitions the notification to read. Idempotent; returns true
// when the status changed.
func (n *Notification) MarkRead() bool {
	if n.Status == NotificationStatusRead {
		return false
	}
	n.Status = NotificationStatusRead
	return true
}
