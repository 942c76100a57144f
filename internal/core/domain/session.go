package domain

import "time"

// Session represents one logged-in device. The refresh token value is stored
// as a hash; the owner never changes for the lifetime of the row.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	Details   string
	IP        *string
	IssuedAt  time.Time
	ExpiresAt time.Time
	LastSeen  time.Time
	Revoked   bool
}

// IsActive reports whether the session is still usable at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(at)
}

// Touch updates last-seen metadata when activity occurs.
func (s *Session) Touch(at time.Time, ip *string) {
	s.LastSeen = at
	if ip != nil {
		ipCopy := *ip
		s.IP = &ipCopy
	}
}

// Revoke marks the session revoked. Returns true when the session changed state.
func (s *Session) Revoke() bool {
	if s.Revoked {
		return false
	}
	s.Revoked = true
	return true
}
