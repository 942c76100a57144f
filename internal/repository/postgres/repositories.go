package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users         *UserRepository
	Roles         *RoleRepository
	Claims        *ClaimRepository
	Sessions      *SessionRepository
	Tokens        *TokenRepository
	Notifications *NotificationRepository
	Accounts      *AccountRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(pool),
		Roles:         NewRoleRepository(pool),
		Claims:        NewClaimRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Tokens:        NewTokenRepository(pool),
		Notifications: NewNotificationRepository(pool),
		Accounts:      NewAccountRepository(pool),
	}
}
