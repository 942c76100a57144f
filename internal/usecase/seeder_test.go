package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
)

func TestSeederCreatesRolesAndGrantsAdministrators(t *testing.T) {
	users := newFakeUserRepo(confirmedUser(t))
	roles := newFakeRoleRepo(users)
	seeder := NewSeeder(users, roles, zap.NewNop())

	entries := []AdministratorSeed{
		{Email: "alice@example.com"},
		{Email: "  "},
		{Email: "nobody@example.com"},
	}
	require.NoError(t, seeder.Run(context.Background(), entries))

	catalogue, err := roles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalogue, 1)
	require.Equal(t, domain.RoleAdministrator, catalogue[0].Name)

	assigned, err := roles.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleAdministrator}, assigned)

	// An entry without credentials cannot create the missing account.
	_, err = users.GetByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
}

func TestSeederCreatesMissingAdministrator(t *testing.T) {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo(users)
	seeder := NewSeeder(users, roles, zap.NewNop())

	entries := []AdministratorSeed{
		{UserName: "root", Email: "root@example.com", Password: testPassword},
	}
	require.NoError(t, seeder.Run(context.Background(), entries))

	created, err := users.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, "root", created.UserName)
	require.True(t, created.EmailConfirmed)
	ok, err := security.VerifyPassword(testPassword, created.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	members, err := roles.ListUsersInRole(context.Background(), domain.RoleAdministrator)
	require.NoError(t, err)
	require.Len(t, members, 1)

	// A second run finds the account and leaves it alone.
	require.NoError(t, seeder.Run(context.Background(), entries))
	again, err := users.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
	require.Equal(t, created.PasswordHash, again.PasswordHash)
}

func TestSeederIsIdempotent(t *testing.T) {
	users := newFakeUserRepo(confirmedUser(t))
	roles := newFakeRoleRepo(users)
	seeder := NewSeeder(users, roles, zap.NewNop())

	entries := []AdministratorSeed{{Email: "alice@example.com"}}
	require.NoError(t, seeder.Run(context.Background(), entries))
	require.NoError(t, seeder.Run(context.Background(), entries))

	catalogue, err := roles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalogue, 1)

	members, err := roles.ListUsersInRole(context.Background(), domain.RoleAdministrator)
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestSeederRemovesUnknownRoles(t *testing.T) {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo(users, domain.Role{Name: "Legacy", DisplayName: "Legacy"})
	seeder := NewSeeder(users, roles, zap.NewNop())

	require.NoError(t, seeder.Run(context.Background(), nil))

	catalogue, err := roles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalogue, 1)
	require.Equal(t, domain.RoleAdministrator, catalogue[0].Name)
}
