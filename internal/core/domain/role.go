package domain

// RoleAdministrator is the built-in role granting administrative access.
const RoleAdministrator = "Administrator"

// Role defines a named permission group. The full set is fixed by
// configuration and reconciled into storage at startup.
type Role struct {
	Name        string
	DisplayName string
	Description string
}

// RoleDiff describes the storage changes required to converge the persisted
// role set onto the configured one.
type RoleDiff struct {
	Create []Role
	Delete []string
}

// ReconcileRoles computes the idempotent diff between the desired role set and
// the role names currently in storage. Roles present in both are untouched.
func ReconcileRoles(desired []Role, current []string) RoleDiff {
	desiredByName := make(map[string]Role, len(desired))
	for _, role := range desired {
		desiredByName[role.Name] = role
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, name := range current {
		currentSet[name] = struct{}{}
	}

	var diff RoleDiff
	for _, role := range desired {
		if _, ok := currentSet[role.Name]; !ok {
			diff.Create = append(diff.Create, role)
		}
	}
	for _, name := range current {
		if _, ok := desiredByName[name]; !ok {
			diff.Delete = append(diff.Delete, name)
		}
	}

	return diff
}
