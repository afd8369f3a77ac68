package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the entitlements a user can hold.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleSales     Role = "SALES"
	RoleInventory Role = "INVENTORY"
)

// AuthorityPrefix is prepended to role names when they are exposed as authorities.
const AuthorityPrefix = "ROLE_"

var knownRoles = map[Role]struct{}{
	RoleAdmin:     {},
	RoleSales:     {},
	RoleInventory: {},
}

// AllRoles lists every known role in a stable order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSales, RoleInventory}
}

// ParseRole accepts a bare or ROLE_-prefixed role name in any case.
func ParseRole(name string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.TrimPrefix(normalized, AuthorityPrefix)
	role := Role(normalized)
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return role, nil
}

// Authority returns the ROLE_-prefixed authority string.
func (r Role) Authority() string {
	return AuthorityPrefix + string(r)
}

// RoleNames converts roles to their bare string names.
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return names
}
