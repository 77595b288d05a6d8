package keycloak

import "sort"

// RoleSet is a deduplicated set of role names belonging to one request's
// principal. It is built fresh per token and never shared or mutated after
// normalization, so it is safe to read from any number of goroutines.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from the given role names.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	set.addAll(roles)
	return set
}

// NormalizeRoles flattens Keycloak's two role namespaces out of a raw claim
// map into a single RoleSet: every element of `realm_access.roles` plus every
// element of `resource_access.<clientID>.roles`.
//
// The function is total: a missing branch, a wrong-typed branch, or a
// non-string array element contributes nothing. A verified token without
// roles is a legitimate state, not a malformed one, so nothing here is ever
// an error. The result depends only on set membership of the two arrays;
// element order and duplicates in the input are irrelevant.
func NormalizeRoles(raw map[string]any, clientID string) RoleSet {
	set := make(RoleSet)

	if realm, ok := raw["realm_access"].(map[string]any); ok {
		set.addAny(realm["roles"])
	}
	if resources, ok := raw["resource_access"].(map[string]any); ok {
		if client, ok := resources[clientID].(map[string]any); ok {
			set.addAny(client["roles"])
		}
	}

	return set
}

// Has reports whether the set contains the given role.
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set contains at least one of the given roles.
func (s RoleSet) HasAny(roles ...string) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of the given roles.
func (s RoleSet) HasAll(roles ...string) bool {
	for _, role := range roles {
		if !s.Has(role) {
			return false
		}
	}
	return true
}

// Names returns the roles as a sorted slice.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for role := range s {
		names = append(names, role)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct roles in the set.
func (s RoleSet) Len() int {
	return len(s)
}

// IsEmpty reports whether the set contains no roles.
func (s RoleSet) IsEmpty() bool {
	return len(s) == 0
}

func (s RoleSet) addAll(roles []string) {
	for _, role := range roles {
		s[role] = struct{}{}
	}
}

// addAny adds the string elements of a decoded JSON value that may or may not
// be a []any of strings. Anything else is ignored.
func (s RoleSet) addAny(v any) {
	roles, ok := v.([]any)
	if !ok {
		return
	}
	for _, r := range roles {
		if role, ok := r.(string); ok {
			s[role] = struct{}{}
		}
	}
}
