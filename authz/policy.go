package authz

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Rule requires at least one of Roles for every request whose path has the
// given prefix.
type Rule struct {
	Prefix string
	Roles  []string
}

// PolicyStore holds path-prefix authorization rules. Lookups pick the rule
// with the longest matching prefix, so a narrow rule can tighten (or relax)
// a broad one. Thread-safe implementation using sync.RWMutex.
type PolicyStore struct {
	mu     sync.RWMutex
	rules  []Rule // sorted by descending prefix length
	hits   uint64 // lookups that matched a rule
	misses uint64 // lookups that matched no rule
}

// NewPolicyStore creates a PolicyStore with the given rules
func NewPolicyStore(rules ...Rule) *PolicyStore {
	s := &PolicyStore{}
	for _, r := range rules {
		s.insert(r)
	}
	return s
}

// ParseRoutePolicy parses a policy spec of the form
// "prefix=role1|role2,prefix2=role3" into a PolicyStore.
func ParseRoutePolicy(spec string) (*PolicyStore, error) {
	store := NewPolicyStore()
	if strings.TrimSpace(spec) == "" {
		return store, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, rolesSpec, ok := strings.Cut(entry, "=")
		prefix = strings.TrimSpace(prefix)
		if !ok || prefix == "" || !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("invalid route policy entry %q", entry)
		}

		var roles []string
		for _, role := range strings.Split(rolesSpec, "|") {
			role = strings.TrimSpace(role)
			if role != "" {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("route policy entry %q names no roles", entry)
		}

		store.Set(Rule{Prefix: prefix, Roles: roles})
	}

	return store, nil
}

// Set adds a rule, replacing any existing rule for the same prefix
func (s *PolicyStore) Set(rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].Prefix == rule.Prefix {
			s.rules[i] = rule
			return
		}
	}
	s.insertLocked(rule)
}

// RequiredRoles returns the roles required for a path, or nil when no rule
// applies (the path is open to any authenticated principal).
func (s *PolicyStore) RequiredRoles(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range s.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			s.hits++
			return rule.Roles
		}
	}
	s.misses++
	return nil
}

// Rules returns a copy of the current rules, longest prefix first
func (s *PolicyStore) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Stats returns lookup statistics
func (s *PolicyStore) Stats() (hits, misses uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.misses
}

func (s *PolicyStore) insert(rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(rule)
}

// insertLocked keeps rules sorted by descending prefix length so the first
// prefix match is the longest one. Caller must hold mu.
func (s *PolicyStore) insertLocked(rule Rule) {
	s.rules = append(s.rules, rule)
	sort.SliceStable(s.rules, func(i, j int) bool {
		return len(s.rules[i].Prefix) > len(s.rules[j].Prefix)
	})
}
