package auth

import (
	"slices"
	"strings"
)

// Roles is a normalized set of role names: sorted, de-duplicated and free of
// empty or whitespace-only entries. The zero value is the empty set.
type Roles []string

// NewRoles builds a normalized role set from the given names.
func NewRoles(names ...string) Roles {
	out := make(Roles, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseRoles parses the comma-delimited storage form (e.g. "ADMIN, USER").
func ParseRoles(csv string) Roles {
	if strings.TrimSpace(csv) == "" {
		return Roles{}
	}
	return NewRoles(strings.Split(csv, ",")...)
}

// String returns the comma-delimited storage form.
func (r Roles) String() string {
	return strings.Join(r, ",")
}

// Slice returns a copy of the role names.
func (r Roles) Slice() []string {
	return slices.Clone([]string(r))
}

// Empty reports whether the set has no roles.
func (r Roles) Empty() bool {
	return len(r) == 0
}

// Contains reports whether role is in the set.
func (r Roles) Contains(role string) bool {
	_, found := slices.BinarySearch(r, role)
	return found
}

// Intersects reports whether r and other share at least one role.
func (r Roles) Intersects(other Roles) bool {
	i, j := 0, 0
	for i < len(r) && j < len(other) {
		switch {
		case r[i] == other[j]:
			return true
		case r[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Equal reports whether both sets hold the same roles.
func (r Roles) Equal(other Roles) bool {
	return slices.Equal(r, other)
}
