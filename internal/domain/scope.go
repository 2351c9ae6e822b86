package domain

import "github.com/google/uuid"

// RequestScope is the immutable, per-request value threaded through
// handlers by the admission pipeline. It is built once and passed down
// explicitly rather than stashed in a thread-local or context key.
type RequestScope struct {
	RequestID   uuid.UUID
	PartnerID   uuid.UUID
	ApiKeyID    uuid.UUID
	Permissions PermissionSet
	ClientIP    string
}

// Permission is a single `resource:action` capability string.
type Permission string

// PermissionSet is a typed capability set with precomputed wildcard
// lookups, instead of scanning a flat permission list on every check.
type PermissionSet struct {
	exact     map[Permission]struct{}
	resources map[string]struct{} // "resource:*"
	actions   map[string]struct{} // "*:action"
	allAll    bool                // "*" or "*:*"
}

// NewPermissionSet builds a PermissionSet from raw `resource:action` or
// wildcard strings.
func NewPermissionSet(raw []string) PermissionSet {
	ps := PermissionSet{
		exact:     make(map[Permission]struct{}),
		resources: make(map[string]struct{}),
		actions:   make(map[string]struct{}),
	}
	for _, r := range raw {
		switch {
		case r == "*" || r == "*:*":
			ps.allAll = true
		case len(r) > 2 && r[len(r)-2:] == ":*":
			ps.resources[r[:len(r)-2]] = struct{}{}
		case len(r) > 2 && r[:2] == "*:":
			ps.actions[r[2:]] = struct{}{}
		default:
			ps.exact[Permission(r)] = struct{}{}
		}
	}
	return ps
}

// Grants reports whether the set grants `resource:action`: exact match,
// `resource:*`, `*:action`, `*`, or `*:*` all satisfy it.
func (ps PermissionSet) Grants(resource, action string) bool {
	if ps.allAll {
		return true
	}
	if _, ok := ps.resources[resource]; ok {
		return true
	}
	if _, ok := ps.actions[action]; ok {
		return true
	}
	_, ok := ps.exact[Permission(resource+":"+action)]
	return ok
}
