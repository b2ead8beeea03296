// Package permission decides which users may read, write or execute the
// properties of a property object.
//
// Permissions are granted to groups. A Manager holds the configuration of
// one object and may inherit from its parent object's manager, so a tree
// of objects is usually configured once at the root.
package permission

import "strings"

// Permission is a bitmask of capabilities.
type Permission uint32

// Permission bits.
const (
	None    Permission = 0
	Read    Permission = 1 << 0
	Write   Permission = 1 << 1
	Execute Permission = 1 << 2

	All = Read | Write | Execute
)

// Has reports whether p includes every bit of q.
func (p Permission) Has(q Permission) bool { return p&q == q }

// String lists the set bits, e.g. "read|write".
func (p Permission) String() string {
	if p == None {
		return "none"
	}
	var parts []string
	for _, b := range []struct {
		bit  Permission
		name string
	}{{Read, "read"}, {Write, "write"}, {Execute, "execute"}} {
		if p.Has(b.bit) {
			parts = append(parts, b.name)
		}
	}
	return strings.Join(parts, "|")
}

// Well-known groups.
const (
	// GroupEveryone implicitly contains every user.
	GroupEveryone = "everyone"

	// GroupAdmin is granted everything by the default configuration.
	GroupAdmin = "admin"
)

// User is the identity an access check is made for.
type User struct {
	Username string
	Groups   []string
}

// NewUser returns a user belonging to groups.
func NewUser(username string, groups ...string) *User {
	return &User{Username: username, Groups: groups}
}

// InGroup reports whether the user belongs to group. Every user belongs
// to GroupEveryone.
func (u *User) InGroup(group string) bool {
	if group == GroupEveryone {
		return true
	}
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Config is the permission configuration of one object.
type Config struct {
	// Inherit starts from the parent's effective permissions instead of
	// from nothing.
	Inherit bool
	Allowed map[string]Permission
	Denied  map[string]Permission
}

func (c Config) clone() Config {
	cpy := Config{
		Inherit: c.Inherit,
		Allowed: make(map[string]Permission, len(c.Allowed)),
		Denied:  make(map[string]Permission, len(c.Denied)),
	}
	for g, p := range c.Allowed {
		cpy.Allowed[g] = p
	}
	for g, p := range c.Denied {
		cpy.Denied[g] = p
	}
	return cpy
}

// Builder assembles a Config.
type Builder struct {
	cfg Config
}

// NewBuilder starts a configuration that inherits from the parent.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		Inherit: true,
		Allowed: make(map[string]Permission),
		Denied:  make(map[string]Permission),
	}}
}

// Inherit sets whether parent permissions apply.
func (b *Builder) Inherit(inherit bool) *Builder {
	b.cfg.Inherit = inherit
	return b
}

// Allow adds permissions for group.
func (b *Builder) Allow(group string, p Permission) *Builder {
	b.cfg.Allowed[group] |= p
	b.cfg.Denied[group] &^= p
	return b
}

// Deny removes permissions for group, overriding inherited grants.
func (b *Builder) Deny(group string, p Permission) *Builder {
	b.cfg.Denied[group] |= p
	b.cfg.Allowed[group] &^= p
	return b
}

// Assign replaces the permissions of group: p is allowed, the rest denied.
func (b *Builder) Assign(group string, p Permission) *Builder {
	b.cfg.Allowed[group] = p
	b.cfg.Denied[group] = All &^ p
	return b
}

// Build returns the configuration.
func (b *Builder) Build() Config {
	return b.cfg.clone()
}

// DefaultConfig grants everyone everything.
func DefaultConfig() Config {
	return NewBuilder().Inherit(false).Allow(GroupEveryone, All).Build()
}
