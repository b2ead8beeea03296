package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "read|write", (Read | Write).String())
	assert.Equal(t, "read|write|execute", All.String())
	assert.True(t, All.Has(Read|Execute))
	assert.False(t, Read.Has(Read|Write))
}

func TestUserGroups(t *testing.T) {
	u := NewUser("alice", "operators")
	assert.True(t, u.InGroup("operators"))
	assert.True(t, u.InGroup(GroupEveryone))
	assert.False(t, u.InGroup(GroupAdmin))
}

func TestBuilder(t *testing.T) {
	cfg := NewBuilder().
		Allow("operators", Read|Write).
		Deny("operators", Write).
		Assign("guests", Read).
		Build()

	assert.True(t, cfg.Inherit)
	assert.Equal(t, Read, cfg.Allowed["operators"])
	assert.Equal(t, Write, cfg.Denied["operators"])
	assert.Equal(t, Read, cfg.Allowed["guests"])
	assert.Equal(t, Write|Execute, cfg.Denied["guests"])

	def := DefaultConfig()
	assert.False(t, def.Inherit)
	assert.Equal(t, All, def.Allowed[GroupEveryone])
}

func TestManagerWithoutConfig(t *testing.T) {
	root := NewManager(nil)
	child := NewManager(root)
	alice := NewUser("alice")

	assert.Equal(t, All, child.Effective(alice))
	assert.True(t, child.IsAuthorized(nil, All), "nil user is the system")

	var unset *Manager
	assert.True(t, unset.IsAuthorized(alice, Write))
}

func TestManagerInheritance(t *testing.T) {
	root := NewManager(nil)
	root.SetPermissions(NewBuilder().Inherit(false).
		Allow(GroupEveryone, Read).
		Allow("operators", Write).
		Allow(GroupAdmin, All).
		Build())

	child := NewManager(root)
	child.SetPermissions(NewBuilder().Deny("operators", Write).Allow("operators", Execute).Build())

	viewer := NewUser("viewer")
	operator := NewUser("op", "operators")
	admin := NewUser("root", GroupAdmin)

	assert.Equal(t, Read, root.Effective(viewer))
	assert.Equal(t, Read|Write, root.Effective(operator))
	assert.Equal(t, Read|Execute, child.Effective(operator))
	assert.Equal(t, All, child.Effective(admin))

	isolated := NewManager(root)
	isolated.SetPermissions(NewBuilder().Inherit(false).Allow("operators", Read).Build())
	assert.Equal(t, None, isolated.Effective(viewer))
	assert.True(t, isolated.IsAuthorized(operator, Read))
	assert.False(t, isolated.IsAuthorized(admin, Read))

	isolated.ClearPermissions()
	_, ok := isolated.Permissions()
	assert.False(t, ok)
	assert.Equal(t, Read, isolated.Effective(viewer), "parent applies again")
}

func TestManagerParentAndClone(t *testing.T) {
	a := NewManager(nil)
	a.SetPermissions(NewBuilder().Inherit(false).Allow(GroupEveryone, Read).Build())
	b := NewManager(nil)
	b.SetParent(a)
	b.SetParent(b)
	assert.Same(t, a, b.Parent())
	assert.Equal(t, Read, b.Effective(NewUser("u")))

	cfg, ok := a.Permissions()
	assert.True(t, ok)
	cfg.Allowed[GroupEveryone] = All
	assert.Equal(t, Read, a.Effective(NewUser("u")), "returned config is a copy")

	cpy := a.Clone()
	assert.Nil(t, cpy.Parent())
	a.SetPermissions(DefaultConfig())
	assert.Equal(t, Read, cpy.Effective(NewUser("u")))
}
