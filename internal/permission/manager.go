package permission

import "sync"

// Manager holds the permission configuration of one object and links to
// the manager of the object's parent.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	parent *Manager
	cfg    *Config
}

// NewManager returns a manager that defers entirely to parent. A manager
// without parent and without configuration allows everything.
func NewManager(parent *Manager) *Manager {
	return &Manager{parent: parent}
}

// SetPermissions replaces the configuration.
func (m *Manager) SetPermissions(cfg Config) {
	c := cfg.clone()
	m.mu.Lock()
	m.cfg = &c
	m.mu.Unlock()
}

// ClearPermissions removes the configuration so the parent applies again.
func (m *Manager) ClearPermissions() {
	m.mu.Lock()
	m.cfg = nil
	m.mu.Unlock()
}

// Permissions returns the configuration and whether one is set.
func (m *Manager) Permissions() (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return Config{}, false
	}
	return m.cfg.clone(), true
}

// SetParent links the manager to the parent object's manager. Called when
// the owning object is re-parented.
func (m *Manager) SetParent(parent *Manager) {
	if parent == m {
		return
	}
	m.mu.Lock()
	m.parent = parent
	m.mu.Unlock()
}

// Parent returns the parent manager.
func (m *Manager) Parent() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parent
}

// Effective computes the permissions user holds on this object.
func (m *Manager) Effective(user *User) Permission {
	m.mu.RLock()
	cfg, parent := m.cfg, m.parent
	m.mu.RUnlock()

	if cfg == nil {
		if parent == nil {
			return All
		}
		return parent.Effective(user)
	}

	var result Permission
	if cfg.Inherit && parent != nil {
		result = parent.Effective(user)
	}
	var allowed, denied Permission
	for group, p := range cfg.Allowed {
		if user.InGroup(group) {
			allowed |= p
		}
	}
	for group, p := range cfg.Denied {
		if user.InGroup(group) {
			denied |= p
		}
	}
	return (result | allowed) &^ denied
}

// IsAuthorized reports whether user holds p. A nil user is the system
// itself and is always authorized.
func (m *Manager) IsAuthorized(user *User, p Permission) bool {
	if user == nil || m == nil {
		return true
	}
	return m.Effective(user).Has(p)
}

// Clone returns an independent copy without a parent.
func (m *Manager) Clone() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cpy := &Manager{}
	if m.cfg != nil {
		c := m.cfg.clone()
		cpy.cfg = &c
	}
	return cpy
}
