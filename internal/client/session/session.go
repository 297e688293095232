// Package session holds the client's view of the logged-in user: the access
// token and the user record returned at login. The transport and the refresh
// coordinator receive an Accessor at construction and never reach for a
// process-wide store.
package session

import (
	"sync"
)

// User is the identity returned by /auth/login.
type User struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Snapshot is a point-in-time copy of the session.
// IsAuthenticated is true iff AccessToken is non-empty.
type Snapshot struct {
	AccessToken     string
	User            *User
	IsAuthenticated bool
}

// UserID returns the snapshot user's id or "" when nobody is logged in.
func (s Snapshot) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.UserID
}

// Accessor is the contract the data-access layer needs from a session store.
type Accessor interface {
	Snapshot() Snapshot
	SetAccessToken(token string)
	SetUser(user *User)
	Clear()
}

// MemoryStore is an in-process Accessor. Durable persistence is left to
// callers that wrap it.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	user  *User
}

var _ Accessor = (*MemoryStore)(nil)

// NewMemoryStore returns an empty, unauthenticated store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Snapshot returns a copy; mutating the returned User does not affect the store.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		AccessToken:     m.token,
		User:            cloneUser(m.user),
		IsAuthenticated: m.token != "",
	}
}

// SetAccessToken replaces the access token. An empty token logs the
// session out without forgetting the user.
func (m *MemoryStore) SetAccessToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

// SetUser replaces the user record.
func (m *MemoryStore) SetUser(user *User) {
	m.mu.Lock()
	m.user = cloneUser(user)
	m.mu.Unlock()
}

// Clear drops token and user.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Roles != nil {
		c.Roles = append([]string(nil), u.Roles...)
	}
	return &c
}
