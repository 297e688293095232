package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/eumgrid/internal/common"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	// GetUserByLogin and GetUserByID return common.ErrorNotFound for
	// unknown users.
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

// MemoryRepository is a Repository over two maps.
type MemoryRepository struct {
	mu      sync.RWMutex
	byLogin map[string]*User
	byID    map[string]*User
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byLogin: map[string]*User{}, byID: map[string]*User{}}
}

// Create stores a copy of user. Logins and ids must be unique.
func (r *MemoryRepository) Create(_ context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLogin[user.UserName]; ok {
		return nil, fmt.Errorf("user %q already exists", user.UserName)
	}
	if _, ok := r.byID[user.ID]; ok {
		return nil, fmt.Errorf("user id %q already exists", user.ID)
	}
	u := *user
	r.byLogin[u.UserName] = &u
	r.byID[u.ID] = &u
	return &u, nil
}

func (r *MemoryRepository) GetUserByLogin(_ context.Context, login string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}
