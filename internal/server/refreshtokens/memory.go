package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
)

// MemoryRepository keeps tokens in a map. Expired tokens are dropped on
// lookup and by Purge.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
	now    func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: map[string]RefreshToken{}, now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, userID string, token string, validity time.Duration) error {
	now := r.now()
	r.mu.Lock()
	r.tokens[token] = RefreshToken{UserID: userID, Token: token, Expires: now.Add(validity), CreatedAt: now}
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !r.now().Before(rt.Expires) {
		delete(r.tokens, token)
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (r *MemoryRepository) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
	return nil
}

// Purge removes every expired token and reports how many were dropped.
func (r *MemoryRepository) Purge(_ context.Context) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, rt := range r.tokens {
		if !now.Before(rt.Expires) {
			delete(r.tokens, k)
			n++
		}
	}
	return n
}
