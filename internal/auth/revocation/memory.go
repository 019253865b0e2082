// Package revocation holds token revocation lists keyed by jti. Entries
// expire with the token they revoke.
package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked jtis in process memory. It suits a single
// instance; expired entries are dropped lazily on lookup and on write.
type InMemoryTRL struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryOption func(*InMemoryTRL)

func WithInMemoryClock(clock Clock) InMemoryOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryOption) *InMemoryTRL {
	trl := &InMemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if !now.Before(exp) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}

// Len reports tracked entries, expired ones included until swept.
func (t *InMemoryTRL) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.revoked)
}
