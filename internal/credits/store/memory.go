package store

import (
	"context"
	"sync"
	"time"

	"toolbox/internal/credits/models"
	id "toolbox/pkg/domain"
)

// InMemoryLedgerStore keeps accounts and entries in maps. Every mutation
// holds the write lock, so a debit's check and update are atomic.
type InMemoryLedgerStore struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*models.Account
	entries  map[id.UserID][]*models.Entry
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		accounts: make(map[id.UserID]*models.Account),
		entries:  make(map[id.UserID][]*models.Entry),
	}
}

func (s *InMemoryLedgerStore) FindAccount(_ context.Context, userID id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

// OpenAccount creates the account with an opening balance if it does not
// exist yet, recording the opening entry. An existing account is returned as is.
func (s *InMemoryLedgerStore) OpenAccount(_ context.Context, userID id.UserID, opening int, reason string, now time.Time) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct, ok := s.accounts[userID]; ok {
		cp := *acct
		return &cp, nil
	}
	acct := &models.Account{UserID: userID, Balance: opening, UpdatedAt: now}
	s.accounts[userID] = acct
	if opening != 0 {
		s.entries[userID] = append(s.entries[userID], models.NewEntry(userID, opening, reason, opening, now))
	}
	cp := *acct
	return &cp, nil
}

// Apply adds delta to the balance and appends a ledger entry. A delta that
// would take the balance below zero fails with ErrInsufficient, one that would
// pass models.MaxBalance fails with ErrBalanceLimit. Neither changes anything.
func (s *InMemoryLedgerStore) Apply(_ context.Context, userID id.UserID, delta int, reason string, now time.Time) (*models.Account, *models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if delta > models.MaxBalance-acct.Balance {
		return nil, nil, ErrBalanceLimit
	}
	if acct.Balance+delta < 0 {
		return nil, nil, ErrInsufficient
	}
	acct.Balance += delta
	acct.UpdatedAt = now

	entry := models.NewEntry(userID, delta, reason, acct.Balance, now)
	s.entries[userID] = append(s.entries[userID], entry)

	cp := *acct
	return &cp, entry, nil
}

// ListEntries returns the newest entries first.
func (s *InMemoryLedgerStore) ListEntries(_ context.Context, userID id.UserID, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.entries[userID]
	n := len(src)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]*models.Entry, 0, n)
	for i := len(src) - 1; i >= 0 && len(out) < n; i-- {
		cp := *src[i]
		out = append(out, &cp)
	}
	return out, nil
}
