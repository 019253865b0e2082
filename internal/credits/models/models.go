package models

import (
	"math"
	"time"

	id "toolbox/pkg/domain"
)

// Account is a user's spendable credit balance. Balance never goes negative.
type Account struct {
	UserID    id.UserID `json:"user_id"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is one immutable ledger line. Delta is negative for debits.
type Entry struct {
	ID           id.EntryID `json:"id"`
	UserID       id.UserID  `json:"user_id"`
	Delta        int        `json:"delta"`
	Reason       string     `json:"reason"`
	BalanceAfter int        `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewEntry records a movement that left the account at balanceAfter.
func NewEntry(userID id.UserID, delta int, reason string, balanceAfter int, now time.Time) *Entry {
	return &Entry{
		ID:           id.NewEntryID(),
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: balanceAfter,
		CreatedAt:    now,
	}
}

type BalanceResponse struct {
	UserID  id.UserID `json:"user_id"`
	Balance int       `json:"balance"`
}

type EntriesResponse struct {
	Entries []*Entry `json:"entries"`
}

// GrantRequest is the admin payload for topping up an account.
type GrantRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

const (
	ReasonSignupBonus = "signup bonus"
	ReasonAdminGrant  = "admin grant"
	MaxReasonLength   = 200
	DefaultEntryLimit = 50
	MaxEntryLimit     = 500

	// MaxGrantAmount caps a single admin grant.
	MaxGrantAmount = 1_000_000
	// MaxBalance is the largest balance the ledger column can hold.
	MaxBalance = math.MaxInt32
)
