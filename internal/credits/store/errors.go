package store

import "toolbox/pkg/platform/sentinel"

var (
	ErrNotFound     = sentinel.ErrNotFound
	ErrInsufficient = sentinel.ErrInsufficient
	// ErrBalanceLimit rejects a credit that would push a balance past models.MaxBalance.
	ErrBalanceLimit = sentinel.ErrLimitExceeded
)
