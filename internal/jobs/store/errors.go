package store

import "toolbox/pkg/platform/sentinel"

var (
	ErrNotFound     = sentinel.ErrNotFound
	ErrConflict     = sentinel.ErrConflict
	ErrInvalidState = sentinel.ErrInvalidState
)
