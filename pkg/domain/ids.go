// Package domain holds primitive value types shared across modules.
//
// IDs are distinct named types over uuid.UUID so a JobID can never be passed
// where a UserID is expected. Parse* functions are the trust boundary: they
// reject empty, malformed, and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "toolbox/pkg/domain-errors"
)

type (
	UserID  uuid.UUID
	JobID   uuid.UUID
	EntryID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	return UserID(u), err
}

func ParseJobID(s string) (JobID, error) {
	u, err := parseUUID("job_id", s)
	return JobID(u), err
}

func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID("entry_id", s)
	return EntryID(u), err
}

func NewJobID() JobID     { return JobID(uuid.New()) }
func NewEntryID() EntryID { return EntryID(uuid.New()) }

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id JobID) String() string   { return uuid.UUID(id).String() }
func (id EntryID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id JobID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id JobID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id EntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *JobID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EntryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
