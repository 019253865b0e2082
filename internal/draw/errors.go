package draw

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by errors.Is for every InvalidInputError.
var ErrInvalidInput = errors.New("invalid draw input")

// InvalidInputError reports malformed generator input. It is the only error
// Generate returns; restriction conflicts are never errors.
type InvalidInputError struct {
	Reason      string
	Participant string
}

func (e *InvalidInputError) Error() string {
	if e.Participant != "" {
		return fmt.Sprintf("%s: %q", e.Reason, e.Participant)
	}
	return e.Reason
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

const (
	ReasonTooFewParticipants = "too few participants"
	ReasonDuplicate          = "duplicate participant"
	ReasonMaxAttempts        = "max attempts must be positive"
)
