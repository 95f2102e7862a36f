package coordinator

import (
	"errors"
	"fmt"
)

// ErrOffsetOutOfRange rejects a manually requested offset outside the
// API bound.
var ErrOffsetOutOfRange = errors.New("coordinator: offset out of range")

// UpdateError reports a failed poll cycle. The previously published
// snapshot stays visible; Err retains the underlying auth or API error
// so callers can detect a credential failure with errors.As.
type UpdateError struct {
	Step string
	Err  error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("coordinator: update failed at %s: %v", e.Step, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

func updateErr(step string, err error) error {
	return &UpdateError{Step: step, Err: err}
}
