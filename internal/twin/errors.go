package twin

import "errors"

// ErrNotFound is returned when no profile has the requested id.
var ErrNotFound = errors.New("twin not found")

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
