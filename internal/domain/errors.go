package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrForbidden     = errors.New("forbidden")
)

// StoreError wraps a failure talking to a backing store. These are treated as
// transient: reads may be retried, and callers surface them as a recoverable state.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err, leaving domain sentinels untouched so callers can still match them.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCursor) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsTransient reports whether err is a store failure worth retrying.
func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
