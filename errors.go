package dok

import (
	"errors"
	"fmt"
)

// ErrNoopMove is returned when a move targets the source's current parent
var ErrNoopMove = errors.New("source is already in destination")

// TransportError is a network or HTTP failure talking to the remote
type TransportError struct {
	Op         string
	Path       string
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: remote returned status %d", e.Op, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError is an illegal request caught before any network call
// i.e. a move into its own subtree or an empty name on create
type ValidationError struct {
	Op     string
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Reason)
}

// NotFoundError means a path was referenced that no longer exists remotely,
// usually because it was deleted since the last refresh
type NotFoundError struct {
	Op   string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Op, e.Path)
}

// IsNotFound reports whether any error in err's chain is a [*NotFoundError]
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether any error in err's chain is a [*ValidationError]
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether any error in err's chain is a [*TransportError]
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
