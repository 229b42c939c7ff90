package filecache

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed wraps recoverable fetch failures. The row is kept and
	// the open can be retried later.
	ErrFetchFailed = errors.New("artwork fetch failed")

	// ErrNoPersistentURI is returned when a missing file must be fetched
	// but the row has nowhere to fetch it from. Producers of such rows must
	// write the file themselves.
	ErrNoPersistentURI = errors.New("artwork has no persistent uri")

	// ErrInvalidMode is returned for an unknown open mode.
	ErrInvalidMode = errors.New("invalid open mode")
)

// PermanentError reports that a persistent URI can never be fetched as it
// stands: an unsupported scheme, an HTTP error status, a missing bundled
// asset. The row should be treated as invalid.
type PermanentError struct {
	URI    string
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URI, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URI, e.Reason)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func permanent(uri, reason string, err error) error {
	return &PermanentError{URI: uri, Reason: reason, Err: err}
}

// IsRecoverable reports whether err is a transient fetch failure that
// leaves the row valid. Permanent errors and a missing persistent URI are
// not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) || errors.Is(err, ErrNoPersistentURI) {
		return false
	}
	return true
}
