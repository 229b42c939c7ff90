package filecache

import (
	"fmt"
	"os"
)

// Mode is a file open mode.
type Mode string

const (
	ModeRead              Mode = "r"
	ModeWrite             Mode = "w"
	ModeWriteTruncate     Mode = "wt"
	ModeWriteAppend       Mode = "wa"
	ModeReadWrite         Mode = "rw"
	ModeReadWriteTruncate Mode = "rwt"
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, err := m.flags(); err != nil {
		return "", err
	}
	return m, nil
}

// ReadOnly reports whether m opens for reading only. Only read-only opens
// fetch missing files.
func (m Mode) ReadOnly() bool {
	return m == ModeRead
}

func (m Mode) flags() (int, error) {
	switch m {
	case ModeRead:
		return os.O_RDONLY, nil
	case ModeWrite, ModeWriteTruncate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case ModeWriteAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case ModeReadWrite:
		return os.O_RDWR | os.O_CREATE, nil
	case ModeReadWriteTruncate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
	}
}
