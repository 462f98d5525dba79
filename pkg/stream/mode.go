package stream

import (
	"fmt"
	"os"
	"strings"
)

// Mode is the access mode of a [Stream], parsed from a C-style mode string.
type Mode uint8

const (
	// ModeRead is "r": read only, the file must exist.
	ModeRead Mode = iota + 1
	// ModeReadUpdate is "r+": read and write, the file must exist.
	ModeReadUpdate
	// ModeWrite is "w": write only, truncate or create.
	ModeWrite
	// ModeWriteUpdate is "w+": read and write, truncate or create.
	ModeWriteUpdate
	// ModeAppend is "a": write only at end of file, create if missing.
	ModeAppend
	// ModeAppendUpdate is "a+": read anywhere, write at end of file,
	// create if missing.
	ModeAppendUpdate
)

// ParseMode maps a mode string to a [Mode].
//
// Only the leading letter and a '+' flag are significant. 'b' and 't' are
// accepted after the leading letter and ignored (there is no text-mode
// translation), so "rb", "r+b" and "rb+" all parse. Anything else fails
// with [ErrInvalidMode].
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty mode", ErrInvalidMode)
	}

	plus := false

	for _, r := range s[1:] {
		switch r {
		case '+':
			plus = true
		case 'b', 't':
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
		}
	}

	switch s[0] {
	case 'r':
		if plus {
			return ModeReadUpdate, nil
		}

		return ModeRead, nil
	case 'w':
		if plus {
			return ModeWriteUpdate, nil
		}

		return ModeWrite, nil
	case 'a':
		if plus {
			return ModeAppendUpdate, nil
		}

		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// String returns the canonical mode string ("r", "w+", ...).
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeReadUpdate:
		return "r+"
	case ModeWrite:
		return "w"
	case ModeWriteUpdate:
		return "w+"
	case ModeAppend:
		return "a"
	case ModeAppendUpdate:
		return "a+"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// CanRead reports whether reads are permitted.
func (m Mode) CanRead() bool {
	switch m {
	case ModeRead, ModeReadUpdate, ModeWriteUpdate, ModeAppendUpdate:
		return true
	default:
		return false
	}
}

// CanWrite reports whether writes are permitted.
func (m Mode) CanWrite() bool {
	switch m {
	case ModeReadUpdate, ModeWrite, ModeWriteUpdate, ModeAppend, ModeAppendUpdate:
		return true
	default:
		return false
	}
}

// Appends reports whether every write lands at end of file.
func (m Mode) Appends() bool {
	return m == ModeAppend || m == ModeAppendUpdate
}

// Flags returns the [os.OpenFile] flags for m.
func (m Mode) Flags() int {
	switch m {
	case ModeRead:
		return os.O_RDONLY
	case ModeReadUpdate:
		return os.O_RDWR
	case ModeWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeWriteUpdate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeAppendUpdate:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// describeFlags renders flags for diagnostics.
func describeFlags(flags int) string {
	var parts []string

	switch flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		parts = append(parts, "O_WRONLY")
	case os.O_RDWR:
		parts = append(parts, "O_RDWR")
	default:
		parts = append(parts, "O_RDONLY")
	}

	if flags&os.O_CREATE != 0 {
		parts = append(parts, "O_CREATE")
	}

	if flags&os.O_TRUNC != 0 {
		parts = append(parts, "O_TRUNC")
	}

	if flags&os.O_APPEND != 0 {
		parts = append(parts, "O_APPEND")
	}

	return strings.Join(parts, "|")
}
