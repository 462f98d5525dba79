package fs

import "fmt"

// Advice declares the expected access pattern for an open [File].
//
// It is a hint only: platforms without posix_fadvise accept every value and
// do nothing.
type Advice uint8

const (
	// AdviceNone skips the hint entirely. This is the zero value.
	AdviceNone Advice = iota
	// AdviceNormal resets the kernel to its default read-ahead.
	AdviceNormal
	// AdviceSequential asks for aggressive read-ahead.
	AdviceSequential
	// AdviceRandom disables read-ahead.
	AdviceRandom
)

// String returns the config spelling of a.
func (a Advice) String() string {
	switch a {
	case AdviceNone:
		return "none"
	case AdviceNormal:
		return "normal"
	case AdviceSequential:
		return "sequential"
	case AdviceRandom:
		return "random"
	default:
		return fmt.Sprintf("Advice(%d)", uint8(a))
	}
}

// ParseAdvice is the inverse of [Advice.String].
func ParseAdvice(s string) (Advice, error) {
	switch s {
	case "", "none":
		return AdviceNone, nil
	case "normal":
		return AdviceNormal, nil
	case "sequential":
		return AdviceSequential, nil
	case "random":
		return AdviceRandom, nil
	default:
		return AdviceNone, fmt.Errorf("unknown advice %q", s)
	}
}

// Advise applies a to the whole of f. [AdviceNone] is a no-op.
func Advise(f File, a Advice) error {
	if a == AdviceNone {
		return nil
	}

	return advise(f.Fd(), a)
}
