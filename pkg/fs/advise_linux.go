//go:build linux

package fs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func advise(fd uintptr, a Advice) error {
	var advice int

	switch a {
	case AdviceNormal:
		advice = unix.FADV_NORMAL
	case AdviceSequential:
		advice = unix.FADV_SEQUENTIAL
	case AdviceRandom:
		advice = unix.FADV_RANDOM
	default:
		return nil
	}

	// offset=0, length=0 covers the whole file, including bytes appended later.
	err := unix.Fadvise(int(fd), 0, 0, advice)
	if err != nil {
		return fmt.Errorf("fadvise %s: %w", a, err)
	}

	return nil
}
