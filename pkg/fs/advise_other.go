//go:build !linux

package fs

func advise(uintptr, Advice) error {
	return nil
}
