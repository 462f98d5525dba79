package fs

import (
	"errors"
	"io"
	"os"
)

// TestBuilder is the subset of [testing.T] used by [StrictTestFS].
//
// This keeps [StrictTestFS] usable from tests in other packages without
// depending on _test.go files.
type TestBuilder interface {
	// [testing.T.Helper]
	Helper()
	// [testing.T.Fatalf]
	Fatalf(format string, args ...any)
}

// StrictTestFS wraps an [FS] for tests and fails the test on any
// non-injected (real) filesystem error. End of file is not an error.
//
// Put it on top of a [Chaos] to tell injected faults, which the code under
// test must handle, from environment failures, which mean the test itself
// is broken. When the wrapped FS is a [Chaos] its trace is included in the
// failure message.
type StrictTestFS struct {
	tb TestBuilder
	fs FS
}

// NewStrictTestFS creates a new [StrictTestFS] wrapping fs.
func NewStrictTestFS(tb TestBuilder, fs FS) *StrictTestFS {
	if fs == nil {
		panic("fs is nil")
	}

	return &StrictTestFS{tb: tb, fs: fs}
}

func (s *StrictTestFS) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	s.tb.Helper()

	f, err := s.fs.OpenFile(path, flag, perm)
	if err := s.check("openfile", path, err); err != nil {
		return nil, err
	}

	return &strictFile{s: s, f: f, path: path}, nil
}

func (s *StrictTestFS) Stat(path string) (os.FileInfo, error) {
	s.tb.Helper()
	info, err := s.fs.Stat(path)

	return info, s.check("stat", path, err)
}

func (s *StrictTestFS) Exists(path string) (bool, error) {
	s.tb.Helper()
	exists, err := s.fs.Exists(path)

	return exists, s.check("exists", path, err)
}

func (s *StrictTestFS) Remove(path string) error {
	s.tb.Helper()

	return s.check("remove", path, s.fs.Remove(path))
}

// Interface compliance.
var _ FS = (*StrictTestFS)(nil)

// check fatals on real errors and passes everything else through.
func (s *StrictTestFS) check(op, path string, err error) error {
	s.tb.Helper()

	if err == nil || IsChaosErr(err) || errors.Is(err, io.EOF) {
		return err
	}

	trace := ""
	if tracer, ok := s.fs.(interface{ Trace() string }); ok {
		if t := tracer.Trace(); t != "" {
			trace = "\n" + t
		}
	}

	s.tb.Fatalf("strictfs: underlying filesystem error: %s %s: %v%s", op, path, err, trace)

	return err
}

type strictFile struct {
	s    *StrictTestFS
	f    File
	path string
}

func (sf *strictFile) Read(p []byte) (int, error) {
	sf.s.tb.Helper()
	n, err := sf.f.Read(p)

	return n, sf.s.check("read", sf.path, err)
}

func (sf *strictFile) Write(p []byte) (int, error) {
	sf.s.tb.Helper()
	n, err := sf.f.Write(p)

	return n, sf.s.check("write", sf.path, err)
}

func (sf *strictFile) Close() error {
	sf.s.tb.Helper()

	return sf.s.check("close", sf.path, sf.f.Close())
}

func (sf *strictFile) Seek(offset int64, whence int) (int64, error) {
	sf.s.tb.Helper()
	pos, err := sf.f.Seek(offset, whence)

	return pos, sf.s.check("seek", sf.path, err)
}

func (sf *strictFile) Fd() uintptr {
	return sf.f.Fd()
}

func (sf *strictFile) Stat() (os.FileInfo, error) {
	sf.s.tb.Helper()
	info, err := sf.f.Stat()

	return info, sf.s.check("fstat", sf.path, err)
}

func (sf *strictFile) Sync() error {
	sf.s.tb.Helper()

	return sf.s.check("sync", sf.path, sf.f.Sync())
}

var _ File = (*strictFile)(nil)
