package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func Test_RealFS_Exists_Returns_False_When_Path_Does_Not_Exist(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()

	exists, err := fs.Exists(filepath.Join(dir, "does-not-exist.txt"))

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, false; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_Exists_Returns_True_When_Path_Is_A_File(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.txt")

	// Create file
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exists, err := fs.Exists(path)

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, true; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_Exists_Returns_True_When_Path_Is_A_Directory(t *testing.T) {
	fs := NewReal()
	dir := t.TempDir()
	subdir := filepath.Join(dir, "subdir")

	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exists, err := fs.Exists(subdir)

	if got, want := err, error(nil); !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}

	if got, want := exists, true; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}

func Test_RealFS_OpenFile_Returns_OS_File_When_Path_Is_Created(t *testing.T) {
	fs := NewReal()
	path := filepath.Join(t.TempDir(), "new.txt")

	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if _, ok := f.(*os.File); !ok {
		t.Fatalf("OpenFile returned %T, want *os.File", f)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := info.Mode().Perm()&0o600, os.FileMode(0o600); got != want {
		t.Fatalf("perm=%v, want owner rw", info.Mode().Perm())
	}
}

func Test_RealFS_Remove_Deletes_File_When_Path_Exists(t *testing.T) {
	fs := NewReal()
	path := filepath.Join(t.TempDir(), "gone.txt")

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	exists, err := fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}

	if got, want := exists, false; got != want {
		t.Fatalf("exists=%v, want=%v", got, want)
	}
}
