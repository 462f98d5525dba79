package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeTB struct {
	failed bool
	msg    string
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failed = true
	f.msg = fmt.Sprintf(format, args...)
	panic(f.msg)
}

// expectFatal runs fn and reports the Fatalf message, or "" if fn returned.
func expectFatal(fn func()) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprint(r)
		}
	}()

	fn()

	return ""
}

func Test_StrictFS_Passes_Chaos_Errors_Through_When_Faults_Are_Injected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.txt")
	mustWriteFile(t, path, []byte("hello"))

	tb := &fakeTB{}
	chaos := NewChaos(NewReal(), 0, ChaosConfig{ReadFailRate: 1.0, WriteFailRate: 1.0})
	strict := NewStrictTestFS(tb, chaos)

	f, err := strict.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if _, err := f.Read(make([]byte, 5)); !IsChaosErr(err) {
		t.Fatalf("Read err=%v, want chaos error", err)
	}

	if _, err := f.Write([]byte("x")); !IsChaosErr(err) {
		t.Fatalf("Write err=%v, want chaos error", err)
	}

	if tb.failed {
		t.Fatalf("tb.failed=true, want false (%s)", tb.msg)
	}
}

func Test_StrictFS_Does_Not_Fail_When_Read_Hits_EOF(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.txt")
	mustWriteFile(t, path, nil)

	tb := &fakeTB{}
	strict := NewStrictTestFS(tb, NewReal())

	f, err := strict.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if _, err := f.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("Read err=%v, want io.EOF", err)
	}

	if tb.failed {
		t.Fatalf("tb.failed=true, want false (%s)", tb.msg)
	}
}

func Test_StrictFS_Fails_Test_With_Trace_When_Error_Is_Real(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	chaos := NewChaos(NewReal(), 0, ChaosConfig{TraceCapacity: 8})
	strict := NewStrictTestFS(tb, chaos)
	missing := filepath.Join(t.TempDir(), "missing.txt")

	msg := expectFatal(func() {
		_, _ = strict.OpenFile(missing, os.O_RDONLY, 0)
	})

	if !tb.failed {
		t.Fatalf("tb.failed=false, want true")
	}

	for _, want := range []string{"strictfs: underlying filesystem error", "openfile", "missing.txt", "open path="} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}
