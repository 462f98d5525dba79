package stream

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_ParseMode_Returns_Mode_When_String_Is_Valid(t *testing.T) {
	cases := map[string]Mode{
		"r":   ModeRead,
		"rb":  ModeRead,
		"rt":  ModeRead,
		"r+":  ModeReadUpdate,
		"r+b": ModeReadUpdate,
		"rb+": ModeReadUpdate,
		"w":   ModeWrite,
		"wb":  ModeWrite,
		"w+":  ModeWriteUpdate,
		"w+b": ModeWriteUpdate,
		"a":   ModeAppend,
		"ab":  ModeAppend,
		"a+":  ModeAppendUpdate,
		"ab+": ModeAppendUpdate,
	}

	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", in, err)

			continue
		}

		if got != want {
			t.Errorf("ParseMode(%q)=%v, want=%v", in, got, want)
		}
	}
}

func Test_ParseMode_Fails_When_String_Is_Invalid(t *testing.T) {
	for _, in := range []string{"", "x", "R", "+", "r++x", "rw", "w-", " r", "a+c"} {
		_, err := ParseMode(in)

		if !errors.Is(err, ErrInvalidMode) {
			t.Errorf("ParseMode(%q): err=%v, want ErrInvalidMode", in, err)
		}
	}
}

func Test_Mode_Permissions_Match_Open_Flags(t *testing.T) {
	type row struct {
		Mode     string
		CanRead  bool
		CanWrite bool
		Appends  bool
		Flags    string
	}

	modes := []Mode{ModeRead, ModeReadUpdate, ModeWrite, ModeWriteUpdate, ModeAppend, ModeAppendUpdate}

	got := make([]row, 0, len(modes))
	for _, m := range modes {
		got = append(got, row{
			Mode:     m.String(),
			CanRead:  m.CanRead(),
			CanWrite: m.CanWrite(),
			Appends:  m.Appends(),
			Flags:    describeFlags(m.Flags()),
		})
	}

	want := []row{
		{"r", true, false, false, "O_RDONLY"},
		{"r+", true, true, false, "O_RDWR"},
		{"w", false, true, false, "O_WRONLY|O_CREATE|O_TRUNC"},
		{"w+", true, true, false, "O_RDWR|O_CREATE|O_TRUNC"},
		{"a", false, true, true, "O_WRONLY|O_CREATE|O_APPEND"},
		{"a+", true, true, true, "O_RDWR|O_CREATE|O_APPEND"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mode table mismatch (-want +got):\n%s", diff)
	}
}

func Test_Mode_String_Reports_Unknown_Value(t *testing.T) {
	if got, want := Mode(0).String(), "Mode(0)"; got != want {
		t.Fatalf("String=%q, want=%q", got, want)
	}

	if got, want := Mode(0).Flags(), os.O_RDONLY; got != want {
		t.Fatalf("Flags=%d, want=%d", got, want)
	}
}
