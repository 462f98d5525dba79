package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_ParseAdvice_Round_Trips_When_Name_Is_Known(t *testing.T) {
	for _, a := range []Advice{AdviceNone, AdviceNormal, AdviceSequential, AdviceRandom} {
		got, err := ParseAdvice(a.String())
		if err != nil {
			t.Fatalf("ParseAdvice(%q): %v", a.String(), err)
		}

		if got != a {
			t.Fatalf("ParseAdvice(%q)=%v, want=%v", a.String(), got, a)
		}
	}

	if got, err := ParseAdvice(""); err != nil || got != AdviceNone {
		t.Fatalf("ParseAdvice(\"\")=(%v, %v), want none", got, err)
	}
}

func Test_ParseAdvice_Fails_When_Name_Is_Unknown(t *testing.T) {
	if _, err := ParseAdvice("willneed"); err == nil {
		t.Fatalf("ParseAdvice(willneed): want error")
	}
}

func Test_Advise_Succeeds_When_File_Is_Regular(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer f.Close()

	for _, a := range []Advice{AdviceNone, AdviceNormal, AdviceSequential, AdviceRandom} {
		if err := Advise(f, a); err != nil {
			t.Fatalf("Advise(%v): %v", a, err)
		}
	}
}
