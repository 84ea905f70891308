package sourcemap_test

import (
	"os"
	"path/filepath"
	"testing"

	"candor/internal/sourcemap"
)

func TestLookupFindsPairAtOrBeforeOffset(t *testing.T) {
	m := sourcemap.NewMap("main")
	m.Push(0, 10)
	m.Push(8, 20)
	m.Push(20, 30)

	cases := []struct {
		code uint32
		want uint32
	}{
		{0, 10},
		{5, 10},
		{8, 20},
		{19, 20},
		{20, 30},
		{100, 30},
	}
	for _, c := range cases {
		got, ok := m.Lookup(c.code)
		if !ok {
			t.Fatalf("Lookup(%d): expected a match", c.code)
		}
		if got != c.want {
			t.Errorf("Lookup(%d) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestLookupBeforeFirstPairFails(t *testing.T) {
	m := sourcemap.NewMap("main")
	m.Push(10, 1)
	if _, ok := m.Lookup(5); ok {
		t.Fatal("expected no match before the first recorded offset")
	}
}

func TestPushOutOfOrderStillSortsCorrectly(t *testing.T) {
	m := sourcemap.NewMap("main")
	m.Push(20, 3)
	m.Push(5, 1)
	m.Push(12, 2)

	got, ok := m.Lookup(15)
	if !ok || got != 2 {
		t.Fatalf("Lookup(15) = (%d, %v), want (2, true)", got, ok)
	}
}

func TestDecodeFrameUnknownFunctionFallsBackToOffset(t *testing.T) {
	s := sourcemap.NewSet()
	f := s.DecodeFrame("nope", 42, func(uint32) int { return 99 })
	if f.Function != "nope" || f.Offset != 42 || f.Line != 0 {
		t.Fatalf("unexpected fallback frame: %+v", f)
	}
}

func TestDecodeFrameResolvesLine(t *testing.T) {
	s := sourcemap.NewSet()
	m := s.MapFor("fib")
	m.Push(0, 100)
	m.Push(16, 140)

	f := s.DecodeFrame("fib", 16, func(astOffset uint32) int {
		if astOffset == 140 {
			return 7
		}
		return -1
	})
	if f.Line != 7 || f.Function != "fib" {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestSaveCandorcRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.candor.candorc")

	s := sourcemap.NewSet()
	fib := s.MapFor("fib")
	fib.Push(0, 5)
	fib.Push(4, 9)
	main := s.MapFor("main")
	main.Push(0, 1)

	if err := sourcemap.SaveCandorc(path, s); err != nil {
		t.Fatalf("SaveCandorc: %v", err)
	}

	got, err := sourcemap.LoadCandorc(path)
	if err != nil {
		t.Fatalf("LoadCandorc: %v", err)
	}
	if got == nil {
		t.Fatal("LoadCandorc returned nil Set for an existing file")
	}
	if len(got.Maps) != 2 {
		t.Fatalf("expected 2 maps, got %d", len(got.Maps))
	}
	offset, ok := got.Maps["fib"].Lookup(4)
	if !ok || offset != 9 {
		t.Fatalf("fib lookup(4) = (%d, %v), want (9, true)", offset, ok)
	}
}

func TestLoadCandorcMissingFileIsNotAnError(t *testing.T) {
	s, err := sourcemap.LoadCandorc(filepath.Join(t.TempDir(), "absent.candorc"))
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if s != nil {
		t.Fatal("expected a nil Set for a missing file")
	}
}

func TestSaveCandorcLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.candorc")
	if err := sourcemap.SaveCandorc(path, sourcemap.NewSet()); err != nil {
		t.Fatalf("SaveCandorc: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "x.candorc" {
		t.Fatalf("expected exactly one file named x.candorc, got %v", entries)
	}
}
