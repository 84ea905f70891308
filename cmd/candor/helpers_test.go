package main

import (
	"os"
	"path/filepath"
	"testing"

	"candor/internal/candor"
	"candor/internal/config"
)

func TestValueOrUnknown(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"", "unknown"},
		{"deadbeef", "deadbeef"},
		{"  ", "  "},
	}
	for _, tc := range cases {
		if got := valueOrUnknown(tc.input); got != tc.want {
			t.Fatalf("valueOrUnknown(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDescribeValueNil(t *testing.T) {
	iso := candor.NewIsolate(config.Default(), nil)
	if got := describeValue(iso.Nil()); got != "nil" {
		t.Fatalf("describeValue(Nil()) = %q, want %q", got, "nil")
	}
}

func TestRunInitRefusesExistingMain(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.candor")
	if err := os.WriteFile(mainPath, []byte("fn main() { return 0; }\n"), 0o600); err != nil {
		t.Fatalf("seed main.candor: %v", err)
	}

	cmd := initCmd
	if err := runInit(cmd, []string{dir}); err == nil {
		t.Fatal("expected an error when main.candor already exists")
	}
}

func TestRunInitWritesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "fresh")

	if err := runInit(initCmd, []string{target}); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(target, "main.candor"))
	if err != nil {
		t.Fatalf("read generated main.candor: %v", err)
	}
	if string(content) != defaultMainCandor() {
		t.Fatalf("generated main.candor does not match defaultMainCandor()")
	}
}

func TestRunCleanRemovesCaches(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cachePath := filepath.Join(sub, "build.candorc")
	if err := os.WriteFile(cachePath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if err := runClean(cleanCmd, []string{dir}); err != nil {
		t.Fatalf("runClean: %v", err)
	}
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err = %v", cachePath, err)
	}
}
