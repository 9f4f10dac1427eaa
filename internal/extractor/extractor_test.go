package extractor

import (
	"os"
	"testing"
)

func TestNewCreatesScopedDirectory(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Release()

	info, err := os.Stat(e.dir)
	if err != nil {
		t.Fatalf("stat temp dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("mode = %v, want 0700", info.Mode().Perm())
	}
}

func TestTwoInstancesGetDistinctDirectories(t *testing.T) {
	e1, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e1.Release()

	e2, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e2.Release()

	if e1.dir == e2.dir {
		t.Errorf("expected distinct temp dirs, both got %q", e1.dir)
	}
}

func TestReleaseRemovesDirectory(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := e.dir
	e.Release()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected directory removed, stat err = %v", err)
	}
}

func TestPathOfUnknownProbeFails(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Release()

	if _, err := e.PathOf("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown probe name")
	}
}

func TestReleaseIsSafeOnNil(t *testing.T) {
	var e *Extractor
	e.Release() // must not panic
}
