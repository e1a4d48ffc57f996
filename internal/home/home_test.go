package home

import (
	"path/filepath"
	"testing"
)

func TestNew_DefaultPath(t *testing.T) {
	d, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if filepath.Base(d.Path()) != DefaultDirName {
		t.Errorf("default path should end in %s, got %s", DefaultDirName, d.Path())
	}
}

func TestDir_Layout(t *testing.T) {
	root := t.TempDir()
	d, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if d.ConfigPath() != filepath.Join(root, "config.yaml") {
		t.Errorf("ConfigPath = %s", d.ConfigPath())
	}
	if d.SourcePDFPath("abc") != filepath.Join(root, "sources", "abc.pdf") {
		t.Errorf("SourcePDFPath = %s", d.SourcePDFPath("abc"))
	}

	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !d.Exists() {
		t.Error("Exists should be true after EnsureExists")
	}
	if d.ConfigExists() {
		t.Error("ConfigExists should be false when no config written")
	}
}
