package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.AssemblerDefaultOut != "a.mobj" {
		t.Fatalf("AssemblerDefaultOut = %q, want a.mobj", s.AssemblerDefaultOut)
	}
	if s.LinkerDefaultOut != "a.out" {
		t.Fatalf("LinkerDefaultOut = %q, want a.out", s.LinkerDefaultOut)
	}
	if !s.Color {
		t.Fatal("expected Color to default true")
	}
}

func TestLoadReadsProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	const yaml = "verbose: true\nassembler:\n  default_output: out.mobj\n"
	if err := os.WriteFile(filepath.Join(dir, ".mips32.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Verbose {
		t.Fatal("expected Verbose to be true from .mips32.yaml")
	}
	if s.AssemblerDefaultOut != "out.mobj" {
		t.Fatalf("AssemblerDefaultOut = %q, want out.mobj", s.AssemblerDefaultOut)
	}
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	return func() { os.Chdir(prev) }
}
