package arbor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Indent != "  " {
		t.Errorf("Indent = %q, want two spaces", cfg.Indent)
	}
	if cfg.DenyUnknown || cfg.Pretty || cfg.PreserveWhitespace {
		t.Error("boolean options should default to false")
	}
	if cfg.Lenient != nil {
		t.Error("Lenient should default to nil")
	}
}

func TestOptions(t *testing.T) {
	cfg := NewConfig(
		WithDenyUnknown(true),
		WithLenient(false),
		WithMaxDepth(8),
		WithPreserveWhitespace(true),
		WithIndent("\t"),
	)

	if !cfg.DenyUnknown {
		t.Error("DenyUnknown not applied")
	}
	if cfg.Lenient == nil || *cfg.Lenient {
		t.Error("Lenient should be set to false")
	}
	if cfg.MaxDepth != 8 {
		t.Errorf("MaxDepth = %d, want 8", cfg.MaxDepth)
	}
	if !cfg.PreserveWhitespace {
		t.Error("PreserveWhitespace not applied")
	}
	if cfg.Indent != "\t" || !cfg.Pretty {
		t.Error("WithIndent should set the indent and enable pretty output")
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("deny_unknown: true\nlenient: true\npretty: true\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	if !cfg.DenyUnknown || !cfg.Pretty {
		t.Error("parsed flags not applied")
	}
	if cfg.Lenient == nil || !*cfg.Lenient {
		t.Error("lenient should be parsed as true")
	}
	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want default %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Indent != "  " {
		t.Errorf("Indent = %q, want default", cfg.Indent)
	}
}

func TestParseConfig_NonPositiveDepth(t *testing.T) {
	cfg, err := ParseConfig([]byte("max_depth: -3\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	if _, err := ParseConfig([]byte("max_depth: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	if err := os.WriteFile(path, []byte("max_depth: 16\nindent: \"    \"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.MaxDepth != 16 {
		t.Errorf("MaxDepth = %d, want 16", cfg.MaxDepth)
	}
	if cfg.Indent != "    " {
		t.Errorf("Indent = %q, want four spaces", cfg.Indent)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
