package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil, "empty.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Suffixes, DefaultSuffixes) {
		t.Errorf("Suffixes = %v", cfg.Suffixes)
	}
	if cfg.Output != "html" || cfg.ContextWindow != 25 || !cfg.ShouldDisassemble() || cfg.Strict {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFull(t *testing.T) {
	data := []byte(`
suffixes: [".Mod.txt"]
output: site
context_window: 10
disassemble: false
ignore:
  - "Test*.Mod.txt"
strict: true
index: cache/index.json
`)
	cfg, err := Parse(data, "oxref.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := &Config{
		Suffixes:      []string{".Mod.txt"},
		Output:        "site",
		ContextWindow: 10,
		Ignore:        []string{"Test*.Mod.txt"},
		Strict:        true,
		Index:         "cache/index.json",
	}
	off := false
	want.Disassemble = &off
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Parse = %+v, want %+v", cfg, want)
	}
	if cfg.ShouldDisassemble() {
		t.Error("disassemble: false was not honoured")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "outptu: site\n",
		"empty suffix":    "suffixes: [\"\"]\n",
		"separator":       "suffixes: [\"src/.Mod\"]\n",
		"negative window": "context_window: -1\n",
		"bad yaml":        "suffixes: [\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data), "oxref.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "oxref.yaml") {
				t.Fatalf("error %q does not name the file", err)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	cfg, found, err := Discover(dir)
	if err != nil || found {
		t.Fatalf("Discover without file = found %v, err %v", found, err)
	}
	if cfg.Output != filepath.Join(dir, "html") {
		t.Errorf("Output = %q", cfg.Output)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("output: out\nindex: idx.json\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, found, err = Discover(dir)
	if err != nil || !found {
		t.Fatalf("Discover = found %v, err %v", found, err)
	}
	if cfg.Output != filepath.Join(dir, "out") || cfg.Index != filepath.Join(dir, "idx.json") {
		t.Errorf("paths not resolved against the config directory: %+v", cfg)
	}
}

func TestModuleName(t *testing.T) {
	cfg := Default()
	cases := []struct {
		file string
		name string
		ok   bool
	}{
		{"Kernel.Mod.txt", "Kernel", true},
		{"Kernel.Mod", "Kernel", true},
		{"Kernel.rsc", "", false},
		{".Mod", "", false},
	}
	for _, tc := range cases {
		name, ok := cfg.ModuleName(tc.file)
		if name != tc.name || ok != tc.ok {
			t.Errorf("ModuleName(%q) = %q, %v; want %q, %v", tc.file, name, ok, tc.name, tc.ok)
		}
	}
}
