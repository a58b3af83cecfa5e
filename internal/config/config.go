// Package config loads oxref.yaml, the per-project settings of the
// cross-reference generator.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the source directory when no explicit path is
// given.
const FileName = "oxref.yaml"

// DefaultSuffixes are the source file suffixes scanned by default.
var DefaultSuffixes = []string{".Mod.txt", ".Mod"}

// Config holds the project settings. Zero fields take the defaults applied
// by Parse.
type Config struct {
	// Suffixes selects source files; the module name is the file name
	// without the suffix.
	Suffixes []string `yaml:"suffixes,omitempty"`

	// Output is the HTML output directory, relative to the config file.
	Output string `yaml:"output,omitempty"`

	// ContextWindow is the number of tokens shown on each side of a
	// resolution error.
	ContextWindow int `yaml:"context_window,omitempty"`

	// Disassemble interleaves the listing of a sibling <Module>.rsc file.
	Disassemble *bool `yaml:"disassemble,omitempty"`

	// Ignore holds extra gitignore-style patterns, applied after the
	// .oxrefignore file.
	Ignore []string `yaml:"ignore,omitempty"`

	// Strict turns consistency warnings into failures.
	Strict bool `yaml:"strict,omitempty"`

	// Index, when set, is where build writes the JSON index cache.
	Index string `yaml:"index,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Discover loads dir/oxref.yaml, or returns the defaults when the file does
// not exist. The boolean reports whether a file was found.
func Discover(dir string) (*Config, bool, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.resolvePaths(dir)
		return cfg, false, nil
	}
	cfg, err := Load(path)
	return cfg, err == nil, err
}

// Parse decodes config content. The path is used only for error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) validate(path string) error {
	for i, s := range c.Suffixes {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s: suffixes[%d]: empty suffix", path, i)
		}
		if strings.ContainsAny(s, `/\`) {
			return fmt.Errorf("%s: suffixes[%d]: %q contains a path separator", path, i, s)
		}
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("%s: context_window must not be negative, got %d", path, c.ContextWindow)
	}
	return nil
}

func (c *Config) setDefaults() {
	if len(c.Suffixes) == 0 {
		c.Suffixes = append([]string(nil), DefaultSuffixes...)
	}
	if c.Output == "" {
		c.Output = "html"
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 25
	}
	if c.Disassemble == nil {
		on := true
		c.Disassemble = &on
	}
}

func (c *Config) resolvePaths(base string) {
	if !filepath.IsAbs(c.Output) {
		c.Output = filepath.Join(base, c.Output)
	}
	if c.Index != "" && !filepath.IsAbs(c.Index) {
		c.Index = filepath.Join(base, c.Index)
	}
}

// ModuleName returns the module name encoded in a source file name and
// whether the name carries one of the configured suffixes. The longest
// matching suffix wins, so "A.Mod.txt" yields "A" with both defaults.
func (c *Config) ModuleName(fileName string) (string, bool) {
	best := ""
	for _, s := range c.Suffixes {
		if strings.HasSuffix(fileName, s) && len(s) > len(best) {
			best = s
		}
	}
	if best == "" || len(fileName) == len(best) {
		return "", false
	}
	return strings.TrimSuffix(fileName, best), true
}

// ShouldDisassemble reports whether paired object files are decoded.
func (c *Config) ShouldDisassemble() bool {
	return c.Disassemble == nil || *c.Disassemble
}
