// Package ignore filters scanned source files with gitignore-style patterns
// taken from a .oxrefignore file and the configuration.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the per-directory ignore file.
const FileName = ".oxrefignore"

type pattern struct {
	negated  bool
	dirOnly  bool
	anchored bool
	glob     string
}

// Matcher evaluates slash-separated paths relative to the source root.
// Later patterns override earlier ones.
type Matcher struct {
	patterns []pattern
}

// LoadDir reads root/.oxrefignore. A missing file yields an empty matcher.
func LoadDir(root string) (*Matcher, error) {
	m := &Matcher{}
	f, err := os.Open(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	m.Add(lines...)
	return m, nil
}

// Add appends pattern lines. Blank lines and lines starting with '#' are
// skipped.
func (m *Matcher) Add(lines ...string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var p pattern
		if rest, ok := strings.CutPrefix(line, "!"); ok {
			p.negated = true
			line = rest
		}
		if rest, ok := strings.CutSuffix(line, "/"); ok {
			p.dirOnly = true
			line = rest
		}
		if rest, ok := strings.CutPrefix(line, "/"); ok {
			p.anchored = true
			line = rest
		}
		line = strings.TrimPrefix(line, "**/")
		p.anchored = p.anchored || strings.Contains(line, "/")
		p.glob = line
		m.patterns = append(m.patterns, p)
	}
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Match reports whether path is ignored. isDir tells whether path names a
// directory; directory-only patterns never match files.
func (m *Matcher) Match(path string, isDir bool) bool {
	if m.Len() == 0 {
		return false
	}
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.matches(path) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p pattern) matches(path string) bool {
	if p.anchored {
		ok, _ := filepath.Match(p.glob, path)
		return ok
	}
	for _, part := range strings.Split(path, "/") {
		if ok, _ := filepath.Match(p.glob, part); ok {
			return true
		}
	}
	return false
}
