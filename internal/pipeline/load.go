// Package pipeline runs the whole cross-reference pipeline over a source
// directory: scanning, lexing, scheduling resolution and the consistency
// check.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"oberon-xref/internal/config"
	"oberon-xref/pkg/builtins"
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/ignore"
	"oberon-xref/pkg/lexer"
	"oberon-xref/pkg/resolve"
	"oberon-xref/pkg/rsc"
	"oberon-xref/pkg/token"
)

// Options selects the source directory and how it is processed.
type Options struct {
	Root   string
	Config *config.Config
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Options) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

// Source is one module read from disk (or a bootstrap module) and lexed.
type Source struct {
	Name      string
	Path      string
	Builtin   bool
	SizeBytes int64
	Text      string
	// Tokens is the full stream; Significant indexes the tokens the
	// resolver sees.
	Tokens      []token.Token
	Significant []int
	Imports     []resolve.Import
	Listing     *rsc.Listing

	lead int // bytes of whitespace trimmed from the start of the file
}

// Parsed returns the significant tokens.
func (s *Source) Parsed() []token.Token { return lexer.Select(s.Tokens, s.Significant) }

// Load scans opts.Root for module sources, lexes them and reads their
// headers. Files are visited in name order. A file whose name does not
// match the module it declares fails with diag.ErrNameMismatch.
func Load(ctx context.Context, opts Options) ([]*Source, error) {
	cfg := opts.config()
	logger := opts.logger()

	matcher, err := ignore.LoadDir(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("load ignore file: %w", err)
	}
	matcher.Add(cfg.Ignore...)

	entries, err := os.ReadDir(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("scan source directory: %w", err)
	}
	var sources []*Source
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		expected, ok := cfg.ModuleName(fileName)
		if !ok {
			continue
		}
		if matcher.Match(fileName, false) {
			logger.Debug("ignored source", slog.String("file", fileName))
			continue
		}
		path := filepath.Join(opts.Root, fileName)
		src, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if src.Name != expected {
			return nil, fmt.Errorf("%s: %w: file declares module %s", path, diag.ErrNameMismatch, src.Name)
		}
		if cfg.ShouldDisassemble() {
			attachListing(src, logger)
		}
		logger.Debug("scanned source",
			slog.String("module", src.Name),
			slog.Int("tokens", len(src.Tokens)),
			slog.Bool("listing", src.Listing != nil))
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

// Bootstrap lexes the embedded BUILTINS and SYSTEM modules.
func Bootstrap() ([]*Source, error) {
	var out []*Source
	for _, b := range builtins.Sources() {
		src, err := parse(b.Name, b.Text)
		if err != nil {
			return nil, fmt.Errorf("bootstrap %s: %w", b.Name, err)
		}
		src.Builtin = true
		out = append(out, src)
	}
	return out, nil
}

func loadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := charmap.ISO8859_1.NewDecoder().String(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", path, err)
	}
	src, err := parse(path, text)
	if err != nil {
		return nil, err
	}
	src.Path = path
	src.SizeBytes = int64(len(data))
	return src, nil
}

// parse trims, lexes and verifies text and reads the module header. label
// names the source in errors.
func parse(label, text string) (*Source, error) {
	lead := len(text) - len(strings.TrimLeftFunc(text, func(r rune) bool { return r <= ' ' }))
	text = lexer.Trim(text)
	toks, err := lexer.Scan(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	if err := lexer.Verify(text, toks); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	significant := lexer.Significant(toks)
	name, imports, err := resolve.Header(lexer.Select(toks, significant))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &Source{
		Name:        name,
		Text:        text,
		Tokens:      toks,
		Significant: significant,
		Imports:     imports,
		lead:        lead,
	}, nil
}

// attachListing decodes the object file next to src, if any. Positions are
// shifted to account for whitespace trimmed from the start of the file. A
// broken object file only costs the listing.
func attachListing(src *Source, logger *slog.Logger) {
	path := filepath.Join(filepath.Dir(src.Path), src.Name+".rsc")
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no object file", slog.String("module", src.Name))
		return
	}
	listing, err := rsc.ReadFile(path, !lexer.HasRawStrings(src.Tokens))
	if err != nil {
		logger.Warn("skipping object file", slog.String("module", src.Name), slog.Any("error", err))
		return
	}
	for i, pos := range listing.Positions {
		listing.Positions[i] = max(pos-src.lead, 0)
	}
	src.Listing = listing
}
