// Package render writes the static HTML cross-reference site.
package render

import (
	"bufio"
	"embed"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sort"

	"oberon-xref/pkg/builtins"
	"oberon-xref/pkg/link"
	"oberon-xref/pkg/rsc"
	"oberon-xref/pkg/token"
	"oberon-xref/pkg/xref"
)

//go:embed assets/style.css assets/script.js
var assets embed.FS

const title = "Oberon Xref"

// Page is everything needed to render one module.
type Page struct {
	Module  string
	Imports []string
	// Tokens is the full token stream, Links is parallel to it.
	Tokens []token.Token
	Links  []link.Link
	// Usages maps each export anchor to its external use sites.
	Usages  map[string][]xref.Site
	Listing *rsc.Listing
}

// Stats summarises a written site.
type Stats struct {
	Files int
	Bytes int64
}

// Write renders pages into dir. The site is assembled in a temporary sibling
// directory and moved into place only when every file was written, so a
// failed run leaves any previous output untouched.
func Write(dir string, pages []Page) (Stats, error) {
	dir = filepath.Clean(dir)
	parent, base := filepath.Split(dir)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create output parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return Stats{}, fmt.Errorf("create staging directory: %w", err)
	}
	stats, err := writeAll(tmp, pages)
	if err != nil {
		os.RemoveAll(tmp)
		return Stats{}, err
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		os.RemoveAll(tmp)
		return Stats{}, err
	}
	if err := replaceDir(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return Stats{}, err
	}
	return stats, nil
}

func replaceDir(tmp, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.Rename(tmp, dir)
	}
	old := tmp + ".old"
	if err := os.Rename(dir, old); err != nil {
		return fmt.Errorf("move previous output aside: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.Rename(old, dir)
		return fmt.Errorf("install output: %w", err)
	}
	return os.RemoveAll(old)
}

func writeAll(dir string, pages []Page) (Stats, error) {
	var stats Stats
	emit := func(name string, fn func(io.Writer) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		cw := &countingWriter{w: f}
		bw := bufio.NewWriter(cw)
		if err := fn(bw); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += cw.n
		return nil
	}

	for _, name := range []string{"style.css", "script.js"} {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return stats, err
		}
		if err := emit(name, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}); err != nil {
			return stats, err
		}
	}
	for _, p := range pages {
		if err := emit(link.Page(p.Module), func(w io.Writer) error { return WriteModule(w, p) }); err != nil {
			return stats, err
		}
		if err := emit(link.UsagePage(p.Module), func(w io.Writer) error { return WriteUsage(w, p) }); err != nil {
			return stats, err
		}
	}
	if err := emit("index.html", func(w io.Writer) error { return WriteIndex(w, pages) }); err != nil {
		return stats, err
	}
	return stats, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// errWriter remembers the first write error so page writers can emit
// without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}

func (e *errWriter) text(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func h(s string) string { return html.EscapeString(s) }

func header(w *errWriter, heading string, script bool) {
	w.text("<!DOCTYPE html>\n<html><head>\n<meta charset=\"UTF-8\">\n")
	if heading == title {
		w.printf("<title>%s</title>\n", title)
	} else {
		w.printf("<title>%s &ndash; %s</title>\n", h(heading), title)
	}
	w.text("<link rel=\"stylesheet\" href=\"style.css\">\n")
	if script {
		w.text("<script src=\"script.js\"></script>\n")
	}
	w.printf("</head><body><h1>%s</h1>\n", h(heading))
}

// WriteUsage writes the usage page of p: every export with the modules
// that use it.
func WriteUsage(w io.Writer, p Page) error {
	ew := &errWriter{w: w}
	header(ew, p.Module+" Usage", false)
	anchors := make([]string, 0, len(p.Usages))
	for anchor := range p.Usages {
		anchors = append(anchors, anchor)
	}
	sort.Strings(anchors)
	for _, anchor := range anchors {
		ew.printf("<h2><a name=\"%s\" href=\"%s#%s\">%s</a></h2>\n<ul>", h(anchor), h(link.Page(p.Module)), h(anchor), h(anchor))
		byModule := map[string][]int{}
		var modules []string
		for _, site := range p.Usages[anchor] {
			if _, ok := byModule[site.Module]; !ok {
				modules = append(modules, site.Module)
			}
			byModule[site.Module] = append(byModule[site.Module], site.Line)
		}
		sort.Strings(modules)
		if len(modules) == 0 {
			ew.text("<li class=\"unused\">not used by other modules</li>")
		}
		for _, m := range modules {
			page := h(link.Page(m))
			ew.printf("<li><a href=\"%s#X_%s_%s\">%s</a>", page, h(p.Module), h(anchor), h(m))
			lines := byModule[m]
			sort.Ints(lines)
			prev := 0
			for _, line := range lines {
				if line != prev {
					ew.printf(" <a class=\"line\" href=\"%s#L_%d\">%d</a>", page, line, line)
				}
				prev = line
			}
			ew.text("</li>")
		}
		ew.text("</ul>\n")
	}
	ew.text("</body></html>\n")
	return ew.err
}

// WriteIndex writes the entry page listing every non-builtin module and its
// imports.
func WriteIndex(w io.Writer, pages []Page) error {
	ew := &errWriter{w: w}
	header(ew, title, false)
	sorted := append([]Page(nil), pages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Module < sorted[j].Module })
	for _, p := range sorted {
		if builtins.IsBuiltin(p.Module) {
			continue
		}
		ew.printf("<p><b><a href=\"%s\">%s</a></b>", h(link.Page(p.Module)), h(p.Module))
		if len(p.Imports) > 0 {
			ew.text(" (Imports:")
			for _, imp := range p.Imports {
				ew.printf(" <a href=\"%s\">%s</a>", h(link.Page(imp)), h(imp))
			}
			ew.text(")")
		}
		ew.printf(" <a class=\"usage\" href=\"%s\">usage</a></p>\n", h(link.UsagePage(p.Module)))
	}
	ew.text("</body></html>\n")
	return ew.err
}
