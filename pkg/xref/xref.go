// Package xref cross-checks the links of a resolved program and builds the
// reverse index from exported declarations to the modules that use them.
package xref

import (
	"fmt"
	"sort"
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/link"
	"oberon-xref/pkg/resolve"
	"oberon-xref/pkg/token"
)

// Module is the resolved form of one module as seen by the checker.
type Module struct {
	Name        string
	Builtin     bool
	Tokens      []token.Token // significant tokens
	Links       []link.Link   // parallel to Tokens
	Definitions []resolve.Definition
}

// Site is one use of an exported declaration.
type Site struct {
	Module string `json:"module"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Report is the outcome of a successful consistency check.
type Report struct {
	// Usages maps the cross-module reference of every export ("M.html#x")
	// to its external use sites. Exports nobody uses map to an empty list.
	Usages map[string][]Site `json:"usages"`
	// Dangling lists references that match an export marker but no
	// definition anchor.
	Dangling []string `json:"dangling,omitempty"`
	Links    int      `json:"links"`
}

// Check verifies the links of all modules:
//   - every identifier carries a link and only identifiers and export
//     markers do,
//   - every local reference names a definition anchor of its module,
//   - every cross-module reference matches an export marker and every export
//     marker appears in the reverse index,
//   - every module link names a module of the program.
func Check(modules []Module) (*Report, error) {
	anchors := map[string]bool{}
	exports := map[string]bool{}
	names := map[string]bool{}
	report := &Report{Usages: map[string][]Site{}}

	for _, m := range modules {
		names[m.Name] = true
	}

	for _, m := range modules {
		if len(m.Links) != len(m.Tokens) {
			return nil, fmt.Errorf("%w: %s: %d links for %d tokens", diag.ErrInvariant, m.Name, len(m.Links), len(m.Tokens))
		}
		page := link.Page(m.Name)
		usage := link.UsagePage(m.Name) + "#"
		var locals []int
		for i, tok := range m.Tokens {
			l := m.Links[i]
			switch {
			case tok.Kind == token.Ident && l == "":
				return nil, violation(m, i, "identifier %s has no link", tok.Text)
			case tok.Kind != token.Ident && tok.Kind != token.Times && l != "":
				return nil, violation(m, i, "%s token %q carries link %s", tok.Kind.Category(), tok.Text, l)
			case l == "":
				continue
			}
			report.Links++

			switch l.Kind() {
			case link.Definition:
				anchors[page+"#"+l.Anchor()] = true
			case link.Local:
				locals = append(locals, i)
			case link.Export:
				if !strings.HasPrefix(string(l), usage) {
					return nil, violation(m, i, "export marker %s outside its module", l)
				}
				ref := l.Reference()
				exports[ref] = true
				if _, ok := report.Usages[ref]; !ok {
					report.Usages[ref] = []Site{}
				}
			case link.External:
				ref := string(l)
				report.Usages[ref] = append(report.Usages[ref], Site{Module: m.Name, Line: tok.Line, Column: tok.Column})
			case link.ModulePage:
				if !names[l.Module()] {
					return nil, violation(m, i, "link to unknown module %s", l.Module())
				}
			}
		}
		for _, i := range locals {
			if !anchors[page+string(m.Links[i])] {
				return nil, violation(m, i, "dangling link %s", m.Links[i])
			}
		}
	}

	refs := make([]string, 0, len(report.Usages))
	for ref := range report.Usages {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if !exports[ref] {
			return nil, fmt.Errorf("%w: reference %s has no export marker", diag.ErrInvariant, ref)
		}
		if !anchors[ref] {
			report.Dangling = append(report.Dangling, ref)
		}
	}
	return report, nil
}

func violation(m Module, i int, format string, args ...any) error {
	tok := m.Tokens[i]
	return fmt.Errorf("%w: %s:%d:%d: %s", diag.ErrInvariant, m.Name, tok.Line, tok.Column, fmt.Sprintf(format, args...))
}

// Referrers returns the modules using the export ref, sorted and without
// duplicates.
func (r *Report) Referrers(ref string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, site := range r.Usages[ref] {
		if !seen[site.Module] {
			seen[site.Module] = true
			out = append(out, site.Module)
		}
	}
	sort.Strings(out)
	return out
}

// UsagesOf returns the use sites of the exports of module keyed by anchor
// ("T.x" for the field x of T).
func (r *Report) UsagesOf(module string) map[string][]Site {
	prefix := link.PublicPrefix(module)
	out := map[string][]Site{}
	for ref, sites := range r.Usages {
		if anchor, ok := strings.CutPrefix(ref, prefix); ok {
			out[anchor] = sites
		}
	}
	return out
}

// UsedExports returns the exports of other modules that module references,
// sorted.
func (r *Report) UsedExports(module string) []string {
	var out []string
	for ref, sites := range r.Usages {
		for _, site := range sites {
			if site.Module == module {
				out = append(out, ref)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
