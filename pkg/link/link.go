// Package link models the hyperlink targets stamped onto identifier tokens.
//
// A link is kept in its rendered string form:
//
//	=name                     definition anchor
//	#name                     reference to an anchor in the same module
//	Module.html#name          reference to another module's export
//	Module-usage.html#name    export marker, anchors the usage index
//	Module.html               reference to a whole module (aliased import)
package link

import (
	"strings"

	"oberon-xref/pkg/diag"
)

// Placeholder marks link prefixes of anonymous scopes that cannot be named
// from outside their module.
const Placeholder = "@@"

const (
	pageSuffix  = ".html"
	usageSuffix = "-usage.html"
)

// Kind classifies a link.
type Kind int

const (
	None Kind = iota
	Definition
	Local
	External
	Export
	ModulePage
)

func (k Kind) String() string {
	switch k {
	case Definition:
		return "definition"
	case Local:
		return "local"
	case External:
		return "external"
	case Export:
		return "export"
	case ModulePage:
		return "module"
	default:
		return "none"
	}
}

// Link is a rendered link target. The zero value means "no link".
type Link string

// Def returns the definition anchor for a scope-qualified name.
func Def(name string) Link { return Link("=" + strings.TrimPrefix(name, "#")) }

// Page returns the page a module is rendered to.
func Page(module string) string { return module + pageSuffix }

// UsagePage returns the page listing the external uses of a module's exports.
func UsagePage(module string) string { return module + usageSuffix }

// PublicPrefix is the link prefix of a module's public scope.
func PublicPrefix(module string) string { return Page(module) + "#" }

// ToModule links to the page of a module.
func ToModule(module string) Link { return Link(Page(module)) }

// ExportOf converts a cross-module reference into the matching export anchor.
func ExportOf(ref string) Link {
	return Link(strings.Replace(ref, pageSuffix+"#", usageSuffix+"#", 1))
}

// Kind classifies l.
func (l Link) Kind() Kind {
	s := string(l)
	switch {
	case s == "":
		return None
	case s[0] == '=':
		return Definition
	case s[0] == '#':
		return Local
	case strings.Contains(s, usageSuffix+"#"):
		return Export
	case strings.Contains(s, pageSuffix+"#"):
		return External
	default:
		return ModulePage
	}
}

// Anchor returns the anchor part after '=' or '#'.
func (l Link) Anchor() string {
	s := string(l)
	if s == "" {
		return ""
	}
	if s[0] == '=' || s[0] == '#' {
		return s[1:]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// Module returns the module a cross-module, export or module link points to.
func (l Link) Module() string {
	s := string(l)
	switch l.Kind() {
	case Export:
		return s[:strings.Index(s, usageSuffix+"#")]
	case External:
		return s[:strings.Index(s, pageSuffix+"#")]
	case ModulePage:
		return strings.TrimSuffix(s, pageSuffix)
	}
	return ""
}

// Reference converts an export anchor into the cross-module reference form
// other modules use for the same declaration.
func (l Link) Reference() string {
	return strings.Replace(string(l), usageSuffix+"#", pageSuffix+"#", 1)
}

// Valid reports whether l is free of construction placeholders.
func (l Link) Valid() bool { return !strings.Contains(string(l), Placeholder) }

func (l Link) String() string { return string(l) }

// Table holds one optional link per significant token. Each slot can be
// written once.
type Table struct {
	links []Link
}

// NewTable returns an empty table of n slots.
func NewTable(n int) *Table { return &Table{links: make([]Link, n)} }

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.links) }

// Set stores l at index i.
func (t *Table) Set(i int, l Link) error {
	if i < 0 || i >= len(t.links) {
		return diag.Errorf(diag.ErrInvariant, i, "link index %d out of range", i)
	}
	if t.links[i] != "" {
		return diag.Errorf(diag.ErrInvariant, i, "link already set to %q, cannot set %q", t.links[i], l)
	}
	if !l.Valid() {
		return diag.Errorf(diag.ErrInvariant, i, "unresolved placeholder in link %q", l)
	}
	t.links[i] = l
	return nil
}

// At returns the link at index i or the zero Link.
func (t *Table) At(i int) Link {
	if t == nil || i < 0 || i >= len(t.links) {
		return ""
	}
	return t.links[i]
}

// Links returns a copy of all slots.
func (t *Table) Links() []Link {
	out := make([]Link, len(t.links))
	copy(out, t.links)
	return out
}
