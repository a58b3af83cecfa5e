// Package resolve walks the significant tokens of one Oberon module,
// building its scopes and stamping a link on every identifier.
//
// Resolution is single pass and fail-fast: the first structural violation
// aborts the module with a *diag.Error positioned at the offending token.
package resolve

import (
	"fmt"
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/link"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// BuiltinModule is the module whose public scope encloses every module root.
const BuiltinModule = "BUILTINS"

// Published gives read access to the public scopes of modules resolved so
// far.
type Published interface {
	Scope(module string) (scope.Handle, bool)
}

// Scopes is a Published backed by a map.
type Scopes map[string]scope.Handle

func (s Scopes) Scope(module string) (scope.Handle, bool) {
	h, ok := s[module]
	return h, ok
}

// Import is one entry of an IMPORT list.
type Import struct {
	Alias  string
	Module string
}

// Definition records a definition anchor stamped during resolution.
type Definition struct {
	Anchor    string
	Kind      scope.Kind
	Pos       int
	Exported  bool
	Signature bool // parameter of a procedure type, never referenced
}

// Export is one entry of a module's public surface.
type Export struct {
	Name string
	Kind scope.Kind
	Link link.Link
}

// Result is the outcome of resolving one module.
type Result struct {
	Module      string
	Root        scope.Handle
	Public      scope.Handle
	Imports     []Import
	Links       *link.Table
	Definitions []Definition
	Exports     []Export
}

type resolver struct {
	arena     *scope.Arena
	published Published
	toks      []token.Token
	pos       int
	links     *link.Table
	cur       scope.Handle
	defs      []Definition
	imports   []Import
	signature int
}

// Resolve resolves the significant tokens of one module against the public
// scopes published so far. Scopes are allocated in arena and stay valid after
// Resolve returns.
func Resolve(arena *scope.Arena, published Published, tokens []token.Token) (*Result, error) {
	since := arena.Len()
	builtins, _ := published.Scope(BuiltinModule)
	r := &resolver{
		arena:     arena,
		published: published,
		toks:      tokens,
		links:     link.NewTable(len(tokens)),
		cur:       arena.New(builtins, "#", scope.None),
	}
	name, err := r.module()
	if err != nil {
		return nil, err
	}
	if pending := arena.Unresolved(since); len(pending) > 0 {
		return nil, diag.Errorf(diag.ErrInvariant, r.pos, "unresolved forward references: %s", strings.Join(pending, ", "))
	}

	res := &Result{
		Module:      name,
		Root:        r.cur,
		Public:      arena.Public(r.cur),
		Imports:     r.imports,
		Links:       r.links,
		Definitions: r.defs,
	}
	for _, export := range arena.Names(res.Public) {
		b, _ := arena.Local(res.Public, export)
		l, err := arena.LinkOf(res.Public, export)
		if err != nil {
			return nil, diag.At(err, r.pos)
		}
		res.Exports = append(res.Exports, Export{Name: export, Kind: b.Kind, Link: link.Link(l)})
	}
	return res, nil
}

func (r *resolver) tok() token.Token {
	if r.pos < len(r.toks) {
		return r.toks[r.pos]
	}
	return token.Token{Kind: token.Illegal}
}

func (r *resolver) kind() token.Kind { return r.tok().Kind }
func (r *resolver) text() string     { return r.tok().Text }
func (r *resolver) next()            { r.pos++ }

func (r *resolver) errorf(kind error, format string, args ...any) error {
	return diag.Errorf(kind, r.pos, format, args...)
}

func (r *resolver) wrap(err error) error { return diag.At(err, r.pos) }

func (r *resolver) found() string {
	if r.pos >= len(r.toks) {
		return "end of module"
	}
	return fmt.Sprintf("%q", r.text())
}

// check fails unless the current token has kind k.
func (r *resolver) check(k token.Kind) error {
	if r.kind() != k {
		return r.errorf(diag.ErrSyntax, "%s expected, found %s", k, r.found())
	}
	return nil
}

// expect checks for k and consumes it.
func (r *resolver) expect(k token.Kind) error {
	if err := r.check(k); err != nil {
		return err
	}
	r.next()
	return nil
}

func (r *resolver) stamp(i int, l link.Link) error {
	return r.links.Set(i, l)
}

// refer stamps the token at i with the link of its text as seen from h.
func (r *resolver) refer(h scope.Handle, i int) error {
	l, err := r.arena.LinkOf(h, r.toks[i].Text)
	if err != nil {
		return diag.At(err, i)
	}
	return r.stamp(i, link.Link(l))
}

// define stamps the token at i with a definition anchor and records it. It
// returns the index of the new Definition.
func (r *resolver) define(h scope.Handle, i int, kind scope.Kind) (int, error) {
	l, err := r.arena.LinkOf(h, r.toks[i].Text)
	if err != nil {
		return 0, diag.At(err, i)
	}
	def := link.Def(l)
	if err := r.stamp(i, def); err != nil {
		return 0, err
	}
	r.defs = append(r.defs, Definition{
		Anchor:    def.Anchor(),
		Kind:      kind,
		Pos:       i,
		Signature: r.signature > 0,
	})
	return len(r.defs) - 1, nil
}

// exportMark stamps the export marker at i with the usage anchor of name in
// the public mirror of h.
func (r *resolver) exportMark(h scope.Handle, name string, i, def int) error {
	l, err := r.arena.LinkOf(r.arena.Public(h), name)
	if err != nil {
		return diag.At(err, i)
	}
	r.defs[def].Exported = true
	return r.stamp(i, link.ExportOf(l))
}

func (r *resolver) module() (string, error) {
	if err := r.expect(token.Module); err != nil {
		return "", err
	}
	if r.kind() == token.Times {
		r.next()
	}
	if err := r.check(token.Ident); err != nil {
		return "", err
	}
	name := r.text()
	if err := r.stamp(r.pos, "=MODULE"); err != nil {
		return "", err
	}
	r.next()
	if err := r.expect(token.Semicolon); err != nil {
		return "", err
	}
	if r.kind() == token.Import {
		r.next()
		if err := r.importList(); err != nil {
			return "", err
		}
	}

	r.arena.SetPublic(r.cur, r.arena.New(scope.None, link.PublicPrefix(name), scope.None))
	if err := r.declarations(); err != nil {
		return "", err
	}
	for r.kind() == token.Procedure {
		if err := r.procedureDecl(); err != nil {
			return "", err
		}
		if err := r.expect(token.Semicolon); err != nil {
			return "", err
		}
	}
	if r.kind() == token.Begin {
		r.next()
		if err := r.statements(); err != nil {
			return "", err
		}
	}
	if err := r.expect(token.End); err != nil {
		return "", err
	}
	if err := r.check(token.Ident); err != nil {
		return "", err
	}
	if r.text() != name {
		return "", r.errorf(diag.ErrNameMismatch, "module %s closed by END %s", name, r.text())
	}
	if err := r.stamp(r.pos, "#MODULE"); err != nil {
		return "", err
	}
	r.next()
	if err := r.check(token.Period); err != nil {
		return "", err
	}
	return name, nil
}

func (r *resolver) importList() error {
	for r.kind() == token.Ident {
		aliasPos := r.pos
		alias := r.text()
		target := alias
		if err := r.stamp(r.pos, link.Def(alias)); err != nil {
			return err
		}
		r.next()
		if r.kind() == token.Becomes {
			r.next()
			if err := r.check(token.Ident); err != nil {
				return err
			}
			target = r.text()
			if err := r.stamp(r.pos, link.ToModule(target)); err != nil {
				return err
			}
			r.next()
		}
		pub, ok := r.published.Scope(target)
		if !ok {
			return r.errorf(diag.ErrUnknownIdentifier, "importing unknown module %s", target)
		}
		if err := r.arena.Bind(r.cur, alias, scope.Module, pub); err != nil {
			return diag.At(err, aliasPos)
		}
		r.defs = append(r.defs, Definition{Anchor: alias, Kind: scope.Module, Pos: aliasPos})
		r.imports = append(r.imports, Import{Alias: alias, Module: target})
		if r.kind() != token.Semicolon {
			if err := r.expect(token.Comma); err != nil {
				return err
			}
		}
	}
	return r.expect(token.Semicolon)
}
