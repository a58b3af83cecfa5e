// Package scope provides the symbol tables used while resolving Oberon
// modules. Scopes live in an Arena and refer to each other by Handle, so a
// scope created for a forward pointer type can be patched in place once its
// base record is declared.
package scope

import (
	"fmt"
	"sort"
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/link"
)

// Kind classifies what a name is bound to.
type Kind int

const (
	Constant Kind = iota + 1
	Variable
	Type
	Module
	Procedure
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "constant"
	case Variable:
		return "variable"
	case Type:
		return "type"
	case Module:
		return "module"
	case Procedure:
		return "procedure"
	default:
		return "unknown"
	}
}

// Names bound by the resolver to describe structure rather than identifiers.
const (
	Self    = "."  // record scopes bind themselves
	Element = "[]" // array element type
	Deref   = "^"  // pointer base type
	Result  = "()" // procedure result
)

// Handle addresses a scope in an Arena. The zero Handle is "no scope".
type Handle int

// None is the absent scope.
const None Handle = 0

// Binding is what a name resolves to: its kind and, for typed names, the
// scope describing the members reachable through it.
type Binding struct {
	Kind   Kind
	Target Handle
}

type node struct {
	parent   Handle
	public   Handle
	prefix   string
	bindings map[string]Binding
	order    []string
	pending  map[string][]Handle
}

// Arena owns every scope created during a run. Scopes are never removed, so
// handles stay valid for the lifetime of the arena.
type Arena struct {
	nodes []node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{nodes: make([]node, 1, 256)}
}

// Len returns the number of scopes allocated so far. Handles created later
// compare greater than Handle(Len()).
func (a *Arena) Len() int { return len(a.nodes) - 1 }

// New creates a scope whose lookups fall back to parent. Its link prefix is
// the prefix of prefixFrom (if any) followed by prefix.
func (a *Arena) New(parent Handle, prefix string, prefixFrom Handle) Handle {
	if prefixFrom != None {
		prefix = a.nodes[prefixFrom].prefix + prefix
	}
	a.nodes = append(a.nodes, node{
		parent:   parent,
		prefix:   prefix,
		bindings: make(map[string]Binding),
	})
	return Handle(len(a.nodes) - 1)
}

func (a *Arena) get(h Handle) *node {
	if h <= None || int(h) >= len(a.nodes) {
		panic(fmt.Sprintf("scope: invalid handle %d", h))
	}
	return &a.nodes[h]
}

// Parent returns the lexical parent of h.
func (a *Arena) Parent(h Handle) Handle { return a.get(h).parent }

// Prefix returns the link prefix of h.
func (a *Arena) Prefix(h Handle) string { return a.get(h).prefix }

// Public returns the public mirror of h, or None.
func (a *Arena) Public(h Handle) Handle {
	if h == None {
		return None
	}
	return a.get(h).public
}

// SetPublic attaches pub as the public mirror of h.
func (a *Arena) SetPublic(h, pub Handle) { a.get(h).public = pub }

// Bind adds name to h. Binding a type name that a forward pointer is waiting
// for patches the pointer scope to target.
func (a *Arena) Bind(h Handle, name string, kind Kind, target Handle) error {
	n := a.get(h)
	if _, exists := n.bindings[name]; exists {
		return fmt.Errorf("%w: %s", diag.ErrDuplicateName, name)
	}
	n.bindings[name] = Binding{Kind: kind, Target: target}
	n.order = append(n.order, name)

	if kind == Type {
		if pointers, ok := n.pending[name]; ok {
			delete(n.pending, name)
			for _, pointer := range pointers {
				a.patchPointer(pointer, target)
			}
		}
	}
	return nil
}

func (a *Arena) patchPointer(pointer, base Handle) {
	p := a.get(pointer)
	p.parent = base
	p.bindings[Deref] = Binding{Kind: Variable, Target: base}
}

// PointerBase creates the scope of a "POINTER TO base" type declared in h.
// When base is not declared yet the scope is registered as a forward
// reference and completed by the Bind of base.
func (a *Arena) PointerBase(h Handle, base string) Handle {
	pointer := a.New(None, base+".", h)
	a.get(pointer).bindings[Deref] = Binding{Kind: Variable, Target: pointer}
	a.get(pointer).order = append(a.get(pointer).order, Deref)

	n := a.get(h)
	if b, ok := n.bindings[base]; ok {
		a.patchPointer(pointer, b.Target)
		return pointer
	}
	if n.pending == nil {
		n.pending = make(map[string][]Handle)
	}
	n.pending[base] = append(n.pending[base], pointer)
	return pointer
}

// Opaque completes the forward pointers in h waiting for name without a
// base scope. It is used for an exported pointer whose base record stays
// hidden, so the public mirror never learns the record's fields.
func (a *Arena) Opaque(h Handle, name string) {
	n := a.get(h)
	pointers, ok := n.pending[name]
	if !ok {
		return
	}
	delete(n.pending, name)
	for _, pointer := range pointers {
		a.patchPointer(pointer, None)
	}
}

// Pending returns the names of forward pointer bases still waiting in h.
func (a *Arena) Pending(h Handle) []string {
	n := a.get(h)
	out := make([]string, 0, len(n.pending))
	for name := range n.pending {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Unresolved lists every pending forward reference in scopes allocated after
// since, as "prefix+name" strings.
func (a *Arena) Unresolved(since int) []string {
	var out []string
	for h := since + 1; h < len(a.nodes); h++ {
		for _, name := range a.Pending(Handle(h)) {
			out = append(out, a.nodes[h].prefix+name)
		}
	}
	return out
}

// Local returns the binding of name in h without consulting parents.
func (a *Arena) Local(h Handle, name string) (Binding, bool) {
	b, ok := a.get(h).bindings[name]
	return b, ok
}

// Names returns the identifiers bound in h in declaration order, leaving out
// the structural names.
func (a *Arena) Names(h Handle) []string {
	n := a.get(h)
	out := make([]string, 0, len(n.order))
	for _, name := range n.order {
		if isStructural(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func isStructural(name string) bool {
	switch name {
	case Self, Element, Deref, Result:
		return true
	}
	return false
}

// LinkOf returns the link of name as seen from h. Links still carrying the
// placeholder of an anonymous scope are rejected.
func (a *Arena) LinkOf(h Handle, name string) (string, error) {
	owner, err := a.owner(h, name)
	if err != nil {
		return "", err
	}
	l := a.nodes[owner].prefix + name
	if strings.Contains(l, link.Placeholder) {
		return "", fmt.Errorf("%w: unresolved placeholder in link %q", diag.ErrInvariant, l)
	}
	return l, nil
}
