package scope

import (
	"errors"
	"reflect"
	"testing"

	"oberon-xref/pkg/diag"
)

func TestNewArena(t *testing.T) {
	a := NewArena()
	if a.Len() != 0 {
		t.Fatalf("NewArena: expected no scopes, got %d", a.Len())
	}
	root := a.New(None, "#", None)
	if root == None {
		t.Fatal("New returned the zero handle")
	}
	if a.Len() != 1 {
		t.Fatalf("expected 1 scope, got %d", a.Len())
	}
	child := a.New(root, "T.", root)
	if a.Prefix(child) != "#T." {
		t.Fatalf("expected prefix #T., got %q", a.Prefix(child))
	}
	if a.Parent(child) != root {
		t.Fatal("child.Parent should be root")
	}
}

func TestBind_DuplicateAndShadowing(t *testing.T) {
	a := NewArena()
	root := a.New(None, "#", None)
	if err := a.Bind(root, "x", Variable, None); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	err := a.Bind(root, "x", Constant, None)
	if !errors.Is(err, diag.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	inner := a.New(root, "P.", root)
	if err := a.Bind(inner, "x", Constant, None); err != nil {
		t.Fatalf("shadowing in a nested scope must succeed, got %v", err)
	}
	kind, err := a.KindOf(inner, "x")
	if err != nil || kind != Constant {
		t.Fatalf("expected inner x to be a constant, got %v (%v)", kind, err)
	}
	l, err := a.LinkOf(inner, "x")
	if err != nil || l != "#P.x" {
		t.Fatalf("expected link #P.x, got %q (%v)", l, err)
	}
	l, err = a.LinkOf(root, "x")
	if err != nil || l != "#x" {
		t.Fatalf("expected link #x, got %q (%v)", l, err)
	}
}

func TestLookup_WalksParentsNotPublicMirror(t *testing.T) {
	a := NewArena()
	builtins := a.New(None, "BUILTINS.html#", None)
	record := a.New(None, "BUILTINS.html#INTEGER.", None)
	if err := a.Bind(builtins, "INTEGER", Type, record); err != nil {
		t.Fatal(err)
	}

	root := a.New(builtins, "#", None)
	pub := a.New(None, "M.html#", None)
	a.SetPublic(root, pub)
	if err := a.Bind(pub, "hidden", Variable, None); err != nil {
		t.Fatal(err)
	}

	target, err := a.Target(root, "INTEGER")
	if err != nil || target != record {
		t.Fatalf("expected INTEGER to resolve through the parent chain, got %v (%v)", target, err)
	}
	l, _ := a.LinkOf(root, "INTEGER")
	if l != "BUILTINS.html#INTEGER" {
		t.Fatalf("unexpected link %q", l)
	}
	if _, err := a.Lookup(root, "hidden"); !errors.Is(err, diag.ErrUnknownIdentifier) {
		t.Fatalf("lookup must not consult the public mirror, got %v", err)
	}
	if a.Defined(root, "missing") {
		t.Fatal("Defined reported an unknown name")
	}
}

func TestPointerBase_ForwardReference(t *testing.T) {
	a := NewArena()
	since := a.Len()
	root := a.New(None, "#", None)

	pointer := a.PointerBase(root, "Node")
	first := a.PointerBase(root, "Node")
	if got := a.Pending(root); !reflect.DeepEqual(got, []string{"Node"}) {
		t.Fatalf("expected pending Node, got %v", got)
	}
	if unresolved := a.Unresolved(since); len(unresolved) != 1 || unresolved[0] != "#Node" {
		t.Fatalf("unexpected unresolved list %v", unresolved)
	}

	record := a.New(None, "Node.", root)
	if err := a.Bind(record, "next", Variable, pointer); err != nil {
		t.Fatal(err)
	}
	if err := a.Bind(root, "Node", Type, record); err != nil {
		t.Fatal(err)
	}

	if len(a.Pending(root)) != 0 || len(a.Unresolved(since)) != 0 {
		t.Fatal("binding the record must clear the forward reference")
	}
	for _, p := range []Handle{pointer, first} {
		base, err := a.Target(p, Deref)
		if err != nil || base != record {
			t.Fatalf("pointer base should be the record scope, got %v (%v)", base, err)
		}
		l, err := a.LinkOf(p, "next")
		if err != nil || l != "#Node.next" {
			t.Fatalf("field lookup through pointer gave %q (%v)", l, err)
		}
	}
}

func TestPointerBase_AlreadyDeclared(t *testing.T) {
	a := NewArena()
	root := a.New(None, "#", None)
	record := a.New(None, "R.", root)
	if err := a.Bind(root, "R", Type, record); err != nil {
		t.Fatal(err)
	}
	pointer := a.PointerBase(root, "R")
	if len(a.Pending(root)) != 0 {
		t.Fatal("no forward reference expected for a declared base")
	}
	if a.Parent(pointer) != record {
		t.Fatal("pointer scope should chain to the record scope")
	}
}

func TestLinkOf_RejectsPlaceholder(t *testing.T) {
	a := NewArena()
	root := a.New(None, "#", None)
	anon := a.New(None, "@@", root)
	if err := a.Bind(anon, "f", Variable, None); err != nil {
		t.Fatal(err)
	}
	if _, err := a.LinkOf(anon, "f"); !errors.Is(err, diag.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestNames_SkipsStructuralBindings(t *testing.T) {
	a := NewArena()
	rec := a.New(None, "#R.", None)
	_ = a.Bind(rec, Self, Variable, rec)
	_ = a.Bind(rec, "b", Variable, None)
	_ = a.Bind(rec, "a", Variable, None)
	if got := a.Names(rec); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if b, ok := a.Local(rec, Self); !ok || b.Target != rec {
		t.Fatal("structural binding missing")
	}
}

func TestOpaque_CompletesHiddenBase(t *testing.T) {
	a := NewArena()
	since := a.Len()
	pub := a.New(None, "M.html#", None)
	pointer := a.PointerBase(pub, "Desc")
	a.Opaque(pub, "Desc")
	if len(a.Unresolved(since)) != 0 {
		t.Fatal("Opaque should clear the forward reference")
	}
	if base, _ := a.Target(pointer, Deref); base != None {
		t.Fatalf("expected no base scope, got %v", base)
	}
}
