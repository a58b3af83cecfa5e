package schedule

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"oberon-xref/pkg/builtins"
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/lexer"
	"oberon-xref/pkg/resolve"
)

func unit(t *testing.T, src string) Unit {
	t.Helper()
	all, err := lexer.Scan(src)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	toks := lexer.Select(all, lexer.Significant(all))
	name, imports, err := resolve.Header(toks)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	u := Unit{Name: name, Tokens: toks}
	for _, imp := range imports {
		u.Imports = append(u.Imports, imp.Module)
	}
	return u
}

func bootstrapped(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s := New(opts...)
	var units []Unit
	for _, src := range builtins.Sources() {
		units = append(units, unit(t, src.Text))
	}
	if err := s.Bootstrap(units...); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	return s
}

func userOrder(s *Scheduler) []string {
	var out []string
	for _, name := range s.Order() {
		if !builtins.IsBuiltin(name) {
			out = append(out, name)
		}
	}
	return out
}

func TestBootstrap(t *testing.T) {
	s := bootstrapped(t)
	if got := s.Order(); !reflect.DeepEqual(got, []string{"BUILTINS", "SYSTEM"}) {
		t.Fatalf("unexpected bootstrap order %v", got)
	}
	if _, ok := s.Published().Scope("SYSTEM"); !ok {
		t.Fatal("SYSTEM not published")
	}
}

func TestRun_DependencyOrder(t *testing.T) {
	a := `MODULE A; IMPORT B; VAR x: INTEGER; BEGIN x := B.y END A.`
	b := `MODULE B; IMPORT C; VAR y*: INTEGER; BEGIN y := C.z END B.`
	c := `MODULE C; VAR z*: INTEGER; END C.`

	for _, order := range [][]string{{a, b, c}, {c, b, a}, {b, a, c}} {
		s := bootstrapped(t)
		var units []Unit
		for _, src := range order {
			units = append(units, unit(t, src))
		}
		if err := s.Run(units); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if got := userOrder(s); !reflect.DeepEqual(got, []string{"C", "B", "A"}) {
			t.Fatalf("expected C, B, A, got %v", got)
		}
		if res, ok := s.Result("A"); !ok || res.Module != "A" {
			t.Fatal("result for A missing")
		}
	}
}

func TestRun_CycleIsUnsatisfiable(t *testing.T) {
	s := bootstrapped(t)
	err := s.Run([]Unit{
		unit(t, `MODULE A; IMPORT B; END A.`),
		unit(t, `MODULE B; IMPORT A; END B.`),
	})
	if !errors.Is(err, diag.ErrUnsatisfiableImports) {
		t.Fatalf("expected ErrUnsatisfiableImports, got %v", err)
	}
	var unsat *UnsatisfiableError
	if !errors.As(err, &unsat) {
		t.Fatalf("expected *UnsatisfiableError, got %T", err)
	}
	want := []Blocked{
		{Module: "A", BlockedOn: "B", Missing: []string{"B"}},
		{Module: "B", BlockedOn: "A", Missing: []string{"A"}},
	}
	if !reflect.DeepEqual(unsat.Blocked, want) {
		t.Fatalf("unexpected blocked list %+v", unsat.Blocked)
	}
	if len(userOrder(s)) != 0 {
		t.Fatalf("nothing should resolve, got %v", userOrder(s))
	}
}

func TestRun_MissingImportsReportedInFull(t *testing.T) {
	s := bootstrapped(t)
	err := s.Run([]Unit{
		unit(t, `MODULE A; IMPORT Gone, Lost, B; END A.`),
		unit(t, `MODULE B; END B.`),
	})
	var unsat *UnsatisfiableError
	if !errors.As(err, &unsat) {
		t.Fatalf("expected *UnsatisfiableError, got %v", err)
	}
	if len(unsat.Blocked) != 1 {
		t.Fatalf("expected one blocked module, got %+v", unsat.Blocked)
	}
	got := unsat.Blocked[0]
	if got.Module != "A" || !reflect.DeepEqual(got.Missing, []string{"Gone", "Lost"}) {
		t.Fatalf("unexpected blocked entry %+v", got)
	}
	if !strings.Contains(err.Error(), "Gone, Lost") {
		t.Fatalf("message should list every missing import: %s", err)
	}
}

func TestRun_ModuleErrorContext(t *testing.T) {
	s := bootstrapped(t, WithContextWindow(3))
	err := s.Run([]Unit{unit(t, `MODULE Bad; VAR a, b, c: INTEGER; BEGIN a := b + missing * c END Bad.`)})
	if !errors.Is(err, diag.ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
	var me *ModuleError
	if !errors.As(err, &me) {
		t.Fatalf("expected *ModuleError, got %T", err)
	}
	if me.Module != "Bad" {
		t.Fatalf("unexpected module %q", me.Module)
	}
	if !reflect.DeepEqual(me.Before, []string{":=", "b", "+"}) {
		t.Fatalf("unexpected tokens before %v", me.Before)
	}
	if !reflect.DeepEqual(me.After, []string{"missing", "*", "c"}) {
		t.Fatalf("unexpected tokens after %v", me.After)
	}
}

func TestRun_DuplicateModule(t *testing.T) {
	s := bootstrapped(t)
	err := s.Run([]Unit{
		unit(t, `MODULE A; END A.`),
		unit(t, `MODULE A; END A.`),
	})
	if !errors.Is(err, diag.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	err = s.Run([]Unit{unit(t, `MODULE SYSTEM; END SYSTEM.`)})
	if !errors.Is(err, diag.ErrDuplicateName) {
		t.Fatalf("redefining SYSTEM should fail, got %v", err)
	}
}

func TestRun_NameMismatch(t *testing.T) {
	s := bootstrapped(t)
	u := unit(t, `MODULE A; END A.`)
	u.Name = "Other"
	err := s.Run([]Unit{u})
	if !errors.Is(err, diag.ErrNameMismatch) {
		t.Fatalf("expected ErrNameMismatch, got %v", err)
	}
}
