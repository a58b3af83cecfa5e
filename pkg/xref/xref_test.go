package xref

import (
	"errors"
	"reflect"
	"testing"

	"oberon-xref/pkg/builtins"
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/lexer"
	"oberon-xref/pkg/link"
	"oberon-xref/pkg/resolve"
	"oberon-xref/pkg/schedule"
	"oberon-xref/pkg/token"
)

func program(t *testing.T, sources ...string) []Module {
	t.Helper()
	s := schedule.New()
	var boot, units []schedule.Unit
	for _, src := range builtins.Sources() {
		boot = append(boot, unitOf(t, src.Text))
	}
	for _, src := range sources {
		units = append(units, unitOf(t, src))
	}
	if err := s.Bootstrap(boot...); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if err := s.Run(units); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var modules []Module
	for _, u := range append(boot, units...) {
		res, _ := s.Result(u.Name)
		modules = append(modules, Module{
			Name:        u.Name,
			Builtin:     builtins.IsBuiltin(u.Name),
			Tokens:      u.Tokens,
			Links:       res.Links.Links(),
			Definitions: res.Definitions,
		})
	}
	return modules
}

func unitOf(t *testing.T, src string) schedule.Unit {
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
	u := schedule.Unit{Name: name, Tokens: toks}
	for _, imp := range imports {
		u.Imports = append(u.Imports, imp.Module)
	}
	return u
}

func TestCheck_TwoModules(t *testing.T) {
	modules := program(t,
		`MODULE M1;
  TYPE T* = RECORD x*: INTEGER END;
END M1.`,
		`MODULE M2;
  IMPORT M1;
  VAR v: M1.T;
BEGIN v.x := 1
END M2.`)

	report, err := Check(modules)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(report.Dangling) != 0 {
		t.Fatalf("expected no dangling links, got %v", report.Dangling)
	}
	sites := report.Usages["M1.html#T"]
	if len(sites) != 1 || sites[0] != (Site{Module: "M2", Line: 3, Column: 13}) {
		t.Fatalf("unexpected usages of M1.T: %+v", sites)
	}
	if got := report.Referrers("M1.html#T.x"); !reflect.DeepEqual(got, []string{"M2"}) {
		t.Fatalf("unexpected referrers %v", got)
	}
	if got := report.UsedExports("M2"); !reflect.DeepEqual(got, []string{"M1.html#T", "M1.html#T.x"}) {
		t.Fatalf("unexpected used exports %v", got)
	}
	usages := report.UsagesOf("M1")
	if len(usages) != 2 || len(usages["T"]) != 1 || len(usages["T.x"]) != 1 {
		t.Fatalf("unexpected usage page data %+v", usages)
	}
	if _, ok := report.Usages["BUILTINS.html#INTEGER"]; !ok {
		t.Fatal("export markers of BUILTINS must be indexed")
	}
}

func TestCheck_Violations(t *testing.T) {
	ident := token.Token{Kind: token.Ident, Text: "x", Line: 1, Column: 1}
	keyword := token.Token{Kind: token.Begin, Text: "BEGIN", Line: 1, Column: 1}
	star := token.Token{Kind: token.Times, Text: "*", Line: 1, Column: 2}

	tests := []struct {
		name    string
		modules []Module
	}{
		{"identifier without link", []Module{{Name: "A", Tokens: []token.Token{ident}, Links: []link.Link{""}}}},
		{"keyword with link", []Module{{Name: "A", Tokens: []token.Token{keyword}, Links: []link.Link{"#x"}}}},
		{"dangling local link", []Module{{Name: "A", Tokens: []token.Token{ident}, Links: []link.Link{"#x"}}}},
		{"reference without export", []Module{
			{Name: "A", Tokens: []token.Token{ident}, Links: []link.Link{"=x"}},
			{Name: "B", Tokens: []token.Token{ident}, Links: []link.Link{"A.html#x"}},
		}},
		{"export marker of another module", []Module{
			{Name: "A", Tokens: []token.Token{ident, star}, Links: []link.Link{"=x", "B-usage.html#x"}},
		}},
		{"unknown module link", []Module{{Name: "A", Tokens: []token.Token{ident}, Links: []link.Link{"Nowhere.html"}}}},
		{"length mismatch", []Module{{Name: "A", Tokens: []token.Token{ident}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(tt.modules)
			if !errors.Is(err, diag.ErrInvariant) {
				t.Fatalf("expected ErrInvariant, got %v", err)
			}
		})
	}
}

func TestCheck_DanglingExportIsWarning(t *testing.T) {
	ident := token.Token{Kind: token.Ident, Text: "x", Line: 1, Column: 1}
	star := token.Token{Kind: token.Times, Text: "*", Line: 1, Column: 2}
	report, err := Check([]Module{
		{Name: "A", Tokens: []token.Token{ident, star}, Links: []link.Link{"=y", "A-usage.html#x"}},
		{Name: "B", Tokens: []token.Token{ident}, Links: []link.Link{"A.html#x"}},
	})
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Dangling, []string{"A.html#x"}) {
		t.Fatalf("expected A.html#x to dangle, got %v", report.Dangling)
	}
}

func TestUnreferenced(t *testing.T) {
	modules := program(t,
		`MODULE Lib;
  TYPE Fn* = PROCEDURE (n: INTEGER);
  VAR used*, spare*: INTEGER; hidden: INTEGER;
  PROCEDURE Helper; END Helper;
END Lib.`,
		`MODULE App;
  IMPORT Lib, Unused := SYSTEM;
BEGIN Lib.used := 1
END App.`)

	report, err := Check(modules)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	var got []string
	for _, f := range Unreferenced(modules, report) {
		got = append(got, f.Reason+" "+f.Module+"."+f.Name)
	}
	want := []string{
		"unreferenced App.Unused",
		"unreferenced Lib.Helper",
		"unreferenced Lib.hidden",
		"unused_export Lib.Fn",
		"unused_export Lib.spare",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected findings\n got: %v\nwant: %v", got, want)
	}
}
