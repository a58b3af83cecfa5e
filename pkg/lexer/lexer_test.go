package lexer

import (
	"errors"
	"strings"
	"testing"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/token"
)

const sample = `MODULE Sample; (* a (* nested *)
  comment *)
  IMPORT Out;
  CONST Max* = 0FFH; Pi = 3.14E+0; Ch = 41X;
  VAR s: ARRAY 10 OF CHAR; r: SET;
BEGIN
  s := "hi"; r := {1..5}; IF Max >= 2 THEN Out.Int(Max, 0) END
END Sample.`

func TestScan_RoundTrip(t *testing.T) {
	tokens, err := Scan(sample)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if err := Verify(sample, tokens); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestScan_Classification(t *testing.T) {
	tokens, err := Scan("x := {1..5} >= 0FFH; (* c *)")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	significant := Select(tokens, Significant(tokens))

	want := []token.Kind{
		token.Ident, token.Becomes, token.LBrace, token.Const, token.Upto, token.Const,
		token.RBrace, token.Geq, token.Const, token.Semicolon,
	}
	if len(significant) != len(want) {
		t.Fatalf("expected %d significant tokens, got %d: %+v", len(want), len(significant), significant)
	}
	for i, kind := range want {
		if significant[i].Kind != kind {
			t.Fatalf("token %d (%q): expected %v, got %v", i, significant[i].Text, kind, significant[i].Kind)
		}
	}
}

func TestScan_KeywordsAreCaseSensitive(t *testing.T) {
	tokens, err := Scan("BEGIN begin Begin")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	significant := Select(tokens, Significant(tokens))
	if significant[0].Kind != token.Begin {
		t.Fatalf("expected BEGIN keyword, got %v", significant[0].Kind)
	}
	for _, tok := range significant[1:] {
		if tok.Kind != token.Ident {
			t.Fatalf("expected %q to be an identifier, got %v", tok.Text, tok.Kind)
		}
	}
}

func TestScan_CommentSplitAtLineBreaks(t *testing.T) {
	src := "(* one\ntwo\nthree *)"
	tokens, err := Scan(src)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	kinds := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind.String())
	}
	got := strings.Join(kinds, ",")
	if got != "comment,linebreak,comment,linebreak,comment" {
		t.Fatalf("unexpected token kinds %s", got)
	}
	if tokens[4].Line != 3 || tokens[4].Column != 1 {
		t.Fatalf("expected last comment segment at 3:1, got %d:%d", tokens[4].Line, tokens[4].Column)
	}
}

func TestScan_RawStrings(t *testing.T) {
	tokens, err := Scan(`s := $41 42$`)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if !HasRawStrings(tokens) {
		t.Fatal("expected raw string to be detected")
	}
}

func TestScan_Errors(t *testing.T) {
	cases := []string{
		`s := "open`,
		"x := 1 ! 2",
		"(* never closed",
		"x := 1.0E+",
	}
	for _, src := range cases {
		_, err := Scan(src)
		if err == nil {
			t.Fatalf("expected lexical error for %q", src)
		}
		if !errors.Is(err, diag.ErrLexical) {
			t.Fatalf("expected ErrLexical for %q, got %v", src, err)
		}
	}
}

func TestTrim(t *testing.T) {
	if got := Trim("\n\t MODULE A; END A.\r\n"); got != "MODULE A; END A." {
		t.Fatalf("unexpected Trim result %q", got)
	}
}
