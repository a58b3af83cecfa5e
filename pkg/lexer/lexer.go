// Package lexer splits Oberon source text into a lossless token stream.
//
// Every byte of the input ends up in exactly one token, including comments,
// whitespace and line breaks, so the renderer can reproduce the source while
// the resolver works on the significant subset.
package lexer

import (
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/token"
)

var single = map[byte]token.Kind{
	'#': token.Neq,
	'&': token.And,
	')': token.RParen,
	'*': token.Times,
	'+': token.Plus,
	',': token.Comma,
	'-': token.Minus,
	'/': token.RDiv,
	';': token.Semicolon,
	'=': token.Eql,
	'[': token.LBrak,
	']': token.RBrak,
	'^': token.Arrow,
	'{': token.LBrace,
	'}': token.RBrace,
	'|': token.Bar,
	'~': token.Not,
	'.': token.Period,
	':': token.Colon,
	'>': token.Gtr,
	'<': token.Lss,
}

var double = map[string]token.Kind{
	"..": token.Upto,
	":=": token.Becomes,
	">=": token.Geq,
	"<=": token.Leq,
}

type scanner struct {
	src    string
	pos    int
	line   int
	col    int
	tokens []token.Token
}

// Scan tokenizes src. The concatenated Text of the result equals src.
func Scan(src string) ([]token.Token, error) {
	s := &scanner{src: src, line: 1, col: 1}
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.tokens, nil
}

// Significant returns the indices of the tokens the resolver consumes.
func Significant(tokens []token.Token) []int {
	out := make([]int, 0, len(tokens)/2)
	for i, tok := range tokens {
		if tok.Significant() {
			out = append(out, i)
		}
	}
	return out
}

// Select returns the tokens at the given indices.
func Select(tokens []token.Token, indices []int) []token.Token {
	out := make([]token.Token, len(indices))
	for i, idx := range indices {
		out[i] = tokens[idx]
	}
	return out
}

// Verify checks that tokens reproduce src byte for byte.
func Verify(src string, tokens []token.Token) error {
	var b strings.Builder
	b.Grow(len(src))
	for _, tok := range tokens {
		b.WriteString(tok.Text)
	}
	if b.String() != src {
		return diag.Errorf(diag.ErrInvariant, -1, "token stream does not reproduce the source")
	}
	return nil
}

// HasRawStrings reports whether the stream contains $-delimited strings.
// Object files of such modules carry string tables the disassembler cannot
// decode.
func HasRawStrings(tokens []token.Token) bool {
	for _, tok := range tokens {
		if tok.Kind == token.Const && strings.HasPrefix(tok.Text, "$") {
			return true
		}
	}
	return false
}

// Trim strips leading and trailing control characters and blanks.
func Trim(src string) string {
	return strings.TrimFunc(src, func(r rune) bool { return r <= ' ' })
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) emit(kind token.Kind, start int) {
	text := s.src[start:s.pos]
	s.tokens = append(s.tokens, token.Token{
		Kind:   kind,
		Text:   text,
		Offset: start,
		Line:   s.line,
		Column: s.col,
	})
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return diag.Errorf(diag.ErrLexical, -1, "line %d, column %d: "+format, append([]any{s.line, s.col}, args...)...)
}

func (s *scanner) run() error {
	for s.pos < len(s.src) {
		start := s.pos
		ch := s.src[s.pos]
		switch {
		case ch == '\n':
			s.pos++
			s.emit(token.LineBreak, start)
		case ch <= ' ':
			s.pos++
			s.emit(token.Whitespace, start)
		case isDigit(ch):
			if err := s.number(); err != nil {
				return err
			}
		case isLetter(ch):
			s.identifier()
		case ch == '"' || ch == '$':
			end := strings.IndexByte(s.src[s.pos+1:], ch)
			if end < 0 {
				return s.errorf("unterminated string")
			}
			s.pos += end + 2
			s.emit(token.Const, start)
		case ch == '(' && s.peek(1) == '*':
			if err := s.comment(); err != nil {
				return err
			}
		case ch == '(':
			s.pos++
			s.emit(token.LParen, start)
		default:
			kind, ok := single[ch]
			if !ok {
				return s.errorf("invalid character %q", ch)
			}
			if s.pos+2 <= len(s.src) {
				if dk, ok := double[s.src[s.pos:s.pos+2]]; ok {
					s.pos += 2
					s.emit(dk, start)
					continue
				}
			}
			s.pos++
			s.emit(kind, start)
		}
	}
	return nil
}

func (s *scanner) identifier() {
	start := s.pos
	for s.pos < len(s.src) && (isLetter(s.src[s.pos]) || isDigit(s.src[s.pos])) {
		s.pos++
	}
	s.emit(token.Lookup(s.src[start:s.pos]), start)
}

func (s *scanner) number() error {
	start := s.pos
	for isDigit(s.peek(0)) || isHexLetter(s.peek(0)) {
		s.pos++
	}
	switch ch := s.peek(0); {
	case ch == 'H' || ch == 'R' || ch == 'X':
		s.pos++
	case ch == '.' && s.peek(1) != '.':
		s.pos++
		for isDigit(s.peek(0)) {
			s.pos++
		}
		if e := s.peek(0); e == 'E' || e == 'D' {
			s.pos++
			if sign := s.peek(0); sign == '+' || sign == '-' {
				s.pos++
			}
			if !isDigit(s.peek(0)) {
				return s.errorf("digit expected in exponent")
			}
			for isDigit(s.peek(0)) {
				s.pos++
			}
		}
	}
	s.emit(token.Const, start)
	return nil
}

// comment consumes a possibly nested comment and emits one comment token per
// line with line-break tokens in between.
func (s *scanner) comment() error {
	start := s.pos
	depth := 0
	for {
		if s.pos >= len(s.src) {
			return s.errorf("unterminated comment")
		}
		switch {
		case s.src[s.pos] == '(' && s.peek(1) == '*':
			depth++
			s.pos += 2
		case s.src[s.pos] == '*' && s.peek(1) == ')':
			depth--
			s.pos += 2
		default:
			s.pos++
		}
		if depth == 0 {
			break
		}
	}
	end := s.pos
	segment := start
	for i := start; i < end; i++ {
		if s.src[i] != '\n' {
			continue
		}
		if i > segment {
			s.pos = i
			s.emit(token.Comment, segment)
		}
		s.pos = i + 1
		s.emit(token.LineBreak, i)
		segment = i + 1
	}
	s.pos = end
	s.emit(token.Comment, segment)
	return nil
}

func isDigit(ch byte) bool     { return ch >= '0' && ch <= '9' }
func isHexLetter(ch byte) bool { return ch >= 'A' && ch <= 'F' }
func isLetter(ch byte) bool    { return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' }
