// Package token defines the lexical units of Oberon source text shared by the
// lexer, the resolver and the renderer.
package token

// Category is the coarse classification of a token used for filtering and
// display.
type Category int

const (
	CategoryKeyword Category = iota
	CategoryOperator
	CategoryIdentifier
	CategoryConstant
	CategoryComment
	CategoryWhitespace
	CategoryLineBreak
)

var categoryNames = [...]string{
	CategoryKeyword:    "keyword",
	CategoryOperator:   "operator",
	CategoryIdentifier: "identifier",
	CategoryConstant:   "constant",
	CategoryComment:    "comment",
	CategoryWhitespace: "whitespace",
	CategoryLineBreak:  "linebreak",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Significant reports whether tokens of this category take part in parsing.
func (c Category) Significant() bool {
	return c != CategoryComment && c != CategoryWhitespace && c != CategoryLineBreak
}

// Kind is the fine-grained token type.
type Kind int

const (
	Illegal Kind = iota

	Const
	Ident

	// operators
	And
	Arrow
	Bar
	Becomes
	Colon
	Comma
	Eql
	Geq
	Gtr
	LBrace
	LBrak
	Leq
	LParen
	Lss
	Minus
	Neq
	Not
	Period
	Plus
	RBrace
	RBrak
	RDiv
	RParen
	Semicolon
	Times
	Upto

	// keywords
	keywordBegin
	Array
	Begin
	By
	Case
	ConstKw
	Div
	Do
	Else
	Elsif
	End
	False
	For
	If
	Import
	In
	Is
	Mod
	Module
	Nil
	Of
	Or
	Pointer
	Procedure
	Record
	Repeat
	Return
	Then
	To
	True
	Type
	Until
	Var
	While
	keywordEnd

	Comment
	Whitespace
	LineBreak
)

var kindNames = map[Kind]string{
	Illegal:    "ILLEGAL",
	Const:      "constant",
	Ident:      "identifier",
	And:        "&",
	Arrow:      "^",
	Bar:        "|",
	Becomes:    ":=",
	Colon:      ":",
	Comma:      ",",
	Eql:        "=",
	Geq:        ">=",
	Gtr:        ">",
	LBrace:     "{",
	LBrak:      "[",
	Leq:        "<=",
	LParen:     "(",
	Lss:        "<",
	Minus:      "-",
	Neq:        "#",
	Not:        "~",
	Period:     ".",
	Plus:       "+",
	RBrace:     "}",
	RBrak:      "]",
	RDiv:       "/",
	RParen:     ")",
	Semicolon:  ";",
	Times:      "*",
	Upto:       "..",
	Array:      "ARRAY",
	Begin:      "BEGIN",
	By:         "BY",
	Case:       "CASE",
	ConstKw:    "CONST",
	Div:        "DIV",
	Do:         "DO",
	Else:       "ELSE",
	Elsif:      "ELSIF",
	End:        "END",
	False:      "FALSE",
	For:        "FOR",
	If:         "IF",
	Import:     "IMPORT",
	In:         "IN",
	Is:         "IS",
	Mod:        "MOD",
	Module:     "MODULE",
	Nil:        "NIL",
	Of:         "OF",
	Or:         "OR",
	Pointer:    "POINTER",
	Procedure:  "PROCEDURE",
	Record:     "RECORD",
	Repeat:     "REPEAT",
	Return:     "RETURN",
	Then:       "THEN",
	To:         "TO",
	True:       "TRUE",
	Type:       "TYPE",
	Until:      "UNTIL",
	Var:        "VAR",
	While:      "WHILE",
	Comment:    "comment",
	Whitespace: "whitespace",
	LineBreak:  "linebreak",
}

var keywords map[string]Kind

func init() {
	keywords = make(map[string]Kind, int(keywordEnd-keywordBegin))
	for k := keywordBegin + 1; k < keywordEnd; k++ {
		keywords[kindNames[k]] = k
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "ILLEGAL"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool { return k > keywordBegin && k < keywordEnd }

// Category maps k to its coarse category.
func (k Kind) Category() Category {
	switch {
	case k == Const:
		return CategoryConstant
	case k == Ident:
		return CategoryIdentifier
	case k.IsKeyword():
		return CategoryKeyword
	case k == Comment:
		return CategoryComment
	case k == Whitespace:
		return CategoryWhitespace
	case k == LineBreak:
		return CategoryLineBreak
	default:
		return CategoryOperator
	}
}

// Lookup maps an identifier-shaped word to its keyword kind, or Ident.
func Lookup(word string) Kind {
	if k, ok := keywords[word]; ok {
		return k
	}
	return Ident
}

// Token is one slice of the source text. Offset is the byte offset of the
// first byte; Line and Column are 1-based.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
	Line   int
	Column int
}

// Is reports whether the token has one of the given kinds.
func (t Token) Is(kinds ...Kind) bool {
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}

// Significant reports whether the token takes part in parsing.
func (t Token) Significant() bool { return t.Kind.Category().Significant() }
