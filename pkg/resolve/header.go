package resolve

import (
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/token"
)

// Header reads the module name and the IMPORT list from the significant
// tokens of a module without resolving anything. It is lenient: a malformed
// import list simply ends the scan, leaving Resolve to report the error.
func Header(tokens []token.Token) (string, []Import, error) {
	at := func(i int) token.Token {
		if i < len(tokens) {
			return tokens[i]
		}
		return token.Token{Kind: token.Illegal}
	}

	i := 0
	for at(i).Is(token.Module, token.Times) {
		i++
	}
	if at(i).Kind != token.Ident {
		return "", nil, diag.Errorf(diag.ErrSyntax, i, "module name expected")
	}
	name := at(i).Text
	i++
	if at(i).Kind == token.Semicolon {
		i++
	}
	if at(i).Kind != token.Import {
		return name, nil, nil
	}
	i++

	var imports []Import
	for at(i).Kind == token.Ident {
		imp := Import{Alias: at(i).Text, Module: at(i).Text}
		i++
		if at(i).Kind == token.Becomes {
			i++
			if at(i).Kind != token.Ident {
				break
			}
			imp.Module = at(i).Text
			i++
		}
		imports = append(imports, imp)
		if at(i).Kind == token.Comma {
			i++
		}
	}
	return name, imports, nil
}
