package resolve

import (
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/link"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// field is an identifier of a declaration list with the position of its
// export marker, or -1.
type field struct {
	pos  int
	mark int
}

func anyExported(fields []field) bool {
	for _, f := range fields {
		if f.mark >= 0 {
			return true
		}
	}
	return false
}

// typ resolves a type in a declaration. prefix names the declaration so that
// anonymous record fields get stable anchors; exported asks for a public
// mirror of the resulting type scope.
func (r *resolver) typ(prefix string, exported bool) (scope.Handle, error) {
	switch r.kind() {
	case token.Ident:
		t, err := r.qualident()
		if err != nil {
			return scope.None, err
		}
		if t.kind != scope.Type {
			return scope.None, r.errorf(diag.ErrSyntax, "%s is not a type", r.toks[r.pos-1].Text)
		}
		if exported && r.arena.Public(t.scope) == scope.None {
			return scope.None, r.errorf(diag.ErrSyntax, "exporting an alias of the unexported type %s", r.toks[r.pos-1].Text)
		}
		return t.scope, nil
	case token.Array:
		return r.arrayType(prefix, exported)
	case token.Record:
		return r.recordType(prefix, exported)
	case token.Pointer:
		return r.pointerType(prefix, exported)
	case token.Procedure:
		r.next()
		old := r.cur
		r.cur = r.arena.New(old, prefix+".", old)
		r.signature++
		err := r.procedureType()
		r.signature--
		r.cur = old
		if err != nil {
			return scope.None, err
		}
		result := r.arena.New(scope.None, prefix+"()", r.cur)
		r.mustBind(result, scope.Result, r.arena.New(scope.None, prefix+"()()", r.cur))
		if exported {
			pub := r.arena.New(scope.None, link.Placeholder, r.cur)
			r.mustBind(pub, scope.Result, r.arena.New(scope.None, link.Placeholder, r.cur))
			r.arena.SetPublic(result, pub)
		}
		return result, nil
	default:
		return scope.None, r.errorf(diag.ErrSyntax, "type expected, found %s", r.found())
	}
}

// mustBind binds a structural name in a scope that was created just before,
// where a duplicate cannot occur.
func (r *resolver) mustBind(h scope.Handle, name string, target scope.Handle) {
	if err := r.arena.Bind(h, name, scope.Variable, target); err != nil {
		panic(err)
	}
}

func (r *resolver) arrayType(prefix string, exported bool) (scope.Handle, error) {
	r.next()
	dims := 1
	if err := r.expression(); err != nil {
		return scope.None, err
	}
	for r.kind() == token.Comma {
		r.next()
		if err := r.expression(); err != nil {
			return scope.None, err
		}
		dims++
	}
	if err := r.expect(token.Of); err != nil {
		return scope.None, err
	}
	elem, err := r.typ(prefix+".ARRAY", false)
	if err != nil {
		return scope.None, err
	}

	// ARRAY m, n OF T is ARRAY m OF ARRAY n OF T.
	result := elem
	for ; dims > 0; dims-- {
		array := r.arena.New(scope.None, prefix, r.cur)
		r.mustBind(array, scope.Element, result)
		if exported {
			pub := r.arena.New(scope.None, link.Placeholder, r.cur)
			r.mustBind(pub, scope.Element, r.arena.Public(result))
			r.arena.SetPublic(array, pub)
		}
		result = array
	}
	return result, nil
}

func (r *resolver) recordType(prefix string, exported bool) (scope.Handle, error) {
	r.next()
	base := scope.None
	if r.kind() == token.LParen {
		r.next()
		if err := r.check(token.Ident); err != nil {
			return scope.None, err
		}
		t, err := r.qualident()
		if err != nil {
			return scope.None, err
		}
		if t.kind != scope.Type {
			return scope.None, r.errorf(diag.ErrSyntax, "base type expected")
		}
		base = t.scope
		if err := r.expect(token.RParen); err != nil {
			return scope.None, err
		}
	}

	record := r.arena.New(base, prefix+".", r.cur)
	r.mustBind(record, scope.Self, record)
	pub := scope.None
	if exported {
		pub = r.arena.New(r.arena.Public(base), prefix+".", r.arena.Public(r.cur))
		r.mustBind(pub, scope.Self, pub)
		r.arena.SetPublic(record, pub)
	}

	for r.kind() == token.Ident {
		var fields []field
		for r.kind() == token.Ident {
			f := field{pos: r.pos, mark: -1}
			r.next()
			if r.kind() == token.Times {
				if pub == scope.None {
					return scope.None, r.errorf(diag.ErrSyntax, "remove asterisk: field of an unexported record")
				}
				f.mark = r.pos
				r.next()
			}
			fields = append(fields, f)
			if r.kind() == token.Comma {
				r.next()
			} else if r.kind() != token.Colon {
				return scope.None, r.errorf(diag.ErrSyntax, ", or : expected, found %s", r.found())
			}
		}
		if err := r.expect(token.Colon); err != nil {
			return scope.None, err
		}
		fieldType, err := r.typ(prefix+"."+r.toks[fields[0].pos].Text, anyExported(fields))
		if err != nil {
			return scope.None, err
		}
		for _, f := range fields {
			name := r.toks[f.pos].Text
			if err := r.arena.Bind(record, name, scope.Variable, fieldType); err != nil {
				return scope.None, diag.At(err, f.pos)
			}
			def, err := r.define(record, f.pos, scope.Variable)
			if err != nil {
				return scope.None, err
			}
			if f.mark < 0 {
				continue
			}
			if err := r.arena.Bind(pub, name, scope.Variable, r.arena.Public(fieldType)); err != nil {
				return scope.None, diag.At(err, f.pos)
			}
			if err := r.exportMark(record, name, f.mark, def); err != nil {
				return scope.None, err
			}
		}
		if r.kind() == token.Semicolon {
			r.next()
		} else if r.kind() != token.End {
			return scope.None, r.errorf(diag.ErrSyntax, "; or END expected, found %s", r.found())
		}
	}
	if err := r.expect(token.End); err != nil {
		return scope.None, err
	}
	return record, nil
}

func (r *resolver) pointerType(prefix string, exported bool) (scope.Handle, error) {
	r.next()
	if err := r.expect(token.To); err != nil {
		return scope.None, err
	}

	var base scope.Handle
	switch {
	case r.kind() == token.Record:
		record, err := r.recordType(prefix, exported)
		if err != nil {
			return scope.None, err
		}
		base = record
	case r.kind() == token.Ident && !r.arena.Defined(r.cur, r.text()):
		return r.forwardPointer(exported)
	case r.kind() == token.Ident:
		t, err := r.qualident()
		if err != nil {
			return scope.None, err
		}
		if t.kind != scope.Type {
			return scope.None, r.errorf(diag.ErrSyntax, "%s is not a valid pointer base type", r.toks[r.pos-1].Text)
		}
		base = t.scope
		prefix = r.toks[r.pos-1].Text
	default:
		return scope.None, r.errorf(diag.ErrSyntax, "pointer base type expected, found %s", r.found())
	}

	pointer := r.arena.New(base, prefix+".", r.cur)
	r.mustBind(pointer, scope.Deref, base)
	if basePub := r.arena.Public(base); basePub != scope.None {
		pub := r.arena.New(basePub, prefix+".", r.arena.Public(r.cur))
		r.mustBind(pub, scope.Deref, basePub)
		r.arena.SetPublic(pointer, pub)
	}
	return pointer, nil
}

// forwardPointer handles POINTER TO name where name is not declared yet. The
// pointer scope is completed when the type name is bound later in the same
// scope.
func (r *resolver) forwardPointer(exported bool) (scope.Handle, error) {
	name := r.text()
	pointer := r.arena.PointerBase(r.cur, name)
	l, err := r.arena.LinkOf(pointer, scope.Deref)
	if err != nil {
		return scope.None, r.wrap(err)
	}
	if err := r.stamp(r.pos, link.Link(strings.TrimSuffix(l, "."+scope.Deref))); err != nil {
		return scope.None, err
	}
	if exported {
		pub := r.arena.Public(r.cur)
		if pub == scope.None {
			return scope.None, r.errorf(diag.ErrSyntax, "remove asterisk: %s cannot be exported here", name)
		}
		r.arena.SetPublic(pointer, r.arena.PointerBase(pub, name))
	}
	r.next()
	return pointer, nil
}

// identList reads "a, b*, c :" declaring identifiers with optional export
// markers.
func (r *resolver) identList() ([]field, error) {
	var fields []field
	for r.kind() == token.Ident {
		f := field{pos: r.pos, mark: -1}
		r.next()
		if r.kind() == token.Times {
			if r.arena.Public(r.cur) == scope.None {
				return nil, r.errorf(diag.ErrSyntax, "remove asterisk: %s cannot be exported here", r.toks[f.pos].Text)
			}
			f.mark = r.pos
			r.next()
		}
		fields = append(fields, f)
		if r.kind() == token.Comma {
			r.next()
		} else if r.kind() != token.Colon {
			return nil, r.errorf(diag.ErrSyntax, ", or : expected, found %s", r.found())
		}
	}
	if err := r.expect(token.Colon); err != nil {
		return nil, err
	}
	return fields, nil
}

// procedureType resolves an optional formal parameter list and result type,
// binding the parameters in the current scope.
func (r *resolver) procedureType() error {
	if r.kind() != token.LParen {
		return nil
	}
	r.next()
	if r.kind() == token.Var {
		r.next()
	}
	for r.kind() == token.Ident {
		params, err := r.identList()
		if err != nil {
			return err
		}
		paramType, err := r.formalType(r.toks[params[0].pos].Text)
		if err != nil {
			return err
		}
		for _, p := range params {
			if p.mark >= 0 {
				return diag.Errorf(diag.ErrSyntax, p.mark, "parameters cannot be exported")
			}
			if err := r.arena.Bind(r.cur, r.toks[p.pos].Text, scope.Variable, paramType); err != nil {
				return diag.At(err, p.pos)
			}
			if _, err := r.define(r.cur, p.pos, scope.Variable); err != nil {
				return err
			}
		}
		if r.kind() == token.RParen {
			break
		}
		if err := r.expect(token.Semicolon); err != nil {
			return err
		}
		if r.kind() == token.Var {
			r.next()
		}
	}
	if err := r.expect(token.RParen); err != nil {
		return err
	}
	if r.kind() == token.Colon {
		r.next()
		if err := r.check(token.Ident); err != nil {
			return err
		}
		t, err := r.qualident()
		if err != nil {
			return err
		}
		if t.kind != scope.Type {
			return r.errorf(diag.ErrSyntax, "result type expected")
		}
	}
	return nil
}

// formalType resolves the type of a formal parameter group named after its
// first parameter.
func (r *resolver) formalType(name string) (scope.Handle, error) {
	switch r.kind() {
	case token.Ident:
		t, err := r.qualident()
		if err != nil {
			return scope.None, err
		}
		if t.kind != scope.Type {
			return scope.None, r.errorf(diag.ErrSyntax, "%s is not a type", r.toks[r.pos-1].Text)
		}
		return t.scope, nil
	case token.Array:
		r.next()
		if err := r.expect(token.Of); err != nil {
			return scope.None, err
		}
		array := r.arena.New(scope.None, name, r.cur)
		elem, err := r.formalType(name + ".ARRAY")
		if err != nil {
			return scope.None, err
		}
		r.mustBind(array, scope.Element, elem)
		return array, nil
	case token.Procedure:
		r.next()
		old := r.cur
		r.cur = r.arena.New(old, name+".", old)
		r.signature++
		err := r.procedureType()
		r.signature--
		r.cur = old
		if err != nil {
			return scope.None, err
		}
		result := r.arena.New(scope.None, link.Placeholder, scope.None)
		r.mustBind(result, scope.Result, r.arena.New(scope.None, link.Placeholder, scope.None))
		return result, nil
	default:
		return scope.None, r.errorf(diag.ErrSyntax, "formal type expected, found %s", r.found())
	}
}
