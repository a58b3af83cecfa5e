package resolve

import (
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// declarations resolves the CONST, TYPE and VAR sections of a module or
// procedure.
func (r *resolver) declarations() error {
	if r.kind() == token.ConstKw {
		r.next()
		for r.kind() == token.Ident {
			if err := r.constDecl(); err != nil {
				return err
			}
		}
	}
	if r.kind() == token.Type {
		r.next()
		for r.kind() == token.Ident {
			if err := r.typeDecl(); err != nil {
				return err
			}
		}
	}
	if r.kind() == token.Var {
		r.next()
		for r.kind() == token.Ident {
			if err := r.varDecl(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) constDecl() error {
	name := r.text()
	if err := r.arena.Bind(r.cur, name, scope.Constant, scope.None); err != nil {
		return r.wrap(err)
	}
	def, err := r.define(r.cur, r.pos, scope.Constant)
	if err != nil {
		return err
	}
	r.next()
	if err := r.checkExport(name, def); err != nil {
		return err
	}
	if err := r.expect(token.Eql); err != nil {
		return err
	}
	if err := r.expression(); err != nil {
		return err
	}
	return r.expect(token.Semicolon)
}

func (r *resolver) typeDecl() error {
	pos := r.pos
	name := r.text()
	r.next()
	mark := -1
	if r.kind() == token.Times {
		if r.arena.Public(r.cur) == scope.None {
			return r.errorf(diag.ErrSyntax, "remove asterisk: %s cannot be exported here", name)
		}
		mark = r.pos
		r.next()
	}
	if err := r.expect(token.Eql); err != nil {
		return err
	}
	typeScope, err := r.typ(name, mark >= 0)
	if err != nil {
		return err
	}
	if err := r.arena.Bind(r.cur, name, scope.Type, typeScope); err != nil {
		return diag.At(err, pos)
	}

	pub := r.arena.Public(r.cur)
	if mark >= 0 {
		typePub := r.arena.Public(typeScope)
		if typePub == scope.None {
			return diag.Errorf(diag.ErrInvariant, pos, "exported type %s has no public scope", name)
		}
		if err := r.arena.Bind(pub, name, scope.Type, typePub); err != nil {
			return diag.At(err, pos)
		}
		// Importers reach the type through typePub only, so variables of the
		// imported type must find it as their own public scope.
		r.arena.SetPublic(typePub, typePub)
	} else if pub != scope.None {
		r.arena.Opaque(pub, name)
	}

	def, err := r.define(r.cur, pos, scope.Type)
	if err != nil {
		return err
	}
	if mark >= 0 {
		if err := r.exportMark(r.cur, name, mark, def); err != nil {
			return err
		}
	}
	return r.expect(token.Semicolon)
}

func (r *resolver) varDecl() error {
	vars, err := r.identList()
	if err != nil {
		return err
	}
	typeScope, err := r.typ(r.toks[vars[0].pos].Text, anyExported(vars))
	if err != nil {
		return err
	}
	for _, v := range vars {
		name := r.toks[v.pos].Text
		if err := r.arena.Bind(r.cur, name, scope.Variable, typeScope); err != nil {
			return diag.At(err, v.pos)
		}
		def, err := r.define(r.cur, v.pos, scope.Variable)
		if err != nil {
			return err
		}
		if v.mark < 0 {
			continue
		}
		if err := r.arena.Bind(r.arena.Public(r.cur), name, scope.Variable, r.arena.Public(typeScope)); err != nil {
			return diag.At(err, v.pos)
		}
		if err := r.exportMark(r.cur, name, v.mark, def); err != nil {
			return err
		}
	}
	return r.expect(token.Semicolon)
}

// checkExport handles an optional export marker after a constant or
// procedure name.
func (r *resolver) checkExport(name string, def int) error {
	if r.kind() != token.Times {
		return nil
	}
	pub := r.arena.Public(r.cur)
	if pub == scope.None {
		return r.errorf(diag.ErrSyntax, "remove asterisk: %s cannot be exported here", name)
	}
	kind, err := r.arena.KindOf(r.cur, name)
	if err != nil {
		return r.wrap(err)
	}
	if err := r.arena.Bind(pub, name, kind, scope.None); err != nil {
		return r.wrap(err)
	}
	if err := r.exportMark(r.cur, name, r.pos, def); err != nil {
		return err
	}
	r.next()
	return nil
}

func (r *resolver) procedureDecl() error {
	r.next()
	if r.kind() == token.Times {
		// interrupt handler
		r.next()
	}
	if err := r.check(token.Ident); err != nil {
		return err
	}
	name := r.text()
	if err := r.arena.Bind(r.cur, name, scope.Procedure, scope.None); err != nil {
		return r.wrap(err)
	}
	def, err := r.define(r.cur, r.pos, scope.Procedure)
	if err != nil {
		return err
	}
	r.next()
	if err := r.checkExport(name, def); err != nil {
		return err
	}

	outer := r.cur
	r.cur = r.arena.New(outer, name+".", outer)
	if err := r.procedureBody(); err != nil {
		return err
	}
	r.cur = outer

	if err := r.expect(token.End); err != nil {
		return err
	}
	if err := r.check(token.Ident); err != nil {
		return err
	}
	if r.text() != name {
		return r.errorf(diag.ErrNameMismatch, "procedure %s closed by END %s", name, r.text())
	}
	if err := r.refer(r.cur, r.pos); err != nil {
		return err
	}
	r.next()
	return nil
}

// procedureBody resolves everything between the procedure name and the
// closing END in the procedure's own scope.
func (r *resolver) procedureBody() error {
	if err := r.procedureType(); err != nil {
		return err
	}
	if err := r.expect(token.Semicolon); err != nil {
		return err
	}
	if err := r.declarations(); err != nil {
		return err
	}
	for r.kind() == token.Procedure {
		if err := r.procedureDecl(); err != nil {
			return err
		}
		if err := r.expect(token.Semicolon); err != nil {
			return err
		}
	}
	if r.kind() == token.Begin {
		r.next()
		if err := r.statements(); err != nil {
			return err
		}
	}
	if r.kind() == token.Return {
		r.next()
		return r.expression()
	}
	return nil
}
