package resolve

import (
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// statements resolves a statement sequence. Empty statements are allowed.
func (r *resolver) statements() error {
	for {
		var err error
		switch r.kind() {
		case token.Ident:
			err = r.simpleStatement()
		case token.If:
			err = r.ifStatement()
		case token.While:
			err = r.whileStatement()
		case token.Repeat:
			err = r.repeatStatement()
		case token.For:
			err = r.forStatement()
		case token.Case:
			err = r.caseStatement()
		}
		if err != nil {
			return err
		}
		if r.kind() != token.Semicolon {
			return nil
		}
		r.next()
	}
}

func (r *resolver) simpleStatement() error {
	start := r.pos
	t, err := r.designator()
	if err != nil {
		return err
	}
	if t.kind != scope.Variable && t.kind != scope.Procedure {
		return diag.Errorf(diag.ErrSyntax, start, "%s %s used where a variable or procedure was expected", t.kind, r.toks[start].Text)
	}
	switch r.kind() {
	case token.Becomes:
		r.next()
		return r.expression()
	case token.Eql:
		return r.errorf(diag.ErrSyntax, "assignment needs :=, found =")
	case token.LParen:
		return r.actualParameters()
	}
	return nil
}

func (r *resolver) ifStatement() error {
	r.next()
	if err := r.guardedSequence(token.Then); err != nil {
		return err
	}
	for r.kind() == token.Elsif {
		r.next()
		if err := r.guardedSequence(token.Then); err != nil {
			return err
		}
	}
	if r.kind() == token.Else {
		r.next()
		if err := r.statements(); err != nil {
			return err
		}
	}
	return r.expect(token.End)
}

func (r *resolver) whileStatement() error {
	r.next()
	if err := r.guardedSequence(token.Do); err != nil {
		return err
	}
	for r.kind() == token.Elsif {
		r.next()
		if err := r.guardedSequence(token.Do); err != nil {
			return err
		}
	}
	return r.expect(token.End)
}

// guardedSequence resolves "condition THEN|DO statements".
func (r *resolver) guardedSequence(keyword token.Kind) error {
	if err := r.expression(); err != nil {
		return err
	}
	if err := r.expect(keyword); err != nil {
		return err
	}
	return r.statements()
}

func (r *resolver) repeatStatement() error {
	r.next()
	if err := r.statements(); err != nil {
		return err
	}
	if err := r.expect(token.Until); err != nil {
		return err
	}
	return r.expression()
}

func (r *resolver) forStatement() error {
	r.next()
	if _, err := r.qualident(); err != nil {
		return err
	}
	if err := r.expect(token.Becomes); err != nil {
		return err
	}
	if err := r.expression(); err != nil {
		return err
	}
	if err := r.expect(token.To); err != nil {
		return err
	}
	if err := r.expression(); err != nil {
		return err
	}
	if r.kind() == token.By {
		r.next()
		if err := r.expression(); err != nil {
			return err
		}
	}
	if err := r.expect(token.Do); err != nil {
		return err
	}
	if err := r.statements(); err != nil {
		return err
	}
	return r.expect(token.End)
}

func (r *resolver) caseStatement() error {
	r.next()
	if r.isTypeCase() {
		return r.typeCase()
	}
	if err := r.expression(); err != nil {
		return err
	}
	if err := r.expect(token.Of); err != nil {
		return err
	}
	for r.kind() != token.End {
		if r.kind() == token.Bar {
			r.next()
			continue
		}
		if err := r.labelList(); err != nil {
			return err
		}
		if err := r.expect(token.Colon); err != nil {
			return err
		}
		outer := r.cur
		r.cur = r.arena.New(outer, "", outer)
		err := r.statements()
		r.cur = outer
		if err != nil {
			return err
		}
		if r.kind() != token.Bar && r.kind() != token.End {
			return r.errorf(diag.ErrSyntax, "| or END expected, found %s", r.found())
		}
	}
	return r.expect(token.End)
}

func (r *resolver) labelList() error {
	for {
		if err := r.expression(); err != nil {
			return err
		}
		if r.kind() == token.Upto {
			r.next()
			if err := r.expression(); err != nil {
				return err
			}
		}
		if r.kind() != token.Comma {
			return nil
		}
		r.next()
	}
}

// isTypeCase reports whether the CASE at the current position is a type
// case: a plain variable whose first label names a type.
func (r *resolver) isTypeCase() bool {
	if r.kind() != token.Ident || r.pos+1 >= len(r.toks) || r.toks[r.pos+1].Kind != token.Of {
		return false
	}
	if k, err := r.arena.KindOf(r.cur, r.text()); err != nil || k != scope.Variable {
		return false
	}
	i := r.pos + 2
	for i < len(r.toks) && r.toks[i].Kind == token.Bar {
		i++
	}
	if i >= len(r.toks) || r.toks[i].Kind != token.Ident {
		return false
	}
	b, err := r.arena.Lookup(r.cur, r.toks[i].Text)
	if err != nil {
		return false
	}
	if b.Kind == scope.Module && i+2 < len(r.toks) && r.toks[i+1].Kind == token.Period {
		b, err = r.arena.Lookup(b.Target, r.toks[i+2].Text)
		if err != nil {
			return false
		}
	}
	return b.Kind == scope.Type
}

// typeCase resolves "CASE v OF T1: ... | T2: ... END". Inside each arm v is
// rebound, under its original link, to the scope of the arm's type.
func (r *resolver) typeCase() error {
	name := r.text()
	l, err := r.arena.LinkOf(r.cur, name)
	if err != nil {
		return r.wrap(err)
	}
	prefix := strings.TrimSuffix(l, name)
	if err := r.refer(r.cur, r.pos); err != nil {
		return err
	}
	r.next()
	if err := r.expect(token.Of); err != nil {
		return err
	}
	for r.kind() == token.Bar || r.kind() == token.Ident {
		if r.kind() == token.Bar {
			r.next()
			continue
		}
		t, err := r.qualident()
		if err != nil {
			return err
		}
		if t.kind != scope.Type {
			return r.errorf(diag.ErrSyntax, "type expected in type case label")
		}
		if err := r.expect(token.Colon); err != nil {
			return err
		}
		outer := r.cur
		r.cur = r.arena.New(outer, prefix, scope.None)
		if err := r.arena.Bind(r.cur, name, scope.Variable, t.scope); err != nil {
			return r.wrap(err)
		}
		err = r.statements()
		r.cur = outer
		if err != nil {
			return err
		}
	}
	return r.expect(token.End)
}
