package resolve

import (
	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// typed is what a designator resolved to so far.
type typed struct {
	kind  scope.Kind
	scope scope.Handle
}

var operators = map[token.Kind]bool{
	token.And:   true,
	token.Minus: true,
	token.Plus:  true,
	token.RDiv:  true,
	token.Times: true,
	token.Div:   true,
	token.Mod:   true,
	token.Or:    true,
	token.Eql:   true,
	token.Geq:   true,
	token.Gtr:   true,
	token.Leq:   true,
	token.Lss:   true,
	token.Neq:   true,
	token.In:    true,
}

// qualident resolves "name" or "Module.name", stamping a link on each
// identifier.
func (r *resolver) qualident() (typed, error) {
	if err := r.check(token.Ident); err != nil {
		return typed{}, err
	}
	b, err := r.arena.Lookup(r.cur, r.text())
	if err != nil {
		return typed{}, r.wrap(err)
	}
	if err := r.refer(r.cur, r.pos); err != nil {
		return typed{}, err
	}
	r.next()
	if r.kind() != token.Period || b.Kind != scope.Module {
		return typed{b.Kind, b.Target}, nil
	}

	r.next()
	if err := r.check(token.Ident); err != nil {
		return typed{}, err
	}
	module := b.Target
	b, err = r.arena.Lookup(module, r.text())
	if err != nil {
		return typed{}, r.wrap(err)
	}
	if err := r.refer(module, r.pos); err != nil {
		return typed{}, err
	}
	r.next()
	return typed{b.Kind, b.Target}, nil
}

// selector follows index, field, dereference and type guard selectors.
func (r *resolver) selector(t typed) (typed, error) {
	for {
		switch {
		case r.kind() == token.LBrak:
			for {
				if t.kind != scope.Variable || !r.arena.Defined(t.scope, scope.Element) {
					return t, r.errorf(diag.ErrSyntax, "indexing a designator that is not an array")
				}
				elem, err := r.arena.Target(t.scope, scope.Element)
				if err != nil {
					return t, r.wrap(err)
				}
				t.scope = elem
				r.next()
				if err := r.expression(); err != nil {
					return t, err
				}
				if r.kind() != token.Comma {
					break
				}
			}
			if err := r.expect(token.RBrak); err != nil {
				return t, err
			}
		case r.kind() == token.Period:
			r.next()
			if err := r.check(token.Ident); err != nil {
				return t, err
			}
			b, err := r.arena.Lookup(t.scope, r.text())
			if err != nil {
				return t, r.wrap(err)
			}
			if err := r.refer(t.scope, r.pos); err != nil {
				return t, err
			}
			t.scope = b.Target
			r.next()
		case r.kind() == token.Arrow:
			base, err := r.arena.Target(t.scope, scope.Deref)
			if err != nil {
				return t, r.wrap(err)
			}
			t.scope = base
			r.next()
		case r.kind() == token.LParen && t.kind == scope.Variable && r.arena.Defined(t.scope, scope.Self):
			r.next()
			guard, err := r.qualident()
			if err != nil {
				return t, err
			}
			if guard.kind != scope.Type {
				return t, r.errorf(diag.ErrSyntax, "type guard expects a type")
			}
			t.scope = guard.scope
			if err := r.expect(token.RParen); err != nil {
				return t, err
			}
		default:
			return t, nil
		}
	}
}

// designator resolves a qualified identifier with its selectors.
func (r *resolver) designator() (typed, error) {
	t, err := r.qualident()
	if err != nil {
		return t, err
	}
	return r.selector(t)
}

func (r *resolver) actualParameters() error {
	r.next()
	for r.kind() != token.RParen {
		if err := r.expression(); err != nil {
			return err
		}
		if r.kind() != token.Comma {
			break
		}
		r.next()
	}
	return r.expect(token.RParen)
}

func (r *resolver) expression() error {
	for {
		if r.kind() == token.Plus || r.kind() == token.Minus {
			r.next()
		}
		if err := r.factor(); err != nil {
			return err
		}
		if !operators[r.kind()] {
			break
		}
		r.next()
	}
	if r.kind() == token.Is {
		r.next()
		t, err := r.qualident()
		if err != nil {
			return err
		}
		if t.kind != scope.Type {
			return r.errorf(diag.ErrSyntax, "IS expects a type")
		}
	}
	return nil
}

func (r *resolver) factor() error {
	switch r.kind() {
	case token.Ident:
		if _, err := r.designator(); err != nil {
			return err
		}
		if r.kind() == token.LParen {
			return r.actualParameters()
		}
		return nil
	case token.LParen:
		r.next()
		if err := r.expression(); err != nil {
			return err
		}
		return r.expect(token.RParen)
	case token.LBrace:
		return r.set()
	case token.Not:
		r.next()
		return r.factor()
	case token.Const, token.Nil, token.True, token.False:
		r.next()
		return nil
	default:
		return r.errorf(diag.ErrSyntax, "factor expected, found %s", r.found())
	}
}

// set resolves a set constructor such as {0, 2..5}.
func (r *resolver) set() error {
	r.next()
	if r.kind() != token.RBrace {
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
				break
			}
			r.next()
		}
	}
	return r.expect(token.RBrace)
}
