// Package schedule resolves a whole program module by module, each one only
// after every module it imports has published its public scope.
//
// There is no precomputed dependency graph. Modules are attempted in rounds;
// a module with an unpublished import waits on that import and is retried in
// the round after the import resolves. When a round makes no progress any
// module still waiting has unsatisfiable imports.
package schedule

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"oberon-xref/pkg/diag"
	"oberon-xref/pkg/resolve"
	"oberon-xref/pkg/scope"
	"oberon-xref/pkg/token"
)

// DefaultContextWindow is the number of tokens shown on each side of a
// failure.
const DefaultContextWindow = 25

// Unit is a module ready to be scheduled.
type Unit struct {
	Name    string
	Imports []string // target module names in import order
	Tokens  []token.Token
}

// Scheduler owns the scope arena and the table of published module scopes.
type Scheduler struct {
	arena     *scope.Arena
	published resolve.Scopes
	results   map[string]*resolve.Result
	order     []string
	window    int
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithContextWindow sets the number of tokens reported around a failure.
func WithContextWindow(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.window = n
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		arena:     scope.NewArena(),
		published: resolve.Scopes{},
		results:   map[string]*resolve.Result{},
		window:    DefaultContextWindow,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arena returns the arena holding every scope created so far.
func (s *Scheduler) Arena() *scope.Arena { return s.arena }

// Published returns a read-only view of the published module scopes.
func (s *Scheduler) Published() resolve.Published { return view{s.published} }

type view struct{ m resolve.Scopes }

func (v view) Scope(module string) (scope.Handle, bool) { return v.m.Scope(module) }

// Result returns the resolution result of a module.
func (s *Scheduler) Result(module string) (*resolve.Result, bool) {
	r, ok := s.results[module]
	return r, ok
}

// Order returns module names in the order they were resolved.
func (s *Scheduler) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Bootstrap resolves units in the given order without looking at their
// imports. It seeds the published table with the predeclared modules.
func (s *Scheduler) Bootstrap(units ...Unit) error {
	for _, u := range units {
		if err := s.resolve(u); err != nil {
			return err
		}
	}
	return nil
}

// Run resolves units in dependency order. The first failing module aborts
// the run with a *ModuleError; modules that can never be resolved produce a
// single *UnsatisfiableError.
func (s *Scheduler) Run(units []Unit) error {
	byName := make(map[string]Unit, len(units))
	queue := make([]string, 0, len(units))
	for _, u := range units {
		if _, dup := byName[u.Name]; dup {
			return fmt.Errorf("%w: module %s defined twice", diag.ErrDuplicateName, u.Name)
		}
		if _, dup := s.published[u.Name]; dup {
			return fmt.Errorf("%w: module %s shadows a resolved module", diag.ErrDuplicateName, u.Name)
		}
		byName[u.Name] = u
		queue = append(queue, u.Name)
	}

	waiting := make(map[string][]string)
	for round := 1; len(queue) > 0; round++ {
		s.logger.Debug("schedule round", slog.Int("round", round), slog.Int("queued", len(queue)))
		var next []string
		for _, name := range queue {
			u := byName[name]
			if blocker := s.lastUnpublished(u.Imports); blocker != "" {
				waiting[blocker] = append(waiting[blocker], name)
				continue
			}
			if err := s.resolve(u); err != nil {
				return err
			}
			next = append(next, waiting[name]...)
			delete(waiting, name)
		}
		queue = next
	}

	if len(waiting) == 0 {
		return nil
	}
	unsat := &UnsatisfiableError{}
	for blocker, names := range waiting {
		for _, name := range names {
			unsat.Blocked = append(unsat.Blocked, Blocked{
				Module:    name,
				BlockedOn: blocker,
				Missing:   s.unpublished(byName[name].Imports),
			})
		}
	}
	sort.Slice(unsat.Blocked, func(i, j int) bool { return unsat.Blocked[i].Module < unsat.Blocked[j].Module })
	return unsat
}

func (s *Scheduler) lastUnpublished(imports []string) string {
	last := ""
	for _, imp := range imports {
		if _, ok := s.published[imp]; !ok {
			last = imp
		}
	}
	return last
}

func (s *Scheduler) unpublished(imports []string) []string {
	var out []string
	for _, imp := range imports {
		if _, ok := s.published[imp]; !ok {
			out = append(out, imp)
		}
	}
	return out
}

func (s *Scheduler) resolve(u Unit) error {
	res, err := resolve.Resolve(s.arena, view{s.published}, u.Tokens)
	if err == nil && res.Module != u.Name {
		err = diag.Errorf(diag.ErrNameMismatch, 1, "module %s found where %s was expected", res.Module, u.Name)
	}
	if err != nil {
		return s.moduleError(u, err)
	}
	s.published[u.Name] = res.Public
	s.results[u.Name] = res
	s.order = append(s.order, u.Name)
	s.logger.Debug("resolved module", slog.String("module", u.Name), slog.Int("exports", len(res.Exports)))
	return nil
}

func (s *Scheduler) moduleError(u Unit, err error) *ModuleError {
	pos := diag.Position(err)
	if pos < 0 || pos > len(u.Tokens) {
		pos = len(u.Tokens)
	}
	texts := func(from, to int) []string {
		from = max(from, 0)
		to = min(to, len(u.Tokens))
		out := make([]string, 0, max(to-from, 0))
		for i := from; i < to; i++ {
			out = append(out, u.Tokens[i].Text)
		}
		return out
	}
	return &ModuleError{
		Module: u.Name,
		Pos:    pos,
		Before: texts(pos-s.window, pos),
		After:  texts(pos, pos+s.window),
		Err:    err,
	}
}

// ModuleError is a resolution failure of one module with the tokens around
// the failure point.
type ModuleError struct {
	Module string
	Pos    int
	Before []string
	After  []string
	Err    error
}

func (e *ModuleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s: %v", e.Module, e.Err)
	if len(e.Before) > 0 || len(e.After) > 0 {
		fmt.Fprintf(&b, "\n  tokens before: %s", strings.Join(e.Before, " "))
		fmt.Fprintf(&b, "\n  tokens after:  %s", strings.Join(e.After, " "))
	}
	return b.String()
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Blocked describes a module that could not be resolved.
type Blocked struct {
	Module    string
	BlockedOn string
	Missing   []string
}

// UnsatisfiableError lists every module left waiting when no further progress
// was possible: imports of missing modules and import cycles.
type UnsatisfiableError struct {
	Blocked []Blocked
}

func (e *UnsatisfiableError) Error() string {
	parts := make([]string, 0, len(e.Blocked))
	for _, b := range e.Blocked {
		parts = append(parts, fmt.Sprintf("%s (blocked on %s; unresolved imports: %s)", b.Module, b.BlockedOn, strings.Join(b.Missing, ", ")))
	}
	return diag.ErrUnsatisfiableImports.Error() + ": " + strings.Join(parts, "; ")
}

func (e *UnsatisfiableError) Unwrap() error { return diag.ErrUnsatisfiableImports }
