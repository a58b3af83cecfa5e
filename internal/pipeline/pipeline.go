package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"oberon-xref/pkg/link"
	"oberon-xref/pkg/model"
	"oberon-xref/pkg/render"
	"oberon-xref/pkg/resolve"
	"oberon-xref/pkg/schedule"
	"oberon-xref/pkg/xref"
)

// Module is a resolved source.
type Module struct {
	*Source
	Result *resolve.Result
}

// Program is a fully resolved and checked set of modules.
type Program struct {
	Root  string
	RunID string
	// Modules holds the bootstrap modules first, then the sources in name
	// order.
	Modules []*Module
	// Order is the sequence in which modules were resolved.
	Order  []string
	Report *xref.Report

	byName map[string]*Module
}

// Run loads opts.Root, resolves every module in dependency order and checks
// the links of the whole program.
func Run(ctx context.Context, opts Options) (*Program, error) {
	logger := opts.logger()
	cfg := opts.config()
	start := time.Now()

	boot, err := Bootstrap()
	if err != nil {
		return nil, err
	}
	sources, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("scanned sources", slog.String("root", opts.Root), slog.Int("modules", len(sources)))

	s := schedule.New(schedule.WithContextWindow(cfg.ContextWindow), schedule.WithLogger(logger))
	bootUnits := make([]schedule.Unit, 0, len(boot))
	for _, src := range boot {
		bootUnits = append(bootUnits, unitOf(src))
	}
	if err := s.Bootstrap(bootUnits...); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units := make([]schedule.Unit, 0, len(sources))
	for _, src := range sources {
		units = append(units, unitOf(src))
	}
	if err := s.Run(units); err != nil {
		return nil, err
	}

	p := &Program{
		Root:   opts.Root,
		RunID:  uuid.NewString(),
		Order:  s.Order(),
		byName: map[string]*Module{},
	}
	for _, src := range append(boot, sources...) {
		res, ok := s.Result(src.Name)
		if !ok {
			return nil, fmt.Errorf("module %s was not resolved", src.Name)
		}
		m := &Module{Source: src, Result: res}
		p.Modules = append(p.Modules, m)
		p.byName[src.Name] = m
	}

	report, err := xref.Check(p.XrefModules())
	if err != nil {
		return nil, fmt.Errorf("consistency check: %w", err)
	}
	p.Report = report
	for _, ref := range report.Dangling {
		logger.Warn("export without definition", slog.String("reference", ref))
	}
	logger.Info("resolved program",
		slog.String("run", p.RunID),
		slog.Int("modules", len(p.Modules)),
		slog.Int("links", report.Links),
		slog.Duration("elapsed", time.Since(start)))
	return p, nil
}

func unitOf(src *Source) schedule.Unit {
	u := schedule.Unit{Name: src.Name, Tokens: src.Parsed()}
	for _, imp := range src.Imports {
		u.Imports = append(u.Imports, imp.Module)
	}
	return u
}

// Module looks up a module by name.
func (p *Program) Module(name string) (*Module, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// XrefModules returns the checker view of every module.
func (p *Program) XrefModules() []xref.Module {
	out := make([]xref.Module, 0, len(p.Modules))
	for _, m := range p.Modules {
		out = append(out, xref.Module{
			Name:        m.Name,
			Builtin:     m.Builtin,
			Tokens:      m.Parsed(),
			Links:       m.Result.Links.Links(),
			Definitions: m.Result.Definitions,
		})
	}
	return out
}

// Links returns the links of m spread over its full token stream.
func (m *Module) Links() []link.Link {
	out := make([]link.Link, len(m.Tokens))
	for j, i := range m.Significant {
		out[i] = m.Result.Links.At(j)
	}
	return out
}

// Unreferenced lists definitions and exports nobody uses.
func (p *Program) Unreferenced() []xref.Finding {
	return xref.Unreferenced(p.XrefModules(), p.Report)
}

// Pages returns the render input for every module.
func (p *Program) Pages() []render.Page {
	pages := make([]render.Page, 0, len(p.Modules))
	for _, m := range p.Modules {
		page := render.Page{
			Module:  m.Name,
			Tokens:  m.Tokens,
			Links:   m.Links(),
			Usages:  p.Report.UsagesOf(m.Name),
			Listing: m.Listing,
		}
		for _, imp := range m.Imports {
			page.Imports = append(page.Imports, imp.Module)
		}
		pages = append(pages, page)
	}
	return pages
}

// Index converts the program into its serialisable form.
func (p *Program) Index() *model.Index {
	idx := &model.Index{
		RunID:       p.RunID,
		Root:        p.Root,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Order:       append([]string(nil), p.Order...),
	}
	for _, m := range p.Modules {
		parsed := m.Parsed()
		mm := model.Module{
			Name:      m.Name,
			Path:      m.Path,
			Builtin:   m.Builtin,
			SizeBytes: m.SizeBytes,
			Listing:   m.Listing != nil,
		}
		for _, imp := range m.Imports {
			mm.Imports = append(mm.Imports, model.Import{Alias: imp.Alias, Module: imp.Module})
		}
		for _, e := range m.Result.Exports {
			mm.Exports = append(mm.Exports, model.Export{Name: e.Name, Kind: e.Kind.String()})
		}
		for _, d := range m.Result.Definitions {
			tok := parsed[d.Pos]
			mm.Definitions = append(mm.Definitions, model.Definition{
				Name:     d.Anchor,
				Kind:     d.Kind.String(),
				Line:     tok.Line,
				Column:   tok.Column,
				Exported: d.Exported,
			})
		}
		for anchor, sites := range p.Report.UsagesOf(m.Name) {
			for _, site := range sites {
				mm.Usages = append(mm.Usages, model.Usage{Export: anchor, Module: site.Module, Line: site.Line, Column: site.Column})
			}
		}
		idx.Modules = append(idx.Modules, mm)
	}
	idx.Sort()
	return idx
}
