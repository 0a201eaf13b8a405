package module

import (
	"context"
	"fmt"

	"github.com/quartzjs/quartz/internal/diag"
	"github.com/quartzjs/quartz/internal/parser"
	"github.com/quartzjs/quartz/internal/realm"
)

// Graph owns every Module reachable from one or more entry points,
// keyed by the loader's canonical specifier (§4.11 "the module map").
// A specifier is only ever loaded and parsed once, however many times
// it's imported.
type Graph struct {
	Loader Loader
	Realm  *realm.Realm

	modules map[string]*Module
}

func NewGraph(loader Loader, r *realm.Realm) *Graph {
	return &Graph{Loader: loader, Realm: r, modules: make(map[string]*Module)}
}

// Load resolves and fetches specifier and every module it transitively
// imports or re-exports from, depth-first, returning the entry
// Module. A specifier already present in the graph is returned as-is
// without being fetched or parsed again, which is what makes import
// cycles terminate.
func (g *Graph) Load(ctx context.Context, specifier string) (*Module, error) {
	return g.load(ctx, nil, specifier)
}

func (g *Graph) load(ctx context.Context, referrer *Module, specifier string) (*Module, error) {
	canonical, err := g.Loader.Resolve(referrer, specifier)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", specifier, err)
	}
	if m, ok := g.modules[canonical]; ok {
		return m, nil
	}

	// Reserve the slot before recursing into dependencies, so a cycle
	// back to this specifier finds the in-progress Module rather than
	// recursing forever.
	placeholder := &Module{Specifier: canonical, Status: StatusUnlinked, dfsIndex: -1}
	g.modules[canonical] = placeholder

	src, err := g.Loader.Load(ctx, canonical)
	if err != nil {
		placeholder.loadErr = err
		return nil, err
	}

	p := parser.New([]byte(src), diag.NewLog())
	prog, err := p.ParseModule()
	if err != nil {
		placeholder.loadErr = err
		return nil, fmt.Errorf("parsing module %q: %w", canonical, err)
	}

	m := New(canonical, prog, g.Realm)
	*placeholder = *m
	m = placeholder
	g.modules[canonical] = m

	for _, spec := range m.dependencySpecifiers() {
		dep, err := g.load(ctx, m, spec)
		if err != nil {
			return nil, err
		}
		m.resolvedModules[spec] = dep
	}
	return m, nil
}

// dependencySpecifiers lists every distinct source specifier this
// module's imports and re-exports reference, in first-occurrence
// order.
func (m *Module) dependencySpecifiers() []string {
	seen := make(map[string]bool)
	var specs []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			specs = append(specs, s)
		}
	}
	for _, imp := range m.imports {
		add(imp.Source)
	}
	for _, ind := range m.indirect {
		add(ind.Source)
	}
	for _, star := range m.stars {
		add(star.Source)
	}
	return specs
}

// Get returns an already-loaded module by canonical specifier.
func (g *Graph) Get(specifier string) (*Module, bool) {
	m, ok := g.modules[specifier]
	return m, ok
}
