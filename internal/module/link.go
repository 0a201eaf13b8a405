package module

import (
	"fmt"

	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/jsenv"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/value"
)

// linker runs one Tarjan DFS over a module graph, instantiating each
// strongly-connected component atomically once every member's imports
// have been resolved against its dependencies, per §4.11's Link.
type linker struct {
	index int
	stack []*Module
	onErr error
}

// Link instantiates entry and every module it transitively depends on:
// each gets a CompileModule'd CodeBlock, a top-level DeclarativeEnvironment,
// and (if it has any exports) a namespace object, with import bindings
// wired by indirection so a cycle's members see each other's live
// bindings the moment Evaluate runs them. Ambiguous star re-exports
// surface here as an error rather than at evaluation time.
func Link(entry *Module) error {
	l := &linker{}
	l.strongconnect(entry)
	return l.onErr
}

func (l *linker) strongconnect(m *Module) {
	if l.onErr != nil || m.Status >= StatusLinking {
		return
	}
	m.dfsIndex = l.index
	m.dfsLowLink = l.index
	l.index++
	l.stack = append(l.stack, m)
	m.onStack = true
	m.Status = StatusLinking

	for _, dep := range m.resolvedModules {
		if l.onErr != nil {
			return
		}
		if dep.dfsIndex == -1 {
			l.strongconnect(dep)
			if dep.dfsLowLink < m.dfsLowLink {
				m.dfsLowLink = dep.dfsLowLink
			}
		} else if dep.onStack && dep.dfsIndex < m.dfsLowLink {
			m.dfsLowLink = dep.dfsIndex
		}
	}
	if l.onErr != nil {
		return
	}

	if m.dfsLowLink != m.dfsIndex {
		return // not an SCC root; root finishes instantiating the whole component
	}

	var scc []*Module
	for {
		n := len(l.stack) - 1
		top := l.stack[n]
		l.stack = l.stack[:n]
		top.onStack = false
		scc = append(scc, top)
		if top == m {
			break
		}
	}
	if err := instantiate(scc); err != nil {
		l.onErr = err
	}
}

// instantiate builds the CodeBlock, environment, and namespace object
// for every module of one strongly-connected component, then wires
// every import in the component by name (direct re-resolution, not a
// value snapshot), before returning.
func instantiate(scc []*Module) error {
	for _, m := range scc {
		cb, err := compiler.CompileModule(m.Program, m.Specifier, m.importNames())
		if err != nil {
			return fmt.Errorf("compiling module %q: %w", m.Specifier, err)
		}
		m.CodeBlock = cb
		m.importsEnv = jsenv.NewDeclarativeEnvironmentFromSlots(len(m.importNames()), m.importNames(), nil, nil)
		m.Env = jsenv.NewDeclarativeEnvironmentFromSlots(cb.NumLocals, cb.LocalNames, cb.LocalMutable, m.importsEnv)
	}

	for _, m := range scc {
		for i, imp := range m.imports {
			dep, ok := m.resolvedModules[imp.Source]
			if !ok {
				return fmt.Errorf("module %q: unresolved import source %q", m.Specifier, imp.Source)
			}
			if imp.Namespace {
				ns, err := namespaceObject(dep)
				if err != nil {
					return err
				}
				m.importsEnv.InitializeBinding(uint32(i), value.FromObject(ns))
				continue
			}
			local := imp.Imported
			if imp.Default {
				local = "default"
			}
			rb, err := dep.ResolveExport(local)
			if err != nil {
				return err
			}
			if rb == nil {
				return fmt.Errorf("module %q: %q has no export named %q", m.Specifier, imp.Source, local)
			}
			m.importsEnv.DefineIndirectBinding(imp.Local, rb.Module.Env, rb.Local)
		}
		for _, se := range m.stars {
			if se.As == "" {
				continue
			}
			dep, ok := m.resolvedModules[se.Source]
			if !ok {
				return fmt.Errorf("module %q: unresolved re-export source %q", m.Specifier, se.Source)
			}
			if _, err := namespaceObject(dep); err != nil {
				return err
			}
		}
		if err := validateAmbiguity(m); err != nil {
			return err
		}
		if len(m.localExports) > 0 || len(m.indirect) > 0 || len(m.stars) > 0 {
			if _, err := namespaceObject(m); err != nil {
				return err
			}
		}
		m.Status = StatusLinked
	}
	return nil
}

// validateAmbiguity forces every exported name to resolve exactly
// once, surfacing a competing-star-export error at link time rather
// than leaving it to whichever importer happens to touch the name
// first (§4.11 "ambiguous export is a link-time error").
func validateAmbiguity(m *Module) error {
	for _, name := range m.exportedNames(make(map[*Module]bool)) {
		if _, err := m.ResolveExport(name); err != nil {
			return err
		}
	}
	return nil
}

// namespaceObject builds (once, memoized on m.Namespace) m's module
// namespace exotic object (§4.11 GetModuleNamespace): its own keys are
// every name m exports (direct, indirect, and star), and reading one
// re-resolves it against m's own Env by local binding name - live,
// the way jsenv.ResolveIndirect reads an indirect export - rather than
// copying a value at namespace-creation time.
func namespaceObject(m *Module) (*object.Object, error) {
	if m.Namespace != nil {
		return m.Namespace, nil
	}
	exports := m.exportedNames(make(map[*Module]bool))
	nd := &object.ModuleNamespaceData{
		Exports: exports,
		Resolve: func(name string) (value.Value, bool) {
			rb, err := m.ResolveExport(name)
			if err != nil || rb == nil {
				return value.Undefined, false
			}
			return rb.Module.Env.GetByName(rb.Local)
		},
	}
	m.Namespace = object.New(nil, object.DataModuleNamespace, nd, object.ModuleNamespaceMethods)
	return m.Namespace, nil
}
