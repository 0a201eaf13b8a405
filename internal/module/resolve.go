package module

import "fmt"

// resolveKey identifies one (module, export name) pair visited during
// a ResolveExport walk, so a star-export cycle (`a.js` and `b.js` both
// `export * from` each other) terminates instead of recursing forever.
type resolveKey struct {
	module *Module
	name   string
}

// ResolvedBinding names where an exported name ultimately lives: a
// local binding inside Module, to be read out of Module.Env once
// Module finishes evaluating.
type ResolvedBinding struct {
	Module *Module
	Local  string
}

// errAmbiguousExport is a sentinel ResolveExport returns internally to mean
// "this name resolves to more than one distinct binding via competing
// star re-exports", which Link turns into a link error rather than
// silently picking one.
var errAmbiguousExport = fmt.Errorf("ambiguous export")

// ResolveExport implements §4.11's ResolveExport(exportName): find the
// Module and local binding name a module's export ultimately refers
// to, following indirect re-exports and star re-exports, threading a
// resolve set so `export * from` cycles return "not found" rather than
// looping.
func (m *Module) ResolveExport(name string) (*ResolvedBinding, error) {
	return m.resolveExport(name, make(map[resolveKey]bool))
}

func (m *Module) resolveExport(name string, visited map[resolveKey]bool) (*ResolvedBinding, error) {
	key := resolveKey{m, name}
	if visited[key] {
		return nil, nil // cycle, not found through this path
	}
	visited[key] = true

	for _, le := range m.localExports {
		if le.Exported == name {
			return &ResolvedBinding{Module: m, Local: le.Local}, nil
		}
	}
	for _, ie := range m.indirect {
		if ie.Exported != name {
			continue
		}
		dep, ok := m.resolvedModules[ie.Source]
		if !ok {
			return nil, fmt.Errorf("module %q: unresolved re-export source %q", m.Specifier, ie.Source)
		}
		return dep.resolveExport(ie.Imported, visited)
	}

	var found *ResolvedBinding
	for _, se := range m.stars {
		if se.As != "" {
			continue // namespace-as-binding star exports aren't plain re-exports of name
		}
		dep, ok := m.resolvedModules[se.Source]
		if !ok {
			return nil, fmt.Errorf("module %q: unresolved re-export source %q", m.Specifier, se.Source)
		}
		rb, err := dep.resolveExport(name, visited)
		if err != nil {
			return nil, err
		}
		if rb == nil {
			continue
		}
		if found != nil && (found.Module != rb.Module || found.Local != rb.Local) {
			return nil, fmt.Errorf("%w: %q is exported by more than one `export * from` source of module %q", errAmbiguousExport, name, m.Specifier)
		}
		found = rb
	}
	return found, nil
}

// exportedNames lists every name this module exports, including names
// contributed transitively by star re-exports, for building its
// namespace object's [[OwnPropertyKeys]] (§4.11's GetExportedNames).
func (m *Module) exportedNames(visited map[*Module]bool) []string {
	if visited[m] {
		return nil
	}
	visited[m] = true

	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, le := range m.localExports {
		add(le.Exported)
	}
	for _, ie := range m.indirect {
		add(ie.Exported)
	}
	for _, se := range m.stars {
		dep, ok := m.resolvedModules[se.Source]
		if !ok {
			continue
		}
		if se.As != "" {
			add(se.As)
			continue
		}
		for _, n := range dep.exportedNames(visited) {
			if n != "default" {
				add(n)
			}
		}
	}
	return names
}
