// Package module implements §4.11's Module Graph: Load (host-driven
// depth-first fetch), Link (Tarjan-style SCC instantiation), Evaluate
// (depth-first body execution), and ResolveExport (direct/indirect/
// star export resolution threading a cycle-breaking resolve set).
package module

import (
	"github.com/google/uuid"

	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/jsenv"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
)

// Status is a module's position in its lifecycle (§3 Module).
type Status uint8

const (
	StatusUnlinked Status = iota
	StatusLinking
	StatusLinked
	StatusEvaluating
	StatusEvaluatingAsync
	StatusEvaluated
)

func (s Status) String() string {
	switch s {
	case StatusUnlinked:
		return "unlinked"
	case StatusLinking:
		return "linking"
	case StatusLinked:
		return "linked"
	case StatusEvaluating:
		return "evaluating"
	case StatusEvaluatingAsync:
		return "evaluating-async"
	case StatusEvaluated:
		return "evaluated"
	default:
		return "unknown"
	}
}

// importEntry is one ImportSpecifier resolved against its declaration's
// source specifier.
type importEntry struct {
	Local     string
	Imported  string // "" for a default or namespace import
	Default   bool
	Namespace bool
	Source    string // as written, resolved to a canonical specifier during Load
}

// localExport binds an exported name directly to one of this module's
// own top-level bindings (`export {x}`, `export function f(){}`,
// `export default 1 + 1`).
type localExport struct {
	Exported string
	Local    string
}

// indirectExport re-exports a binding from another module under a
// possibly-renamed name (`export {x as y} from "m"`).
type indirectExport struct {
	Exported string
	Imported string
	Source   string
}

// starExport re-exports every name another module exports, optionally
// as a single namespace binding (`export * as ns from "m"` vs. the
// exported-name-less `export * from "m"`).
type starExport struct {
	As     string // "" for the flattened `export * from` form
	Source string
}

// Module is one vertex of the module graph.
type Module struct {
	ID        uuid.UUID
	Specifier string // canonical form the loader resolved to
	Realm     *realm.Realm

	Program   *ast.Program
	CodeBlock *compiler.CodeBlock

	Status           Status
	HasTopLevelAwait bool

	imports      []importEntry
	localExports []localExport
	indirect     []indirectExport
	stars        []starExport

	// resolvedModules maps every distinct source specifier this module
	// references (import or re-export) to the Module Load discovered it
	// as, populated once Load's DFS visits it.
	resolvedModules map[string]*Module

	// Env is this module's own top-level runtime environment, created by
	// Link once the module is instantiated and handed directly to
	// vm.RunModule/RunModuleAsync to drive execution - not rebuilt per
	// evaluation, so a namespace object's Resolve closure (built against
	// this same Env) reads the values execution actually writes.
	// importsEnv is Env.Outer(): the slots the compiled CodeBlock
	// resolves one function-scope depth outward (see
	// compiler.CompileModule) to reach imported bindings.
	Env        *jsenv.DeclarativeEnvironment
	importsEnv *jsenv.DeclarativeEnvironment

	Namespace *object.Object

	// Tarjan bookkeeping (Link).
	dfsIndex   int
	dfsLowLink int
	onStack    bool

	// Evaluate bookkeeping.
	evalResult       value.Value
	evalErr          *object.Exception
	asyncParents     []*Module
	pendingAsyncDeps int
	cycleRoot        *Module

	loadErr error
}

// New allocates an unlinked Module from an already-parsed Program.
// specifier must already be in the loader's canonical form (Load's
// caller, not Module itself, is responsible for resolution).
func New(specifier string, prog *ast.Program, r *realm.Realm) *Module {
	m := &Module{
		ID:              uuid.New(),
		Specifier:       specifier,
		Realm:           r,
		Program:         prog,
		resolvedModules: make(map[string]*Module),
		dfsIndex:        -1,
	}
	m.scan()
	return m
}

// scan walks the parsed Program's top-level statements once, up front,
// collecting every import/export declaration and detecting top-level
// await, so Load/Link/Evaluate never need to re-walk the AST.
func (m *Module) scan() {
	for _, stmt := range m.Program.Body {
		switch d := stmt.(type) {
		case *ast.ImportDeclaration:
			for _, spec := range d.Specifiers {
				m.imports = append(m.imports, importEntry{
					Local:     spec.Local,
					Imported:  spec.Imported,
					Default:   spec.Default,
					Namespace: spec.Namespace,
					Source:    d.Source,
				})
			}
		case *ast.ExportNamedDeclaration:
			if d.Source != "" {
				for _, spec := range d.Specifiers {
					m.indirect = append(m.indirect, indirectExport{Exported: spec.Exported, Imported: spec.Local, Source: d.Source})
				}
				continue
			}
			if d.Declaration != nil {
				for _, name := range declaredNames(d.Declaration) {
					m.localExports = append(m.localExports, localExport{Exported: name, Local: name})
				}
				continue
			}
			for _, spec := range d.Specifiers {
				m.localExports = append(m.localExports, localExport{Exported: spec.Exported, Local: spec.Local})
			}
		case *ast.ExportDefaultDeclaration:
			local := "*default*"
			switch decl := d.Declaration.(type) {
			case *ast.FunctionDeclaration:
				if decl.Name != nil {
					local = decl.Name.Name
				}
			case *ast.ClassDeclaration:
				if decl.Name != nil {
					local = decl.Name.Name
				}
			}
			m.localExports = append(m.localExports, localExport{Exported: "default", Local: local})
		case *ast.ExportAllDeclaration:
			m.stars = append(m.stars, starExport{As: d.Exported, Source: d.Source})
		}
	}
	m.HasTopLevelAwait = hasTopLevelAwait(m.Program.Body)
}

// declaredNames extracts the binding name(s) a `export <declaration>`
// statement introduces, so `export function f(){}`/`export class
// C{}`/`export let a = 1, b = 2` all record their local names as
// exports of the same name.
func declaredNames(stmt ast.Statement) []string {
	switch d := stmt.(type) {
	case *ast.FunctionDeclaration:
		if d.Name != nil {
			return []string{d.Name.Name}
		}
	case *ast.ClassDeclaration:
		if d.Name != nil {
			return []string{d.Name.Name}
		}
	case *ast.VariableDeclaration:
		var names []string
		for _, decl := range d.Declarations {
			names = append(names, patternNames(decl.Target)...)
		}
		return names
	}
	return nil
}

func patternNames(p ast.Pattern) []string {
	switch t := p.(type) {
	case *ast.IdentifierPattern:
		return []string{t.Name}
	case *ast.ArrayPattern:
		var names []string
		for _, el := range t.Elements {
			if el != nil {
				names = append(names, patternNames(el)...)
			}
		}
		if t.Rest != nil {
			names = append(names, patternNames(t.Rest)...)
		}
		return names
	case *ast.ObjectPattern:
		var names []string
		for _, prop := range t.Properties {
			names = append(names, patternNames(prop.Value)...)
		}
		if t.Rest != nil {
			names = append(names, patternNames(t.Rest)...)
		}
		return names
	}
	return nil
}

// importNames is the flat list CompileModule needs (one per distinct
// local import binding, in declaration order) to pre-declare the
// module's outer import scope.
func (m *Module) importNames() []string {
	names := make([]string, len(m.imports))
	for i, imp := range m.imports {
		names[i] = imp.Local
	}
	return names
}
