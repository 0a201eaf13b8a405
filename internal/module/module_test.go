package module

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/builtins"
	"github.com/quartzjs/quartz/internal/diag"
	"github.com/quartzjs/quartz/internal/parser"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/vm"
)

// mapLoader resolves specifiers as plain map keys (no filesystem),
// letting these tests build a module graph purely in memory.
type mapLoader struct {
	sources map[string]string
}

func (l *mapLoader) Resolve(referrer *Module, specifier string) (string, error) {
	return specifier, nil
}

func (l *mapLoader) Load(ctx context.Context, specifier string) (string, error) {
	return l.sources[specifier], nil
}

func newTestVM(t *testing.T) *vm.VM {
	t.Helper()
	r := realm.New()
	require.NoError(t, builtins.Bootstrap(r))
	return vm.New(r)
}

func loadGraph(t *testing.T, sources map[string]string, entry string) (*Graph, *Module) {
	t.Helper()
	r := realm.New()
	require.NoError(t, builtins.Bootstrap(r))
	g := NewGraph(&mapLoader{sources: sources}, r)
	m, err := g.Load(context.Background(), entry)
	require.NoError(t, err)
	return g, m
}

func TestLoadResolvesStraightLineDependencies(t *testing.T) {
	_, m := loadGraph(t, map[string]string{
		"a.js": `import {b} from "b.js"; export const a = b + 1;`,
		"b.js": `export const b = 41;`,
	}, "a.js")
	require.Equal(t, "a.js", m.Specifier)
	require.Len(t, m.imports, 1)
	require.Equal(t, "b.js", m.imports[0].Source)
	dep, ok := m.resolvedModules["b.js"]
	require.True(t, ok)
	require.Equal(t, "b.js", dep.Specifier)
}

func TestLoadTerminatesOnImportCycle(t *testing.T) {
	g, m := loadGraph(t, map[string]string{
		"a.js": `import {b} from "b.js"; export const a = 1;`,
		"b.js": `import {a} from "a.js"; export const b = 2;`,
	}, "a.js")
	require.NotNil(t, m.resolvedModules["b.js"])
	bMod := m.resolvedModules["b.js"]
	require.Same(t, m, bMod.resolvedModules["a.js"])
	require.Len(t, g.modules, 2)
}

func parseModuleSrc(t *testing.T, src string) *Module {
	t.Helper()
	p := parser.New([]byte(src), diag.NewLog())
	prog, err := p.ParseModule()
	require.NoError(t, err)
	return New("test.js", prog, nil)
}

func TestScanCollectsExportsAndImports(t *testing.T) {
	m := parseModuleSrc(t, `
		import def, {x as y} from "dep.js";
		export const z = 1;
		export {y as reexported};
		export default function f() {}
	`)
	require.Len(t, m.imports, 2)
	require.True(t, m.imports[0].Default)
	require.Equal(t, "def", m.imports[0].Local)
	require.Equal(t, "x", m.imports[1].Imported)
	require.Equal(t, "y", m.imports[1].Local)

	var exportedNames []string
	for _, le := range m.localExports {
		exportedNames = append(exportedNames, le.Exported)
	}
	require.Contains(t, exportedNames, "z")
	require.Contains(t, exportedNames, "reexported")
	require.Contains(t, exportedNames, "default")
}

func TestLinkAndEvaluateResolvesCycleBindings(t *testing.T) {
	vmc := newTestVM(t)
	g := NewGraph(&mapLoader{sources: map[string]string{
		"a.js": `import {bVal} from "b.js"; export let aVal = 1;`,
		"b.js": `import {aVal} from "a.js"; export let bVal = 2;`,
	}}, vmc.Realm)
	entry, err := g.Load(context.Background(), "a.js")
	require.NoError(t, err)

	require.NoError(t, Link(entry))
	require.Equal(t, StatusLinked, entry.Status)

	_, exc := Evaluate(vmc, entry)
	require.Nil(t, exc)
	require.Equal(t, StatusEvaluated, entry.Status)

	bMod := entry.resolvedModules["b.js"]
	require.Equal(t, StatusEvaluated, bMod.Status)

	aVal, ok := entry.Env.GetByName("aVal")
	require.True(t, ok)
	require.True(t, aVal.IsNumber())
	require.Equal(t, float64(1), aVal.AsFloat64())

	bVal, ok := bMod.Env.GetByName("bVal")
	require.True(t, ok)
	require.Equal(t, float64(2), bVal.AsFloat64())
}

func TestLinkSurfacesAmbiguousStarExport(t *testing.T) {
	vmc := newTestVM(t)
	g := NewGraph(&mapLoader{sources: map[string]string{
		"main.js": `export * from "x.js"; export * from "y.js";`,
		"x.js":    `export const shared = 1;`,
		"y.js":    `export const shared = 2;`,
	}}, vmc.Realm)
	entry, err := g.Load(context.Background(), "main.js")
	require.NoError(t, err)
	err = Link(entry)
	require.Error(t, err)
}

func TestResolveExportFindsIndirectReexport(t *testing.T) {
	vmc := newTestVM(t)
	g := NewGraph(&mapLoader{sources: map[string]string{
		"main.js": `export {inner as outer} from "lib.js";`,
		"lib.js":  `export const inner = 7;`,
	}}, vmc.Realm)
	entry, err := g.Load(context.Background(), "main.js")
	require.NoError(t, err)
	rb, err := entry.ResolveExport("outer")
	require.NoError(t, err)
	require.NotNil(t, rb)
	require.Equal(t, "inner", rb.Local)
	require.Equal(t, "lib.js", rb.Module.Specifier)
}
