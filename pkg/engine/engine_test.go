package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/module"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
)

var errDenied = errors.New("dynamic compilation denied")

// mapLoader resolves specifiers as plain map keys, letting module
// tests build a graph without touching the filesystem - the same
// idiom internal/module's own tests use.
type mapLoader struct {
	sources map[string]string
}

func (l *mapLoader) Resolve(referrer *module.Module, specifier string) (string, error) {
	return specifier, nil
}

func (l *mapLoader) Load(ctx context.Context, specifier string) (string, error) {
	return l.sources[specifier], nil
}

func TestEvalReturnsCompletionValue(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	result, err := c.Eval(`1 + 2`)
	require.NoError(t, err)
	n, ok := result.ToNumber()
	require.True(t, ok)
	require.Equal(t, float64(3), n)
}

func TestEvalThrowWrapsScriptError(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	_, err = c.Eval(`throw new TypeError("bad input")`)
	require.Error(t, err)

	var se *ScriptError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "TypeError: bad input", se.Error())
	require.NotEmpty(t, se.Stack())
}

func TestEvalThrowNonErrorValueFallsBackToRawString(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	_, err = c.Eval(`throw "just a string"`)
	require.Error(t, err)
	require.Equal(t, "just a string", err.Error())
}

func TestCompileThenExecuteRunsTheSameCodeBlockTwice(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	cb, err := c.Compile(`21 * 2`)
	require.NoError(t, err)

	first, err := c.Execute(cb)
	require.NoError(t, err)
	n, _ := first.ToNumber()
	require.Equal(t, float64(42), n)

	second, err := c.Execute(cb)
	require.NoError(t, err)
	n2, _ := second.ToNumber()
	require.Equal(t, float64(42), n2)
}

func TestEnsureCanCompileStringsRejectsSource(t *testing.T) {
	c, err := New(Options{
		EnsureCanCompileStrings: func(source string) error {
			return errDenied
		},
	})
	require.NoError(t, err)

	_, err = c.Eval(`1 + 1`)
	require.ErrorIs(t, err, errDenied)
}

func TestLoadModuleLinksDependenciesAndExposesNamespace(t *testing.T) {
	loader := &mapLoader{sources: map[string]string{
		"main": `import { value } from "dep"; export const doubled = value * 2;`,
		"dep":  `export const value = 21;`,
	}}
	c, err := New(Options{Loader: loader})
	require.NoError(t, err)

	m, err := c.LoadModule(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, module.StatusEvaluated, m.Status)

	ns := c.Namespace(m)
	require.True(t, ns.IsObject())

	obj, ok := ns.AsObject().(*object.Object)
	require.True(t, ok)
	v, exc := obj.Get(c.VM, shape.StringKey("doubled"), ns)
	require.Nil(t, exc)
	n, ok := v.ToNumber()
	require.True(t, ok)
	require.Equal(t, float64(42), n)
}
