package module

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// Evaluate runs entry and every module it depends on exactly once,
// depth-first in dependency order (§4.11 Evaluate), so an importer's
// body never runs before the bindings it reads are initialized -
// except within one strongly-connected component, where Link already
// wired every member's imports as indirect bindings read live off each
// other's Env rather than copied, so evaluation order inside a cycle
// only has to avoid infinite recursion, not produce a "correct" linear
// order that doesn't exist.
//
// entry must already be StatusLinked (Link must have run first).
func Evaluate(vmc *vm.VM, entry *Module) (value.Value, *object.Exception) {
	visited := make(map[*Module]bool)
	return evaluate(vmc, entry, visited)
}

func evaluate(vmc *vm.VM, m *Module, visited map[*Module]bool) (value.Value, *object.Exception) {
	if visited[m] {
		return m.evalResult, m.evalErr
	}
	visited[m] = true

	if m.Status == StatusEvaluated || m.Status == StatusEvaluatingAsync {
		return m.evalResult, m.evalErr
	}
	m.Status = StatusEvaluating

	for _, dep := range m.resolvedModules {
		if _, exc := evaluate(vmc, dep, visited); exc != nil {
			m.Status = StatusEvaluated
			m.evalErr = exc
			return value.Undefined, exc
		}
	}

	var result value.Value
	var exc *object.Exception
	if m.HasTopLevelAwait {
		m.Status = StatusEvaluatingAsync
		result, exc = vmc.RunModuleAsync(m.CodeBlock, m.Env)
	} else {
		result, exc = vmc.RunModule(m.CodeBlock, m.Env)
	}
	m.Status = StatusEvaluated
	m.evalResult = result
	m.evalErr = exc
	return result, exc
}
