// Package jsenv implements the Environment Record component (§3
// Environment Record): a compile-time half resolving names to slot
// indices and a runtime half holding the actual binding values.
//
// No original_source file documents environments directly (Boa's
// equivalent sits outside the files pulled into this pack), so this
// package is grounded on the shape package's own index-assignment
// technique — CompileTimeEnvironment plays the same "hand out a
// stable slot number per name" role that PropertyTable plays for
// object properties — adapted to the flat, outer-chained binding
// vector spec.md §3 describes instead of a shared shape tree, since
// lexical scopes don't need shape sharing across distinct closures the
// way object shapes share across distinct instances.
package jsenv

import (
	"github.com/pkg/errors"

	"github.com/quartzjs/quartz/internal/value"
)

// BindingKind distinguishes a few binding flavors that affect TDZ and
// reassignment behaviour.
type BindingKind uint8

const (
	BindingVar BindingKind = iota
	BindingLet
	BindingConst
	BindingFunction
	BindingParameter
)

// bindingInfo is the compile-time half of one declared name.
type bindingInfo struct {
	index   uint32
	kind    BindingKind
	mutable bool
	strict  bool
}

// CompileTimeEnvironment resolves identifiers to slot indices during
// compilation. Block scopes (isFunctionScope false) nest for shadowing
// purposes only: their Declare calls allocate from the nearest
// enclosing function scope's flat slot table (owner) instead of a
// table of their own, since the VM gives one activation exactly one
// runtime DeclarativeEnvironment regardless of how many lexical blocks
// its body contains (stack-allocated block locals never need their own
// heap environment record; only the function-level activation does).
// Resolve's depth counts function-scope boundaries crossed, which is
// exactly the number of runtime environments to walk outward.
type CompileTimeEnvironment struct {
	outer           *CompileTimeEnvironment
	owner           *CompileTimeEnvironment // nearest ancestor (possibly self) with isFunctionScope true
	bindings        map[string]bindingInfo
	order           []string // owner-level only: flat slot table for the whole activation
	mutable         []bool   // owner-level only, parallel to order
	isFunctionScope bool
}

// NewCompileTimeEnvironment creates a fresh scope chained to outer
// (nil for a script/module's top-level scope).
func NewCompileTimeEnvironment(outer *CompileTimeEnvironment, isFunctionScope bool) *CompileTimeEnvironment {
	c := &CompileTimeEnvironment{
		outer:           outer,
		bindings:        make(map[string]bindingInfo),
		isFunctionScope: isFunctionScope,
	}
	if isFunctionScope || outer == nil {
		c.owner = c
	} else {
		c.owner = outer.owner
	}
	return c
}

func (c *CompileTimeEnvironment) Outer() *CompileTimeEnvironment { return c.outer }

// Declare assigns name the next free slot in the owning function
// scope's flat table, recording the binding in this scope's own map so
// a block-local declaration shadows an outer one by name without
// disturbing the outer binding's slot. Redeclaring an existing name in
// the same scope (e.g. `var` hoisting visiting the same name twice) is
// allowed and returns the existing slot; callers are responsible for
// rejecting illegal redeclarations (handled by the parser's early-error
// pass, not here).
func (c *CompileTimeEnvironment) Declare(name string, kind BindingKind, strict bool) uint32 {
	if existing, ok := c.bindings[name]; ok {
		return existing.index
	}
	idx := uint32(len(c.owner.order))
	c.owner.order = append(c.owner.order, name)
	c.owner.mutable = append(c.owner.mutable, kind != BindingConst)
	c.bindings[name] = bindingInfo{
		index:   idx,
		kind:    kind,
		mutable: kind != BindingConst,
		strict:  strict,
	}
	return idx
}

// Resolve looks up name starting in this scope and walking outward,
// returning the slot index, the number of runtime environments to walk
// (depth), and whether the binding was found at all.
func (c *CompileTimeEnvironment) Resolve(name string) (index uint32, depth uint32, kind BindingKind, ok bool) {
	env := c
	d := uint32(0)
	for env != nil {
		if b, found := env.bindings[name]; found {
			return b.index, d, b.kind, true
		}
		if env.isFunctionScope {
			d++
		}
		env = env.outer
	}
	return 0, 0, 0, false
}

// SlotCount is how large the matching runtime Environment's slot
// vector must be allocated.
func (c *CompileTimeEnvironment) SlotCount() int { return len(c.owner.order) }

// Names returns every declared name in this activation, in allocation
// order (used by the compiler to pre-size and label the runtime
// environment for debugging, and by the VM's `with`-free scope
// application).
func (c *CompileTimeEnvironment) Names() []string { return append([]string(nil), c.owner.order...) }

// IsFunctionScope reports whether this is a var-hoisting boundary
// (function body, script/module top level) rather than a block scope.
func (c *CompileTimeEnvironment) IsFunctionScope() bool { return c.isFunctionScope }

// Mutability returns, parallel to Names(), whether each declared
// binding accepts reassignment (false for `const`). Compiled units keep
// a copy of this alongside their slot count so a runtime environment
// can be rebuilt without retaining the CompileTimeEnvironment itself.
func (c *CompileTimeEnvironment) Mutability() []bool {
	return append([]bool(nil), c.owner.mutable...)
}

var errUninitialized = errors.New("jsenv: binding accessed before initialization")

// slot is one runtime binding: a value plus the TDZ flag that lets
// `let`/`const` bindings reject access before their declaration runs.
type slot struct {
	value       value.Value
	initialized bool
	mutable     bool
}

// IndirectBinding names the target of a module environment's
// re-exported binding: (target environment, name in that environment),
// replayed at lookup time instead of copied at link time, per §3
// Module "indirect-binding records".
type IndirectBinding struct {
	Target *DeclarativeEnvironment
	Name   string
}

// DeclarativeEnvironment is the runtime half of a CompileTimeEnvironment:
// a flat slot vector plus an outer pointer. ThisValue is present only
// for environments that establish their own `this` binding (function
// environments, module environments); HasThis distinguishes an absent
// binding from an uninitialized one (the derived-constructor TDZ case).
type DeclarativeEnvironment struct {
	outer    *DeclarativeEnvironment
	slots    []slot
	names    []string // parallel to slots, for ReferenceError messages and for-in of `with`-free scope dumps
	indirect map[string]IndirectBinding

	HasThis    bool
	ThisValue  value.Value
	ThisInited bool
}

// NewDeclarativeEnvironment allocates a runtime environment matching
// compileEnv's flat slot table, chained to outer.
func NewDeclarativeEnvironment(compileEnv *CompileTimeEnvironment, outer *DeclarativeEnvironment) *DeclarativeEnvironment {
	return NewDeclarativeEnvironmentFromSlots(compileEnv.SlotCount(), compileEnv.Names(), compileEnv.Mutability(), outer)
}

// NewDeclarativeEnvironmentFromSlots builds a runtime environment
// directly from a slot count, name list, and per-slot mutability,
// for callers (internal/vm) that only keep a compiled CodeBlock around
// at call time rather than the CompileTimeEnvironment it was compiled
// against.
func NewDeclarativeEnvironmentFromSlots(n int, names []string, mutable []bool, outer *DeclarativeEnvironment) *DeclarativeEnvironment {
	e := &DeclarativeEnvironment{outer: outer, slots: make([]slot, n), names: names}
	for i := range e.slots {
		if i < len(mutable) {
			e.slots[i].mutable = mutable[i]
		} else {
			e.slots[i].mutable = true
		}
	}
	return e
}

func (e *DeclarativeEnvironment) Outer() *DeclarativeEnvironment { return e.outer }

// Depth walks n outer links, as a compile-time-resolved (depth, index)
// locator requires.
func (e *DeclarativeEnvironment) Depth(n uint32) *DeclarativeEnvironment {
	cur := e
	for i := uint32(0); i < n && cur != nil; i++ {
		cur = cur.outer
	}
	return cur
}

// InitializeBinding gives slot its first value, clearing the TDZ.
func (e *DeclarativeEnvironment) InitializeBinding(index uint32, v value.Value) {
	e.slots[index].value = v
	e.slots[index].initialized = true
}

// GetBindingValue reads a slot, reporting the TDZ as an error rather
// than silently returning undefined (distinguishing "not yet
// initialized" from "legitimately undefined").
func (e *DeclarativeEnvironment) GetBindingValue(index uint32) (value.Value, error) {
	s := e.slots[index]
	if !s.initialized {
		return value.Undefined, errUninitialized
	}
	return s.value, nil
}

// SetMutableBinding writes a slot, honoring const/TDZ; strict decides
// whether writing an unresolvable (out of this environment's reach)
// binding is the caller's concern — this method only guards the local
// const/TDZ invariants, since unresolved-name handling spans the
// environment chain and belongs to the VM's identifier-reference
// resolution instead.
func (e *DeclarativeEnvironment) SetMutableBinding(index uint32, v value.Value) error {
	s := &e.slots[index]
	if !s.initialized {
		return errUninitialized
	}
	if !s.mutable {
		return errors.New("jsenv: assignment to constant binding")
	}
	s.value = v
	return nil
}

// DefineIndirectBinding installs a module environment's re-export
// binding, resolved at lookup time against Target instead of copied.
func (e *DeclarativeEnvironment) DefineIndirectBinding(name string, target *DeclarativeEnvironment, targetName string) {
	if e.indirect == nil {
		e.indirect = make(map[string]IndirectBinding)
	}
	e.indirect[name] = IndirectBinding{Target: target, Name: targetName}
}

// ResolveIndirect follows an indirect binding by name and reads the
// target binding's current value. Module namespace objects do not go
// through it: their ModuleNamespaceData.Resolve hook (internal/module's
// namespaceObject) reads the exporting module's Env by name.
func (e *DeclarativeEnvironment) ResolveIndirect(name string) (value.Value, bool) {
	ib, ok := e.indirect[name]
	if !ok {
		return value.Undefined, false
	}
	idx, _, _, found := ib.Target.compileIndexOf(ib.Name)
	if !found {
		return value.Undefined, false
	}
	v, err := ib.Target.GetBindingValue(idx)
	if err != nil {
		return value.Undefined, false
	}
	return v, true
}

// GetByName reads a binding by name directly in this environment
// (not walking outer), for callers that only have a runtime
// environment and a name to look up rather than a resolved slot index
// - module namespace objects resolving a local export name against the
// exporting module's own Env.
func (e *DeclarativeEnvironment) GetByName(name string) (value.Value, bool) {
	idx, _, _, found := e.compileIndexOf(name)
	if !found {
		return value.Undefined, false
	}
	v, err := e.GetBindingValue(idx)
	if err != nil {
		return value.Undefined, false
	}
	return v, true
}

// compileIndexOf is a small runtime-side convenience so ResolveIndirect
// doesn't need to carry the compile-time environment alongside every
// DeclarativeEnvironment; it does a linear scan of names, which is
// acceptable since indirect bindings are resolved rarely (module
// namespace property access) rather than on every identifier lookup.
func (e *DeclarativeEnvironment) compileIndexOf(name string) (uint32, uint32, BindingKind, bool) {
	for i, n := range e.names {
		if n == name {
			return uint32(i), 0, BindingVar, true
		}
	}
	return 0, 0, 0, false
}
