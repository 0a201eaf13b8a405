// Package realm implements the Realm & Intrinsics component (§3
// Realm): the per-realm global object, intrinsic prototype/constructor
// set, and well-known symbol table a script or module executes against.
//
// Grounded on other_examples/5579010c_nooga-paserati__pkg-vm-realm.go.go
// (a Go JS engine's Realm type) for the prototype-graph shape and the
// Get/SetGlobal accessor pattern, adapted onto this module's
// shape/object primitives instead of that engine's own Value/Heap.
package realm

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/strpool"
	"github.com/quartzjs/quartz/internal/value"
)

// Intrinsics holds the realm's built-in prototype and constructor
// objects, one field per %Name.prototype%/%Name% intrinsic the
// builtins packages populate during Bootstrap.
type Intrinsics struct {
	ObjectPrototype            *object.Object
	FunctionPrototype          *object.Object
	ArrayPrototype             *object.Object
	StringPrototype            *object.Object
	NumberPrototype            *object.Object
	BooleanPrototype           *object.Object
	BigIntPrototype            *object.Object
	SymbolPrototype            *object.Object
	ErrorPrototype             *object.Object
	TypeErrorPrototype         *object.Object
	RangeErrorPrototype        *object.Object
	ReferenceErrorPrototype    *object.Object
	SyntaxErrorPrototype       *object.Object
	EvalErrorPrototype         *object.Object
	URIErrorPrototype          *object.Object
	AggregateErrorPrototype    *object.Object
	RegExpPrototype            *object.Object
	DatePrototype              *object.Object
	MapPrototype               *object.Object
	SetPrototype               *object.Object
	WeakMapPrototype           *object.Object
	WeakSetPrototype           *object.Object
	PromisePrototype           *object.Object
	IteratorPrototype          *object.Object
	AsyncIteratorPrototype     *object.Object
	GeneratorPrototype         *object.Object
	AsyncGeneratorPrototype    *object.Object
	ArrayBufferPrototype       *object.Object
	SharedArrayBufferPrototype *object.Object
	DataViewPrototype          *object.Object
	TypedArrayPrototype        *object.Object
	ProxyPrototype             *object.Object // %Proxy% has no .prototype, kept nil; named for symmetry

	ObjectConstructor            *object.Object
	FunctionConstructor          *object.Object
	ArrayConstructor             *object.Object
	StringConstructor            *object.Object
	NumberConstructor            *object.Object
	BooleanConstructor           *object.Object
	BigIntConstructor            *object.Object
	SymbolConstructor            *object.Object
	ErrorConstructor             *object.Object
	RegExpConstructor            *object.Object
	DateConstructor              *object.Object
	MapConstructor               *object.Object
	SetConstructor               *object.Object
	WeakMapConstructor           *object.Object
	WeakSetConstructor           *object.Object
	PromiseConstructor           *object.Object
	ArrayBufferConstructor       *object.Object
	SharedArrayBufferConstructor *object.Object
	DataViewConstructor          *object.Object
	ProxyConstructor             *object.Object

	// ThrowTypeError is %ThrowTypeError%, the shared poisoned accessor
	// installed on arguments.callee/caller in strict-mode functions.
	ThrowTypeError *object.Object
}

// WellKnownSymbols is a fixed per-realm instantiation of the
// specification's well-known symbols (§3 Realm, §4.1 Symbol). Each
// realm gets distinct Symbol identities, matching SameValue's identity
// semantics; only their well-known *role* is shared.
type WellKnownSymbols struct {
	Iterator           *value.Symbol
	AsyncIterator      *value.Symbol
	ToPrimitive        *value.Symbol
	ToStringTag        *value.Symbol
	HasInstance        *value.Symbol
	IsConcatSpreadable *value.Symbol
	Species            *value.Symbol
	Match              *value.Symbol
	MatchAll           *value.Symbol
	Replace            *value.Symbol
	Search             *value.Symbol
	Split              *value.Symbol
	Unscopables        *value.Symbol
}

func newWellKnownSymbols() *WellKnownSymbols {
	sym := func(name string) *value.Symbol { return value.NewSymbol(strpool.FromString(name)) }
	return &WellKnownSymbols{
		Iterator:           sym("Symbol.iterator"),
		AsyncIterator:      sym("Symbol.asyncIterator"),
		ToPrimitive:        sym("Symbol.toPrimitive"),
		ToStringTag:        sym("Symbol.toStringTag"),
		HasInstance:        sym("Symbol.hasInstance"),
		IsConcatSpreadable: sym("Symbol.isConcatSpreadable"),
		Species:            sym("Symbol.species"),
		Match:              sym("Symbol.match"),
		MatchAll:           sym("Symbol.matchAll"),
		Replace:            sym("Symbol.replace"),
		Search:             sym("Symbol.search"),
		Split:              sym("Symbol.split"),
		Unscopables:        sym("Symbol.unscopables"),
	}
}

// Realm is one ECMAScript Realm Record: an intrinsics set, a global
// object/environment pair, well-known symbols, and the Symbol.for
// registry.
type Realm struct {
	ID uuid.UUID

	Intrinsics *Intrinsics
	Symbols    *WellKnownSymbols

	GlobalObject *object.Object

	symbolRegistry map[string]*value.Symbol

	// globalBindingNames tracks insertion order of global var/function
	// declarations for diagnostics and for-in enumeration stability
	// independent of the shape's own insertion-order guarantee, mirroring
	// the teacher realm's globalsFromGlobalObject bookkeeping.
	globalBindingNames []string

	bootstrapped bool
}

// New allocates a realm with an uninitialized global object; call
// Bootstrap (from the builtins packages, which know how to populate
// Intrinsics) before running any script against it.
func New() *Realm {
	return &Realm{
		ID:             uuid.New(),
		symbolRegistry: make(map[string]*value.Symbol),
		Symbols:        newWellKnownSymbols(),
	}
}

// InitGlobalObject creates the realm's global object with objectProto
// as its prototype and installs a GlobalData OnDefine hook that records
// each newly defined string-keyed global in the realm's
// globalBindingNames. No OnDelete hook is installed, so deleting a
// global leaves its name in that list.
func (r *Realm) InitGlobalObject(objectProto *object.Object) {
	gd := &object.GlobalData{}
	r.GlobalObject = object.New(objectProto, object.DataGlobal, gd, object.GlobalMethods)
	gd.OnDefine = func(key shape.Key) {
		if key.Kind() == shape.KeyString {
			r.globalBindingNames = append(r.globalBindingNames, key.String())
		}
	}
}

// MarkBootstrapped records that builtins installation has completed;
// subsequent Bootstrap calls are rejected to avoid double-installing
// intrinsics onto the same realm.
func (r *Realm) MarkBootstrapped() error {
	if r.bootstrapped {
		return errors.New("realm: already bootstrapped")
	}
	r.bootstrapped = true
	return nil
}

func (r *Realm) IsBootstrapped() bool { return r.bootstrapped }

// SymbolFor implements Symbol.for: returns the registered symbol for
// key, creating and registering one on first use (§3 Realm "global
// symbol registry").
func (r *Realm) SymbolFor(key string) *value.Symbol {
	if s, ok := r.symbolRegistry[key]; ok {
		return s
	}
	s := value.NewSymbol(strpool.FromString(key))
	r.symbolRegistry[key] = s
	return s
}

// KeyFor implements Symbol.keyFor: the inverse lookup over the
// registry, linear since the registry is expected to stay small.
func (r *Realm) KeyFor(s *value.Symbol) (string, bool) {
	for k, v := range r.symbolRegistry {
		if v == s {
			return k, true
		}
	}
	return "", false
}

// GetGlobal reads a global binding through the global object's
// [[HasProperty]] and [[Get]], so properties inherited from its
// prototype chain are found too; the bool is false when the name is
// absent or the read threw.
func (r *Realm) GetGlobal(it object.Interpreter, name string) (value.Value, bool, *object.Exception) {
	key := shape.StringKey(name)
	has, exc := r.GlobalObject.HasProperty(it, key)
	if exc != nil || !has {
		return value.Undefined, false, exc
	}
	v, exc := r.GlobalObject.Get(it, key, value.FromObject(r.GlobalObject))
	return v, exc == nil, exc
}

// DefineGlobal installs name as a non-configurable data property on
// the global object, the shape global function/var declarations take
// per CreateGlobalVarBinding/CreateGlobalFunctionBinding.
func (r *Realm) DefineGlobal(it object.Interpreter, name string, v value.Value, writable bool) *object.Exception {
	_, exc := r.GlobalObject.DefineOwnProperty(it, shape.StringKey(name), object.DataDescriptor(v, writable, true, false))
	return exc
}
