// Package object implements the polymorphic heap Object: a shape
// reference, indexed property storage, a typed data slot, and an
// internal-methods vtable, per §3 Object and §4.4.
//
// Grounded on boa_engine/src/object/internal_methods/{global,integer_indexed}.rs
// and jsproxy.rs (original_source) for the exotic overrides, and on
// internal/shape (this module) for the hidden-class machinery objects
// are built on.
package object

import (
	"sort"

	"github.com/quartzjs/quartz/internal/gc"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// DataKind tags which variant of typed payload an Object carries.
type DataKind uint8

const (
	DataOrdinary DataKind = iota
	DataArray
	DataString
	DataBoolean
	DataNumber
	DataFunction
	DataArguments
	DataBoundFunction
	DataArrayBuffer
	DataSharedArrayBuffer
	DataDataView
	DataTypedArray
	DataMap
	DataSet
	DataWeakMap
	DataWeakSet
	DataPromise
	DataProxy
	DataRegExp
	DataError
	DataDate
	DataGenerator
	DataAsyncGenerator
	DataAsyncFromSyncIterator
	DataModuleNamespace
	DataGlobal
	DataForInIterator
	DataIterator
	DataTemplateLiteralCache
	DataSymbol
	DataBigInt
)

var dataKindNames = map[DataKind]string{
	DataOrdinary: "Object", DataArray: "Array", DataString: "String",
	DataBoolean: "Boolean", DataNumber: "Number", DataFunction: "Function",
	DataArguments: "Arguments", DataBoundFunction: "Function",
	DataArrayBuffer: "ArrayBuffer", DataSharedArrayBuffer: "SharedArrayBuffer",
	DataDataView: "DataView", DataTypedArray: "TypedArray", DataMap: "Map",
	DataSet: "Set", DataWeakMap: "WeakMap", DataWeakSet: "WeakSet",
	DataPromise: "Promise", DataProxy: "Object", DataRegExp: "RegExp",
	DataError: "Error", DataDate: "Date", DataGenerator: "Generator",
	DataAsyncGenerator: "AsyncGenerator", DataAsyncFromSyncIterator: "AsyncFromSyncIterator",
	DataModuleNamespace: "Module", DataGlobal: "global", DataForInIterator: "ForInIterator",
	DataIterator: "Iterator", DataTemplateLiteralCache: "TemplateObject",
	DataSymbol: "Symbol", DataBigInt: "BigInt",
}

func (k DataKind) String() string {
	if s, ok := dataKindNames[k]; ok {
		return s
	}
	return "Object"
}

// Data is the typed payload an Object's DataKind selects. Concrete
// builtin packages define the structs satisfying this (e.g.
// builtins.AsyncFromSyncIteratorData); it is intentionally an empty interface
// here because internal/object cannot import the builtins that define
// these payloads without creating an import cycle.
type Data interface{}

// state is the mutable half of an Object, always accessed through the
// object's Cell — this is the "GC cell" the data model requires all
// object state to flow through.
//
// The data model describes property storage as "an indexed array of
// property storage slots matching the shape's property table". Shapes
// hand out a storage index per key for exactly this purpose; this
// object keys its storage map by PropertyKey directly instead of by
// that raw index. The index is still what two sibling shapes agree on
// (so a transition insert/remove is O(1) shape-side bookkeeping), but
// keying the object's own storage by key rather than index sidesteps
// having to re-pack the array on every rollback-driven reindex, which
// the shape's rollback protocol triggers on any accessor/data kind
// flip or property deletion (§4.3).
type state struct {
	shape      *shape.Shape
	slots      map[shape.Key]value.Value
	accessors  map[shape.Key][2]value.Objecter // [0]=getter [1]=setter, either may be nil
	extensible bool
	dataKind   DataKind
	data       Data
}

// Object is the heap cell described by §3 Object.
type Object struct {
	cell    *gc.Cell[state]
	methods InternalMethods
}

// New creates an object bound to prototype, data, and an initial
// (empty) shape, with its vtable selected by methods. Binding
// prototype + data + shape simultaneously is the only supported
// construction path, per the Object Lifecycle note.
func New(prototype Prototype, kind DataKind, data Data, methods InternalMethods) *Object {
	o := &Object{methods: methods}
	o.cell = gc.NewCell(state{
		shape:      shape.RootShape(protoAsShapeProto(prototype)),
		slots:      make(map[shape.Key]value.Value),
		accessors:  make(map[shape.Key][2]value.Objecter),
		extensible: true,
		dataKind:   kind,
		data:       data,
	})
	return o
}

// Prototype is satisfied by *Object itself (see ShapeIdentity below);
// kept as a named type so call sites read naturally.
type Prototype = shape.Prototype

func protoAsShapeProto(p Prototype) shape.Prototype { return p }

// ShapeIdentity implements shape.Prototype so *Object can serve as a
// prototype value directly (the prototype-transition cache keys off
// this identity).
func (o *Object) ShapeIdentity() uintptr {
	return uintptr(unsafePointer(o))
}

func (o *Object) Methods() InternalMethods { return o.methods }

func (o *Object) DataKindOf() DataKind {
	r, _ := o.cell.Borrow()
	defer r.Release()
	return r.Get().dataKind
}

func (o *Object) Data() Data {
	r, _ := o.cell.Borrow()
	defer r.Release()
	return r.Get().data
}

func (o *Object) SetData(d Data) {
	w, _ := o.cell.BorrowMut()
	defer w.Release()
	w.Get().data = d
}

// ClassName / IsCallable / IsConstructor implement value.Objecter.
func (o *Object) ClassName() string {
	return o.DataKindOf().String()
}

func (o *Object) IsCallable() bool    { return o.methods.Call != nil }
func (o *Object) IsConstructor() bool { return o.methods.Construct != nil }

// Shape returns the object's current hidden class.
func (o *Object) Shape() *shape.Shape {
	r, _ := o.cell.Borrow()
	defer r.Release()
	return r.Get().shape
}

func (o *Object) IsExtensibleFlag() bool {
	r, _ := o.cell.Borrow()
	defer r.Release()
	return r.Get().extensible
}

func (o *Object) SetExtensibleFlag(v bool) {
	w, _ := o.cell.BorrowMut()
	defer w.Release()
	w.Get().extensible = v
}

// slotValue/setSlotValue read and write the storage keyed by
// PropertyKey (see the state.slots doc comment above).

func (o *Object) slotValue(key shape.Key) value.Value {
	r, _ := o.cell.Borrow()
	defer r.Release()
	return r.Get().slots[key]
}

func (o *Object) setSlotValue(key shape.Key, v value.Value) {
	w, _ := o.cell.BorrowMut()
	defer w.Release()
	w.Get().slots[key] = v
}

func (o *Object) accessorPair(key shape.Key) (value.Objecter, value.Objecter) {
	r, _ := o.cell.Borrow()
	defer r.Release()
	p := r.Get().accessors[key]
	return p[0], p[1]
}

func (o *Object) setAccessorPair(key shape.Key, get, set value.Objecter) {
	w, _ := o.cell.BorrowMut()
	defer w.Release()
	w.Get().accessors[key] = [2]value.Objecter{get, set}
}

// transitionShape applies f to the current shape under a single write
// borrow, then lets the caller install the associated storage via
// onInsert (invoked with direct access to the locked state, so it must
// not re-enter the cell), keeping both maps consistent with the shape
// transition in one critical section.
func (o *Object) transitionShape(f func(*shape.Shape) shape.ChangeTransition, key shape.Key, onInsert func(s *state)) shape.ChangeTransitionAction {
	w, _ := o.cell.BorrowMut()
	defer w.Release()
	s := w.Get()
	result := f(s.shape)
	s.shape = result.Shape
	switch result.Action {
	case shape.ActionInsertSlot:
		if onInsert != nil {
			onInsert(s)
		}
	case shape.ActionRemoveSlot:
		delete(s.slots, key)
		delete(s.accessors, key)
	}
	return result.Action
}

// Trace implements gc.Traceable: an object's outgoing references are
// its slot values (for any that hold an object/bigint-free Value) and
// its data payload, if that payload itself implements gc.Traceable.
func (o *Object) Trace(visit func(gc.Traceable)) {
	r, _ := o.cell.Borrow()
	defer r.Release()
	s := r.Get()
	for _, v := range s.slots {
		if v.IsObject() {
			if t, ok := v.AsObject().(gc.Traceable); ok {
				visit(t)
			}
		}
	}
	if t, ok := s.data.(gc.Traceable); ok {
		visit(t)
	}
	if proto, ok := s.shape.Prototype().(gc.Traceable); ok {
		visit(proto)
	}
}

// sortedOwnKeys orders keys per OrdinaryOwnPropertyKeys: ascending
// integer indices first, then strings in insertion order, then
// symbols in insertion order.
func sortedOwnKeys(keys []shape.Key) []shape.Key {
	var indices, strs, syms []shape.Key
	for _, k := range keys {
		switch k.Kind() {
		case shape.KeyIndex:
			indices = append(indices, k)
		case shape.KeyString:
			strs = append(strs, k)
		default:
			syms = append(syms, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i].Index() < indices[j].Index() })
	out := make([]shape.Key, 0, len(keys))
	out = append(out, indices...)
	out = append(out, strs...)
	out = append(out, syms...)
	return out
}

func unsafePointer(o *Object) uintptr {
	return objPtrTable.id(o)
}

// objPtrTable hands out a stable uintptr identity per *Object without
// resorting to unsafe.Pointer, so ShapeIdentity stays usable as a Go
// map key inside the shape package's prototype-transition cache.
var objPtrTable = newIdentityTable()

type identityTable struct {
	ids  map[*Object]uintptr
	next uintptr
}

func newIdentityTable() *identityTable {
	return &identityTable{ids: make(map[*Object]uintptr)}
}

func (t *identityTable) id(o *Object) uintptr {
	if id, ok := t.ids[o]; ok {
		return id
	}
	t.next++
	t.ids[o] = t.next
	return t.next
}
