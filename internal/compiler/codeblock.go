package compiler

import (
	"github.com/quartzjs/quartz/internal/lexer"
	"github.com/quartzjs/quartz/internal/value"
)

// Handler is one exception-handler table entry (§3 CodeBlock,
// §4.7): the try region's pc bounds and the state the VM must unwind
// the operand stack and environment chain to before transferring
// control to handlerPC.
type Handler struct {
	TryStart   uint32
	TryEnd     uint32
	HandlerPC  uint32
	EnvDepth   uint32
	StackDepth uint32
	// IsFinally marks a handler installed purely to run a finally block
	// on unwind, per §4.8 "finally is implemented by chaining handlers".
	IsFinally bool
}

// Param describes one formal parameter's compile-time binding slot and
// default-value/rest status, enough for the VM to destructure incoming
// arguments into the function's local environment on entry.
type Param struct {
	Name         string
	Index        uint32
	HasDefault   bool
	DefaultConst uint32 // constant-pool index of a pre-compiled default initializer CodeBlock, if HasDefault
	Rest         bool
	Pattern      bool // true when Name is a synthetic placeholder and a destructuring pattern must run
}

// CodeBlock is the immutable compiled unit described by §3: a flat
// bytecode stream, a handler table, a constant pool, a parameter list,
// source-location metadata, and strict/generator/async/arrow/module
// flags.
type CodeBlock struct {
	Name      string
	Code      []byte
	Handlers  []Handler
	Constants []value.Value

	// Funcs holds nested CodeBlocks referenced by OpMakeFunction/
	// OpMakeArrow; kept in a slice of their own (rather than folded
	// into value.Value, which has no CodeBlock variant) so the VM can
	// look a nested unit up by the Funcs index (AddFunc) the compiler
	// emitted as the operand.
	Funcs []*CodeBlock

	// Classes holds ClassInfo member tables referenced by OpMakeClass,
	// parallel to Funcs for the same reason: value.Value has no variant
	// for either.
	Classes []*ClassInfo

	Params    []Param
	NumLocals int // slot count for the function/script/module top-level environment

	// LocalNames/LocalMutable mirror jsenv.CompileTimeEnvironment.Names()
	// and .Mutability() for the top-level scope this CodeBlock compiles,
	// so the VM can rebuild a matching DeclarativeEnvironment from the
	// CodeBlock alone at call time.
	LocalNames   []string
	LocalMutable []bool

	Locations []lexer.Position // parallel best-effort pc->source map, sparse

	Strict    bool
	Generator bool
	Async     bool
	Arrow     bool
	Module    bool

	// SourceName is the file/module name for diagnostics and stack
	// traces (§7 "stack" property).
	SourceName string
}

// AddConstant interns v into the constant pool, returning its index.
// Constants are not deduplicated by value identity (matching the
// conservative approach most bytecode compilers take for mutable
// object constants like nested CodeBlocks).
func (cb *CodeBlock) AddConstant(v value.Value) uint32 {
	cb.Constants = append(cb.Constants, v)
	return uint32(len(cb.Constants) - 1)
}

// AddFunc interns a nested CodeBlock, returning the index used by both
// cb.Funcs and the corresponding OpMakeFunction/OpMakeArrow operand.
func (cb *CodeBlock) AddFunc(child *CodeBlock) uint32 {
	cb.Funcs = append(cb.Funcs, child)
	return uint32(len(cb.Funcs) - 1)
}

// ClassMemberInfo describes one class element: a method, accessor, or
// field, resolved to a nested CodeBlock (for methods/accessors/computed
// field initializers) by index into the owning CodeBlock's Funcs.
type ClassMemberInfo struct {
	Kind         classMemberKind
	Static       bool
	Computed     bool
	StaticKey    string // valid when !Computed
	KeyFuncIndex uint32 // valid when Computed: a thunk CodeBlock evaluating the key
	FuncIndex    uint32 // method/accessor/field-initializer CodeBlock index
	HasFunc      bool   // false for a field with no initializer
}

type classMemberKind uint8

const (
	ClassMethod classMemberKind = iota
	ClassGetter
	ClassSetter
	ClassField
)

// ClassInfo is the constant-pool payload for OpMakeClass: the member
// table a class expression compiles to, looked up in parallel to
// Constants the same way Funcs is.
type ClassInfo struct {
	Name     string
	HasSuper bool
	Members  []ClassMemberInfo
}

// AddClass interns a ClassInfo, returning the index used by the
// corresponding OpMakeClass operand.
func (cb *CodeBlock) AddClass(info *ClassInfo) uint32 {
	cb.Classes = append(cb.Classes, info)
	return uint32(len(cb.Classes) - 1)
}
