// Package compiler implements the bytecode compiler component (§4.7):
// a second pass over the AST that lowers a Program or function body to
// a flat instruction stream held by a CodeBlock, threading a compile-time
// environment chain (internal/jsenv) for binding resolution, a forward
// jump patch list, and a per-try handler table.
//
// No bytecode-compiler file survived the original_source retrieval
// filter (boa_engine/src/bytecompiler is not present in the pack), so
// opcode shape and emission style are grounded on spec.md §4.7's
// instruction categories directly, written in the teacher's
// byte-buffer-with-patch-positions style (internal/js_printer.go builds
// output the same way: write bytes to a growable buffer, remember an
// offset, patch it once the real value is known).
package compiler

// Op is a single bytecode instruction's opcode byte. Operands, when
// present, follow the opcode: a u8 for small indices, a u32 LE for
// jump targets and constant-pool indices (per §6 "Bytecode format").
type Op uint8

const (
	OpNop Op = iota

	// Stack manipulation.
	OpPushConst // u32 constant index
	OpPushUndefined
	OpPushNull
	OpPushTrue
	OpPushFalse
	OpPop
	OpDup
	OpSwap

	// Arithmetic / comparison. The VM's integer fast path deopts to the
	// float path on overflow (§4.8); both share one opcode per operator
	// and branch on the popped operands' runtime Kind.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpNeg
	OpPlus // unary +
	OpNot
	OpBitNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpEq
	OpNotEq
	OpStrictEq
	OpStrictNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpInstanceOf
	OpIn
	OpTypeOf

	// Property access. Get* pops [obj] (plus [key] for the Computed
	// variant, key on top) and pushes the result. Set* pops [value, obj]
	// (plus [key] on top for the Computed variant) and pushes value
	// back, so a chained assignment `a.x = b.y = 1` reads the stored
	// value without re-reading the property. OpSetLocal/OpSetGlobal
	// follow the same rule: pop the value, store it, push it back.
	OpGetProp // u32 constant index (property name, string constant)
	OpSetProp // u32 constant index
	OpGetPropComputed
	OpSetPropComputed
	OpGetPrivate // u32 constant index (private name)
	OpSetPrivate // u32 constant index
	OpDeleteProp
	OpDeletePropComputed

	// Environment access, by compile-time locator (depth, index).
	OpGetLocal  // u32 depth, u32 index
	OpSetLocal  // u32 depth, u32 index
	OpInitLocal // u32 depth, u32 index - clears TDZ
	OpGetGlobal // u32 constant index (name)
	OpSetGlobal // u32 constant index (name)
	OpTypeOfGlobal

	// Control flow.
	OpJump        // u32 target pc
	OpJumpIfFalse // u32 target pc, pops
	OpJumpIfTrue  // u32 target pc, pops
	OpJumpIfNullish
	OpJumpIfUndefined // u32 target pc, pops; used for destructuring/parameter defaults (undefined only, not null)
	OpCaseEq          // u32 target pc: pop the test value, compare strict-eq with the discriminant beneath it, jump if equal, leaves discriminant
	OpDefault         // u32 target pc: unconditional, paired with switch dispatch's fallthrough

	// Call / construct / tail-call. Calling convention: the stack holds
	// [..., callee, thisArg, arg0, ..., argN-1] with argc = N; the
	// result replaces all of it with one return value.
	OpCall      // u8 argc
	OpCallOpt   // u8 argc, optional-chain short-circuit on nullish callee
	OpConstruct // u8 argc; stack holds [..., callee, arg0, ..., argN-1] (no thisArg slot)
	OpTailCall  // u8 argc
	OpSpreadCall

	// Creation.
	OpMakeFunction // u32 index into CodeBlock.Funcs (nested CodeBlock)
	OpMakeArrow    // u32 index into CodeBlock.Funcs
	OpMakeClass    // u32 index into CodeBlock.Classes
	OpMakeArray    // u32 element count: pops that many values, builds an array
	// OpArrayAppend/OpArrayAppendSpread grow an array literal that
	// contains a spread element, built incrementally instead of in one
	// pop-N shot: stack holds [..., arr, value] (or [..., arr, iterable]
	// for the spread variant); each pops just the top item, appends it
	// (or its iterated elements) to arr, and leaves arr on the stack for
	// the next element.
	OpArrayAppend
	OpArrayAppendSpread
	// OpMakeObject pushes a fresh empty object (the u32 operand is an
	// unused capacity hint). OpDefineProp/OpSpreadProps then populate it
	// incrementally: stack holds [..., obj, key, value] (resp.
	// [..., obj, source]); each pops everything above obj and leaves obj
	// on the stack, the same "stays put while consumed" shape
	// OpArrayAppend uses.
	OpMakeObject // u32 capacity hint
	OpDefineProp
	OpSpreadProps
	OpMakeRegExp   // u32 constant index (pattern+flags constant)
	OpMakeTemplate // u32 constant index (quasis), u32 expression count

	// Iteration.
	OpGetIterator
	OpGetAsyncIterator
	OpIteratorNext // peeks the iterator at the stack top (leaving it there), pushes {value, done} unpacked: value then done-bool
	OpIteratorClose
	OpIteratorRest // pops an iterator, drains it to completion into a new array, pushes the array (array-pattern `...rest`)
	OpYield        // suspend, u8 flag: 1 = delegate (yield*)
	OpAwait        // suspend on promise

	// Exception handling.
	OpThrow
	OpReThrow
	OpPushHandler // u32 handler index into CodeBlock.Handlers
	OpPopHandler
	OpReturnFromHandler

	// Misc.
	OpTemplateLookup // u64 site id; the VM consumes it and pushes undefined (no template object cache)
	OpReturn
	OpGetThis
	OpGetNewTarget
	OpGetSuperBase        // home object's own prototype, for super.prop access
	OpGetSuperConstructor // derived constructor's [[Prototype]], the callee for super(...)
)

// operandWidths records how many operand bytes follow each opcode so
// generic bytecode walkers (the disassembler, internal/cfg's
// basic-block splitter) can skip instructions without per-opcode
// special-casing every call site.
var operandWidths = map[Op]int{
	OpPushConst: 4, OpGetProp: 4, OpSetProp: 4, OpDeleteProp: 4, OpGetPrivate: 4, OpSetPrivate: 4,
	OpGetLocal: 8, OpSetLocal: 8, OpInitLocal: 8,
	OpGetGlobal: 4, OpSetGlobal: 4, OpTypeOfGlobal: 4,
	OpJump: 4, OpJumpIfFalse: 4, OpJumpIfTrue: 4, OpJumpIfNullish: 4, OpJumpIfUndefined: 4,
	OpCaseEq: 4, OpDefault: 4,
	OpCall: 1, OpCallOpt: 1, OpConstruct: 1, OpTailCall: 1,
	OpMakeFunction: 4, OpMakeArrow: 4, OpMakeClass: 4, OpMakeArray: 4,
	OpMakeObject: 4, OpMakeRegExp: 4, OpMakeTemplate: 8, OpSpreadCall: 1,
	OpYield:          1,
	OpPushHandler:    4,
	OpTemplateLookup: 8,
}

// OperandWidth returns the number of operand bytes following op, 0 for
// a bare opcode.
func OperandWidth(op Op) int { return operandWidths[op] }

// opNames backs Op.String, used by the disassembler and internal/cfg's
// basic-block dump so a trace reads as mnemonics instead of byte values.
var opNames = map[Op]string{
	OpNop:                 "Nop",
	OpPushConst:           "PushConst",
	OpPushUndefined:       "PushUndefined",
	OpPushNull:            "PushNull",
	OpPushTrue:            "PushTrue",
	OpPushFalse:           "PushFalse",
	OpPop:                 "Pop",
	OpDup:                 "Dup",
	OpSwap:                "Swap",
	OpAdd:                 "Add",
	OpSub:                 "Sub",
	OpMul:                 "Mul",
	OpDiv:                 "Div",
	OpMod:                 "Mod",
	OpExp:                 "Exp",
	OpNeg:                 "Neg",
	OpPlus:                "Plus",
	OpNot:                 "Not",
	OpBitNot:              "BitNot",
	OpBitAnd:              "BitAnd",
	OpBitOr:               "BitOr",
	OpBitXor:              "BitXor",
	OpShl:                 "Shl",
	OpShr:                 "Shr",
	OpUShr:                "UShr",
	OpEq:                  "Eq",
	OpNotEq:               "NotEq",
	OpStrictEq:            "StrictEq",
	OpStrictNotEq:         "StrictNotEq",
	OpLt:                  "Lt",
	OpLte:                 "Lte",
	OpGt:                  "Gt",
	OpGte:                 "Gte",
	OpInstanceOf:          "InstanceOf",
	OpIn:                  "In",
	OpTypeOf:              "TypeOf",
	OpGetProp:             "GetProp",
	OpSetProp:             "SetProp",
	OpGetPropComputed:     "GetPropComputed",
	OpSetPropComputed:     "SetPropComputed",
	OpGetPrivate:          "GetPrivate",
	OpSetPrivate:          "SetPrivate",
	OpDeleteProp:          "DeleteProp",
	OpDeletePropComputed:  "DeletePropComputed",
	OpGetLocal:            "GetLocal",
	OpSetLocal:            "SetLocal",
	OpInitLocal:           "InitLocal",
	OpGetGlobal:           "GetGlobal",
	OpSetGlobal:           "SetGlobal",
	OpTypeOfGlobal:        "TypeOfGlobal",
	OpJump:                "Jump",
	OpJumpIfFalse:         "JumpIfFalse",
	OpJumpIfTrue:          "JumpIfTrue",
	OpJumpIfNullish:       "JumpIfNullish",
	OpJumpIfUndefined:     "JumpIfUndefined",
	OpCaseEq:              "CaseEq",
	OpDefault:             "Default",
	OpCall:                "Call",
	OpCallOpt:             "CallOpt",
	OpConstruct:           "Construct",
	OpTailCall:            "TailCall",
	OpSpreadCall:          "SpreadCall",
	OpMakeFunction:        "MakeFunction",
	OpMakeArrow:           "MakeArrow",
	OpMakeClass:           "MakeClass",
	OpMakeArray:           "MakeArray",
	OpArrayAppend:         "ArrayAppend",
	OpArrayAppendSpread:   "ArrayAppendSpread",
	OpMakeObject:          "MakeObject",
	OpDefineProp:          "DefineProp",
	OpSpreadProps:         "SpreadProps",
	OpMakeRegExp:          "MakeRegExp",
	OpMakeTemplate:        "MakeTemplate",
	OpGetIterator:         "GetIterator",
	OpGetAsyncIterator:    "GetAsyncIterator",
	OpIteratorNext:        "IteratorNext",
	OpIteratorClose:       "IteratorClose",
	OpIteratorRest:        "IteratorRest",
	OpYield:               "Yield",
	OpAwait:               "Await",
	OpThrow:               "Throw",
	OpReThrow:             "ReThrow",
	OpPushHandler:         "PushHandler",
	OpPopHandler:          "PopHandler",
	OpReturnFromHandler:   "ReturnFromHandler",
	OpTemplateLookup:      "TemplateLookup",
	OpReturn:              "Return",
	OpGetThis:             "GetThis",
	OpGetNewTarget:        "GetNewTarget",
	OpGetSuperBase:        "GetSuperBase",
	OpGetSuperConstructor: "GetSuperConstructor",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "Unknown"
}
