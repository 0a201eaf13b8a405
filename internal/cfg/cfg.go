// Package cfg implements §2 row 14's optional post-compile analysis: a
// read-only control-flow graph over one CodeBlock's basic blocks, used
// for a dead-code/unreachable-block simplification pass. It never runs
// by default (the VM always executes a CodeBlock's flat bytecode
// directly) - an embedder opts in by calling Build explicitly, e.g.
// from a bundler-style tool that wants to report unreachable branches.
//
// Grounded on the original_source optimizer's
// optimizer/control_flow_graph/mod.rs: leader-based basic-block
// splitting, a Terminator per block, and two simplification passes
// (branch-to-self collapsing, unreachable-block elimination), adapted
// from that Rc<RefCell<_>>-linked graph to plain Go slices and pointers
// since nothing here needs to survive a bytecode-level GC.
package cfg

import (
	"fmt"
	"strings"

	"github.com/quartzjs/quartz/internal/compiler"
)

// Instruction is one decoded opcode at a bytecode offset, with its
// operands already pulled out of the flat stream.
type Instruction struct {
	PC       uint32
	Op       compiler.Op
	Operands []uint32
}

// Decode reads the instruction at pc and returns it along with the
// offset of the next one, using compiler.OperandWidth so this walker
// never needs updating when a new opcode with a familiar operand shape
// is added.
func Decode(code []byte, pc uint32) (Instruction, uint32) {
	op := compiler.Op(code[pc])
	inst := Instruction{PC: pc, Op: op}
	next := pc + 1
	switch compiler.OperandWidth(op) {
	case 1:
		inst.Operands = []uint32{uint32(code[next])}
		next++
	case 4:
		inst.Operands = []uint32{readU32(code, next)}
		next += 4
	case 8:
		inst.Operands = []uint32{readU32(code, next), readU32(code, next+4)}
		next += 8
	}
	return inst, next
}

func readU32(code []byte, pc uint32) uint32 {
	b := code[pc : pc+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// jumpTarget reports the absolute pc a jump-kind instruction branches
// to. conditional is true for instructions that pop a value and may
// instead fall through to the next instruction (§4.7's OpJumpIfFalse
// family and OpCaseEq); OpJump/OpDefault always take the branch.
func jumpTarget(inst Instruction) (target uint32, isJump, conditional bool) {
	switch inst.Op {
	case compiler.OpJump, compiler.OpDefault:
		return inst.Operands[0], true, false
	case compiler.OpJumpIfFalse, compiler.OpJumpIfTrue, compiler.OpJumpIfNullish, compiler.OpJumpIfUndefined, compiler.OpCaseEq:
		return inst.Operands[0], true, true
	default:
		return 0, false, false
	}
}

// TerminatorKind classifies how a BasicBlock ends.
type TerminatorKind uint8

const (
	TermNone TerminatorKind = iota
	TermJump
	TermBranch
	TermReturn
)

// Terminator describes a BasicBlock's exit edges.
type Terminator struct {
	Kind        TerminatorKind
	Target      *BasicBlock // TermJump, or TermBranch's taken side
	Fallthrough *BasicBlock // TermBranch's not-taken side only
}

// BasicBlock is a maximal straight-line run of instructions: control
// only ever enters at Start and leaves at the Terminator (or an
// exception transfer to Handler).
type BasicBlock struct {
	Index        int
	Start, End   uint32 // [Start, End) byte range in the owning CodeBlock's Code
	Instructions []Instruction
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
	Handler      *BasicBlock
	Terminator   Terminator
	Reachable    bool
}

// Graph is the control-flow graph of one CodeBlock, in leader order;
// Blocks[0] is always the entry block.
type Graph struct {
	CodeBlock *compiler.CodeBlock
	Blocks    []*BasicBlock
}

// leaders computes every bytecode offset that starts a new basic
// block: offset 0, every handler's try-start and handler pc, and both
// sides of every jump (the target and the instruction immediately
// following the jump).
func leaders(cb *compiler.CodeBlock) []uint32 {
	set := map[uint32]bool{0: true}
	for _, h := range cb.Handlers {
		set[h.TryStart] = true
		set[h.HandlerPC] = true
	}
	pc := uint32(0)
	for pc < uint32(len(cb.Code)) {
		inst, next := Decode(cb.Code, pc)
		if target, isJump, _ := jumpTarget(inst); isJump {
			set[target] = true
			set[next] = true
		} else if inst.Op == compiler.OpReturn {
			set[next] = true
		}
		pc = next
	}
	out := make([]uint32, 0, len(set))
	for pc := range set {
		if pc < uint32(len(cb.Code)) {
			out = append(out, pc)
		}
	}
	sortU32(out)
	return out
}

func sortU32(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Build splits cb's bytecode into basic blocks and links them into a
// Graph. It's a pure read of cb - no VM, no realm, safe to call from
// any goroutine and safe to call concurrently on distinct CodeBlocks
// (see BuildAndVerifyAll).
func Build(cb *compiler.CodeBlock) *Graph {
	ls := leaders(cb)
	blocks := make([]*BasicBlock, len(ls))
	for i, l := range ls {
		end := uint32(len(cb.Code))
		if i+1 < len(ls) {
			end = ls[i+1]
		}
		blocks[i] = &BasicBlock{Index: i, Start: l, End: end}
	}

	blockAt := func(pc uint32) *BasicBlock {
		lo, hi := 0, len(ls)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if ls[mid] <= pc {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return blocks[lo]
	}

	for i, b := range blocks {
		pc := b.Start
		for pc < b.End {
			inst, next := Decode(cb.Code, pc)
			b.Instructions = append(b.Instructions, inst)
			if target, isJump, conditional := jumpTarget(inst); isJump {
				tb := blockAt(target)
				link(b, tb)
				if conditional {
					fb := blockAt(next)
					link(b, fb)
					b.Terminator = Terminator{Kind: TermBranch, Target: tb, Fallthrough: fb}
				} else {
					b.Terminator = Terminator{Kind: TermJump, Target: tb}
				}
				break
			}
			if inst.Op == compiler.OpReturn {
				b.Terminator = Terminator{Kind: TermReturn}
				break
			}
			pc = next
		}
		if b.Terminator.Kind == TermNone && i+1 < len(blocks) {
			link(b, blocks[i+1])
		}
	}

	for _, b := range blocks {
		for i := len(cb.Handlers) - 1; i >= 0; i-- {
			h := cb.Handlers[i]
			if b.Start >= h.TryStart && b.Start < h.TryEnd {
				b.Handler = blockAt(h.HandlerPC)
				break
			}
		}
	}

	g := &Graph{CodeBlock: cb, Blocks: blocks}
	markReachable(g)
	return g
}

func link(from, to *BasicBlock) {
	from.Successors = append(from.Successors, to)
	to.Predecessors = append(to.Predecessors, from)
}

func markReachable(g *Graph) {
	for _, b := range g.Blocks {
		b.Reachable = false
	}
	if len(g.Blocks) == 0 {
		return
	}
	stack := []*BasicBlock{g.Blocks[0]}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b.Reachable {
			continue
		}
		b.Reachable = true
		stack = append(stack, b.Successors...)
		if b.Handler != nil {
			stack = append(stack, b.Handler)
		}
	}
}

// Simplify rewrites a conditional branch whose taken and not-taken
// sides are the same block into an unconditional jump - the shape a
// compiled `if (x) {} else {}` with both arms empty leaves behind.
// Reports whether it changed anything.
func Simplify(g *Graph) bool {
	changed := false
	for _, b := range g.Blocks {
		if b.Terminator.Kind == TermBranch && b.Terminator.Target == b.Terminator.Fallthrough {
			b.Terminator = Terminator{Kind: TermJump, Target: b.Terminator.Target}
			changed = true
		}
	}
	return changed
}

// EliminateUnreachable drops every block not reachable from the entry
// block by a successor or handler edge, unlinking it from any
// predecessor that still points at it. Reports whether it removed
// anything.
func EliminateUnreachable(g *Graph) bool {
	markReachable(g)
	kept := g.Blocks[:0:0]
	changed := false
	for _, b := range g.Blocks {
		if b.Reachable {
			kept = append(kept, b)
			continue
		}
		changed = true
		for _, s := range b.Successors {
			s.Predecessors = removeBlock(s.Predecessors, b)
		}
	}
	g.Blocks = kept
	return changed
}

func removeBlock(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	out := list[:0:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

// String renders the graph as an indented block listing, matching the
// original optimizer's debug dump closely enough to be useful for
// embedders inspecting a CodeBlock offline.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BasicBlocks (%s):\n", g.CodeBlock.Name)
	index := make(map[*BasicBlock]int, len(g.Blocks))
	for i, b := range g.Blocks {
		index[b] = i
	}
	for i, b := range g.Blocks {
		reach := "reachable"
		if !b.Reachable {
			reach = "not reachable"
		}
		fmt.Fprintf(&sb, "    B%d: -- %s", i, reach)
		if len(b.Predecessors) > 0 {
			sb.WriteString(" -- predecessors ")
			for _, p := range b.Predecessors {
				fmt.Fprintf(&sb, "B%d, ", index[p])
			}
		}
		if len(b.Successors) > 0 {
			sb.WriteString(" -- successors ")
			for _, s := range b.Successors {
				fmt.Fprintf(&sb, "B%d, ", index[s])
			}
		}
		if b.Handler != nil {
			fmt.Fprintf(&sb, " -- handler B%d", index[b.Handler])
		}
		sb.WriteByte('\n')
		for _, inst := range b.Instructions {
			fmt.Fprintf(&sb, "        %06d      %s\n", inst.PC, inst.Op)
		}
		switch b.Terminator.Kind {
		case TermJump:
			fmt.Fprintf(&sb, "        Terminator: Jump B%d\n", index[b.Terminator.Target])
		case TermBranch:
			fmt.Fprintf(&sb, "        Terminator: Branch B%d else B%d\n", index[b.Terminator.Target], index[b.Terminator.Fallthrough])
		case TermReturn:
			sb.WriteString("        Terminator: Return\n")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
