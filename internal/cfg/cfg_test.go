package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/diag"
	"github.com/quartzjs/quartz/internal/parser"
)

func compileScript(t *testing.T, src string) *compiler.CodeBlock {
	t.Helper()
	p := parser.New([]byte(src), diag.NewLog())
	prog, err := p.ParseScript()
	require.NoError(t, err)
	cb, err := compiler.CompileScript(prog, "test.js")
	require.NoError(t, err)
	return cb
}

func TestBuildSplitsIfElseIntoBranchingBlocks(t *testing.T) {
	cb := compileScript(t, `let x = 1; if (x) { x = 2; } else { x = 3; }`)
	g := Build(cb)
	require.NoError(t, Verify(g))
	require.True(t, g.Blocks[0].Reachable)

	var branches int
	for _, b := range g.Blocks {
		if b.Terminator.Kind == TermBranch {
			branches++
			require.NotNil(t, b.Terminator.Target)
			require.NotNil(t, b.Terminator.Fallthrough)
		}
	}
	require.Equal(t, 1, branches)
	for _, b := range g.Blocks {
		require.True(t, b.Reachable, "every block compiled from live source should be reachable")
	}
}

func TestBuildLinksLoopBackEdge(t *testing.T) {
	cb := compileScript(t, `let i = 0; while (i < 10) { i = i + 1; }`)
	g := Build(cb)
	require.NoError(t, Verify(g))

	found := false
	for _, b := range g.Blocks {
		for _, s := range b.Successors {
			if s.Index < b.Index {
				found = true
			}
		}
	}
	require.True(t, found, "a while loop must compile a backward edge somewhere in the graph")
}

func TestBuildWiresTryHandler(t *testing.T) {
	cb := compileScript(t, `try { throw 1; } catch (e) { e; }`)
	require.NotEmpty(t, cb.Handlers)
	g := Build(cb)
	require.NoError(t, Verify(g))

	var sawHandler bool
	for _, b := range g.Blocks {
		if b.Handler != nil {
			sawHandler = true
		}
	}
	require.True(t, sawHandler)
}

func TestSimplifyCollapsesIdenticalBranch(t *testing.T) {
	g := &Graph{CodeBlock: &compiler.CodeBlock{Name: "synthetic", Code: []byte{byte(compiler.OpReturn)}}}
	shared := &BasicBlock{Index: 1}
	b := &BasicBlock{Index: 0, Terminator: Terminator{Kind: TermBranch, Target: shared, Fallthrough: shared}}
	g.Blocks = []*BasicBlock{b, shared}

	require.True(t, Simplify(g))
	require.Equal(t, TermJump, b.Terminator.Kind)
	require.Same(t, shared, b.Terminator.Target)
	require.False(t, Simplify(g), "a second pass over an already-simplified graph changes nothing")
}

func TestEliminateUnreachableDropsDeadBlock(t *testing.T) {
	entry := &BasicBlock{Index: 0, Reachable: true}
	live := &BasicBlock{Index: 1}
	dead := &BasicBlock{Index: 2}
	link(entry, live)
	entry.Terminator = Terminator{Kind: TermJump, Target: live}
	live.Terminator = Terminator{Kind: TermReturn}
	dead.Terminator = Terminator{Kind: TermReturn}

	g := &Graph{CodeBlock: &compiler.CodeBlock{Name: "synthetic"}, Blocks: []*BasicBlock{entry, live, dead}}
	require.True(t, EliminateUnreachable(g))
	require.Len(t, g.Blocks, 2)
	for _, b := range g.Blocks {
		require.NotEqual(t, dead, b)
	}
}

func TestBuildAndVerifyAllRunsConcurrently(t *testing.T) {
	cbs := []*compiler.CodeBlock{
		compileScript(t, `let a = 1 + 2;`),
		compileScript(t, `let b = 1; if (b) { b = 2; }`),
		compileScript(t, `for (let i = 0; i < 3; i = i + 1) {}`),
	}
	graphs, err := BuildAndVerifyAll(cbs)
	require.NoError(t, err)
	require.Len(t, graphs, len(cbs))
	for i, g := range graphs {
		require.Same(t, cbs[i], g.CodeBlock)
	}
}

func TestDecodeReadsFixedWidthOperands(t *testing.T) {
	code := []byte{byte(compiler.OpJump), 10, 0, 0, 0}
	inst, next := Decode(code, 0)
	require.Equal(t, compiler.OpJump, inst.Op)
	require.Equal(t, []uint32{10}, inst.Operands)
	require.Equal(t, uint32(5), next)
}
