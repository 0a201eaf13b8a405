package cfg

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/quartzjs/quartz/internal/compiler"
)

// Verify checks structural invariants a correctly compiled CodeBlock
// must hold: every jump/handler pc lands inside the code, the entry
// block is reachable, and every successor edge has a matching
// predecessor edge back. It catches a miscompiled jump target before
// the VM ever runs it, at the cost of a full pass over the graph.
func Verify(g *Graph) error {
	codeLen := uint32(len(g.CodeBlock.Code))
	for _, h := range g.CodeBlock.Handlers {
		if h.TryStart > h.TryEnd || h.TryEnd > codeLen || h.HandlerPC >= codeLen {
			return fmt.Errorf("cfg: handler [%d,%d)->%d out of bounds for %q (len %d)",
				h.TryStart, h.TryEnd, h.HandlerPC, g.CodeBlock.Name, codeLen)
		}
	}
	if len(g.Blocks) > 0 && !g.Blocks[0].Reachable {
		return fmt.Errorf("cfg: entry block unreachable in %q", g.CodeBlock.Name)
	}
	for _, b := range g.Blocks {
		for _, s := range b.Successors {
			if !hasBlock(s.Predecessors, b) {
				return fmt.Errorf("cfg: B%d -> B%d missing back-edge in %q", b.Index, s.Index, g.CodeBlock.Name)
			}
		}
	}
	return nil
}

func hasBlock(list []*BasicBlock, b *BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// BuildAndVerifyAll builds and verifies the control-flow graph for
// every CodeBlock in cbs concurrently - each CodeBlock is an
// independent, read-only value, so there's no shared mutable state to
// race on and no cycle to deadlock a worker on, unlike the module
// loader's graph (internal/module), which stays single-threaded
// because its Load recursion must tolerate returning an in-progress
// placeholder into a cyclic import graph. The errgroup has no context,
// so every build runs to completion; Wait returns the first
// verification error.
func BuildAndVerifyAll(cbs []*compiler.CodeBlock) ([]*Graph, error) {
	graphs := make([]*Graph, len(cbs))
	var eg errgroup.Group
	for i, cb := range cbs {
		i, cb := i, cb
		eg.Go(func() error {
			g := Build(cb)
			if err := Verify(g); err != nil {
				return err
			}
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}
