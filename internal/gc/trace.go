package gc

// Traceable is implemented by every heap-allocated engine value that
// can hold references to other heap values (objects, environments,
// modules, frames). Trace must call visit once per outgoing reference.
type Traceable interface {
	Trace(visit func(Traceable))
}

// Heap owns the set of traced roots and runs the mark phase on demand.
// Go's own runtime reclaims memory, so Heap does not sweep; its job is
// to let embedders and tests observe and assert the reachability
// invariants the spec requires of cyclic object graphs (§9), and to
// give shape/property-table pruning a cheap "is this still reachable"
// oracle without waiting on a full Go GC cycle.
type Heap struct {
	roots  []Traceable
	marked map[Traceable]bool
	gen    uint64
}

func NewHeap() *Heap {
	return &Heap{marked: make(map[Traceable]bool)}
}

func (h *Heap) AddRoot(t Traceable) {
	if t == nil {
		return
	}
	h.roots = append(h.roots, t)
}

func (h *Heap) RemoveRoot(t Traceable) {
	for i, r := range h.roots {
		if r == t {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// Mark walks every root and returns the set of reachable nodes. Cycles
// are handled by the visited map: a node already marked this
// generation is not re-visited, which is what makes self-referencing
// and mutually-referencing object graphs (an object whose property
// points back at itself) safe to trace without infinite recursion.
func (h *Heap) Mark() map[Traceable]bool {
	h.gen++
	visited := make(map[Traceable]bool)
	var visit func(Traceable)
	visit = func(t Traceable) {
		if t == nil || visited[t] {
			return
		}
		visited[t] = true
		t.Trace(visit)
	}
	for _, r := range h.roots {
		visit(r)
	}
	h.marked = visited
	return visited
}

// IsReachable reports whether t was visited during the most recent
// Mark call. Shape's forward-transition pruning uses this to decide
// whether a weak child-shape reference has expired.
func (h *Heap) IsReachable(t Traceable) bool {
	return h.marked[t]
}
