// Package gc implements the borrow-checked interior-mutability cell
// that every object's mutable state flows through, plus the tracing
// collector that walks the object graph rooted at a Context.
//
// Grounded on core/gc/src/cell.rs (original_source): a borrow-flag word
// that is either Unused, Reading(n), or Writing, with guards that
// restore the flag on release. Go has no destructors, so guards are
// released explicitly via Release()/defer instead of RAII Drop, and the
// collector is a conventional mark phase over an explicit Trace method
// instead of a derived trait.
package gc

import "fmt"

type borrowState int8

const (
	stateUnused borrowState = iota
	stateReading
	stateWriting
)

// BorrowError is returned by Borrow when the cell is currently
// writing.
type BorrowError struct{}

func (BorrowError) Error() string { return "gc: already mutably borrowed" }

// BorrowMutError is returned by BorrowMut when the cell is currently
// reading or writing.
type BorrowMutError struct{}

func (BorrowMutError) Error() string { return "gc: already borrowed" }

// Cell is a mutable memory location with dynamically checked borrow
// rules, safe to embed inside a GC-traced object. All object state in
// the engine (shape transitions, property slot writes, array backing
// stores, map/set internal tables) is mutated through a Cell.
type Cell[T any] struct {
	state  borrowState
	reads  int32
	value  T
	traced bool // true while a Writing guard is outstanding; tracing skips the cell
}

func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// Ref is a read guard. Release must be called exactly once, normally
// via defer immediately after a successful Borrow.
type Ref[T any] struct {
	cell *Cell[T]
}

func (r Ref[T]) Get() *T { return &r.cell.value }

func (r Ref[T]) Release() {
	if r.cell == nil {
		return
	}
	if r.cell.state != stateReading || r.cell.reads == 0 {
		panic("gc: Ref released on a cell that is not Reading")
	}
	r.cell.reads--
	if r.cell.reads == 0 {
		r.cell.state = stateUnused
	}
}

// RefMut is a write guard.
type RefMut[T any] struct {
	cell *Cell[T]
}

func (r RefMut[T]) Get() *T { return &r.cell.value }

func (r RefMut[T]) Release() {
	if r.cell == nil {
		return
	}
	if r.cell.state != stateWriting {
		panic("gc: RefMut released on a cell that is not Writing")
	}
	r.cell.state = stateUnused
	r.cell.traced = false
}

// Borrow takes an immutable borrow. Fails if the cell is Writing.
func (c *Cell[T]) Borrow() (Ref[T], error) {
	if c.state == stateWriting {
		return Ref[T]{}, BorrowError{}
	}
	c.state = stateReading
	c.reads++
	return Ref[T]{cell: c}, nil
}

// BorrowMut takes a mutable borrow. Fails unless the cell is Unused.
func (c *Cell[T]) BorrowMut() (RefMut[T], error) {
	if c.state != stateUnused {
		return RefMut[T]{}, BorrowMutError{}
	}
	c.state = stateWriting
	c.traced = true
	return RefMut[T]{cell: c}, nil
}

// TryBorrow is Borrow spelled for call sites that want an (ok, guard) pair.
func (c *Cell[T]) TryBorrow() (Ref[T], bool) {
	r, err := c.Borrow()
	return r, err == nil
}

// IsWriting reports whether the cell currently holds an outstanding
// mutable borrow. The collector uses this to decide whether to skip
// tracing the cell's contents: while Writing, the mutator is assumed
// to hold the live state in registers/locals, so the heap copy may be
// transiently inconsistent.
func (c *Cell[T]) IsWriting() bool { return c.traced }

func (c *Cell[T]) String() string {
	switch c.state {
	case stateReading:
		return fmt.Sprintf("Cell{Reading(%d)}", c.reads)
	case stateWriting:
		return "Cell{Writing}"
	default:
		return "Cell{Unused}"
	}
}

// MapRef projects a read guard onto a substructure, preserving the
// borrow for the lifetime of the projection. Mirrors GcCellRef::map.
func MapRef[T, U any](r Ref[T], f func(*T) *U) Ref2[U] {
	return Ref2[U]{ptr: f(r.Get()), release: r.Release}
}

// MapRefMut projects a write guard onto a substructure.
func MapRefMut[T, U any](r RefMut[T], f func(*T) *U) RefMut2[U] {
	return RefMut2[U]{ptr: f(r.Get()), release: r.Release}
}

// Ref2/RefMut2 are the projected forms returned by MapRef/MapRefMut;
// they carry a closure back to the original cell's release instead of
// a direct pointer, since projections can outlive the concrete Cell[T]
// type parameter they were derived from.
type Ref2[U any] struct {
	ptr     *U
	release func()
}

func (r Ref2[U]) Get() *U  { return r.ptr }
func (r Ref2[U]) Release() { r.release() }

type RefMut2[U any] struct {
	ptr     *U
	release func()
}

func (r RefMut2[U]) Get() *U  { return r.ptr }
func (r RefMut2[U]) Release() { r.release() }
