package shape

// transitionKind records which kind of edge produced a shape, needed
// by rollback to know what to replay.
type transitionKind uint8

const (
	transitionRoot transitionKind = iota
	transitionInsert
	transitionConfigure
	transitionPrototype
)

// maxTransitionCount bounds how many diverging transitions a shape
// tree may accumulate from the root before new objects built along
// that path are promoted to a private UniqueShape (§9 Shape explosion).
const maxTransitionCount = 64

// Prototype is the minimal handle Shape needs for a prototype slot;
// internal/object's *Object satisfies it. Using an interface (instead
// of importing internal/object) avoids a shape<->object import cycle,
// since objects embed a Shape.
type Prototype interface {
	ShapeIdentity() uintptr
}

type transitionMapKey struct {
	key   Key
	attrs Attributes
}

// Shape is one immutable node in the hidden-class tree.
type Shape struct {
	table      *PropertyTable
	count      int
	prototype  Prototype
	previous   *Shape
	transition transitionKind
	// transitionKey/transitionAttrs describe the edge that produced
	// this shape from `previous`, needed to replay it during rollback.
	transitionKey   Key
	transitionAttrs Attributes

	transitionCount int

	forward    map[transitionMapKey]*Shape
	protoTrans map[uintptr]*Shape

	unique *UniqueShape // non-nil if this object's shape has been promoted
}

// UniqueShape owns a private property table and never participates in
// the shared transition tree; used for objects that have accumulated
// too many divergent transitions (§4.3 To unique).
type UniqueShape struct {
	table     *PropertyTable
	count     int
	prototype Prototype
}

// RootShape returns the empty shape for a fresh object with the given
// prototype (nil for a null prototype).
func RootShape(prototype Prototype) *Shape {
	return &Shape{
		table:      NewPropertyTable(),
		prototype:  prototype,
		transition: transitionRoot,
		forward:    make(map[transitionMapKey]*Shape),
		protoTrans: make(map[uintptr]*Shape),
	}
}

func (s *Shape) IsUnique() bool       { return s.unique != nil }
func (s *Shape) Prototype() Prototype { return s.prototype }
func (s *Shape) PropertyCount() int {
	if s.unique != nil {
		return s.unique.count
	}
	return s.count
}

func (s *Shape) Lookup(key Key) (Slot, bool) {
	if s.unique != nil {
		return s.unique.table.Lookup(s.unique.count, key)
	}
	return s.table.Lookup(s.count, key)
}

func (s *Shape) Keys() []Key {
	if s.unique != nil {
		return s.unique.table.Keys(s.unique.count)
	}
	return s.table.Keys(s.count)
}

// Insert returns the child shape reached by inserting key with attrs,
// reusing a cached forward transition when one already exists for the
// exact (key, attrs) pair.
func (s *Shape) Insert(key Key, attrs Attributes) *Shape {
	if s.unique != nil {
		s.unique.table = s.unique.table.WithInserted(s.unique.count, key, attrs)
		s.unique.count++
		return s
	}
	tk := transitionMapKey{key: key, attrs: attrs}
	if child, ok := s.forward[tk]; ok {
		return child
	}
	child := &Shape{
		table:           s.table.WithInserted(s.count, key, attrs),
		count:           s.count + 1,
		prototype:       s.prototype,
		previous:        s,
		transition:      transitionInsert,
		transitionKey:   key,
		transitionAttrs: attrs,
		transitionCount: s.transitionCount + 1,
		forward:         make(map[transitionMapKey]*Shape),
		protoTrans:      make(map[uintptr]*Shape),
	}
	s.forward[tk] = child
	if child.transitionCount > maxTransitionCount {
		return child.ToUnique()
	}
	return child
}

// ChangePrototype returns the child shape with a new prototype,
// reusing the prototype-transition cache when possible.
func (s *Shape) ChangePrototype(proto Prototype) *Shape {
	if s.unique != nil {
		s.unique.prototype = proto
		return s
	}
	id := protoID(proto)
	if child, ok := s.protoTrans[id]; ok {
		return child
	}
	child := &Shape{
		table:           s.table,
		count:           s.count,
		prototype:       proto,
		previous:        s,
		transition:      transitionPrototype,
		transitionCount: s.transitionCount + 1,
		forward:         make(map[transitionMapKey]*Shape),
		protoTrans:      make(map[uintptr]*Shape),
	}
	s.protoTrans[id] = child
	return child
}

func protoID(p Prototype) uintptr {
	if p == nil {
		return 0
	}
	return p.ShapeIdentity()
}

// ChangeTransitionAction tells the caller what to do with the
// object's storage slot after a ChangeAttributes/Remove call.
type ChangeTransitionAction uint8

const (
	ActionNone ChangeTransitionAction = iota
	ActionInsertSlot
	ActionRemoveSlot
)

// ChangeTransition is the result of a rollback-based transition.
type ChangeTransition struct {
	Shape  *Shape
	Action ChangeTransitionAction
}

// ChangeAttributes reconfigures key's attributes. If the new
// attributes share data/accessor kind with the current ones, the
// property table is cloned and mutated in place (cheap, no rollback).
// Otherwise a rollback is performed: walk back to the shape just
// before key was inserted, replay the latest prototype change (if one
// happened after that point) and every intervening insertion, with
// key's attributes updated (§4.3 Change attributes).
func (s *Shape) ChangeAttributes(key Key, attrs Attributes) ChangeTransition {
	if s.unique != nil {
		cur, ok := s.unique.table.Lookup(s.unique.count, key)
		if !ok {
			return ChangeTransition{Shape: s, Action: ActionNone}
		}
		s.unique.table = s.unique.table.WithAttributesChanged(s.unique.count, key, attrs)
		_ = cur
		return ChangeTransition{Shape: s, Action: ActionNone}
	}
	cur, ok := s.Lookup(key)
	if !ok {
		return ChangeTransition{Shape: s, Action: ActionNone}
	}
	if cur.Attrs.SameKind(attrs) {
		child := &Shape{
			table:           s.table.WithAttributesChanged(s.count, key, attrs),
			count:           s.count,
			prototype:       s.prototype,
			previous:        s,
			transition:      transitionConfigure,
			transitionKey:   key,
			transitionAttrs: attrs,
			transitionCount: s.transitionCount + 1,
			forward:         make(map[transitionMapKey]*Shape),
			protoTrans:      make(map[uintptr]*Shape),
		}
		return ChangeTransition{Shape: child, Action: ActionNone}
	}
	return s.rollback(key, &attrs, false)
}

// Remove performs the same rollback protocol, omitting key from the
// replay.
func (s *Shape) Remove(key Key) ChangeTransition {
	if s.unique != nil {
		s.unique.table = s.unique.table.WithRemoved(s.unique.count, key)
		s.unique.count--
		return ChangeTransition{Shape: s, Action: ActionRemoveSlot}
	}
	if _, ok := s.Lookup(key); !ok {
		return ChangeTransition{Shape: s, Action: ActionNone}
	}
	return s.rollback(key, nil, true)
}

// rollback walks `previous` links recording every property insertion
// and the latest prototype change, stopping at the shape just before
// key was first inserted, then replays the recorded transitions with
// key either updated (newAttrs != nil) or omitted (remove == true).
func (s *Shape) rollback(key Key, newAttrs *Attributes, remove bool) ChangeTransition {
	type insertion struct {
		key   Key
		attrs Attributes
	}
	var inserts []insertion
	var latestProto Prototype
	node := s
	for node != nil {
		if node.transition == transitionInsert {
			if node.transitionKey == key {
				// Found the insertion point; node.previous is the base.
				base := node.previous
				if base == nil {
					base = RootShape(s.prototype)
				}
				if latestProto != nil {
					base = base.ChangePrototype(latestProto)
				}
				result := base
				action := ActionNone
				// Replay in original (oldest-first) order.
				for i := len(inserts) - 1; i >= 0; i-- {
					result = result.Insert(inserts[i].key, inserts[i].attrs)
				}
				if remove {
					action = ActionRemoveSlot
				} else {
					result = result.Insert(key, *newAttrs)
					action = ActionNone
				}
				return ChangeTransition{Shape: result, Action: action}
			}
			inserts = append(inserts, insertion{key: node.transitionKey, attrs: node.transitionAttrs})
		} else if node.transition == transitionPrototype && latestProto == nil {
			latestProto = node.prototype
		}
		node = node.previous
	}
	// key was never found as a plain insertion (shouldn't happen if
	// Lookup succeeded, but fall back to a no-op for safety).
	return ChangeTransition{Shape: s, Action: ActionNone}
}

// ToUnique promotes s to own a private property table, cloned at the
// current count, so subsequent transitions stop polluting the shared
// tree (§4.3 To unique, §9 Shape explosion containment).
func (s *Shape) ToUnique() *Shape {
	if s.unique != nil {
		return s
	}
	return &Shape{
		unique: &UniqueShape{
			table:     s.table.CloneUpTo(s.count),
			count:     s.count,
			prototype: s.prototype,
		},
	}
}

// ShapeIdentity returns 0 for every Shape, so it does not tell two
// shapes apart; objects use their own pointer as identity instead.
func (s *Shape) ShapeIdentity() uintptr { return uintptr(0) }

// PruneExpiredTransitions removes forward/prototype transition cache
// entries whose target shape is no longer reachable, per the "forward
// transitions are weak" invariant. isAlive is supplied by the
// collector (internal/gc.Heap.IsReachable) so this package stays
// collector-agnostic.
func (s *Shape) PruneExpiredTransitions(isAlive func(*Shape) bool) {
	for k, child := range s.forward {
		if !isAlive(child) {
			delete(s.forward, k)
		}
	}
	for k, child := range s.protoTrans {
		if !isAlive(child) {
			delete(s.protoTrans, k)
		}
	}
}
