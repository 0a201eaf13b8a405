package shape

// Attributes encodes writable/enumerable/configurable plus the
// data-vs-accessor distinction for one property slot.
type Attributes uint8

const (
	Writable Attributes = 1 << iota
	Enumerable
	Configurable
	Accessor // set => this slot holds a (get, set) pair rather than a value
)

func (a Attributes) Writable() bool     { return a&Writable != 0 }
func (a Attributes) Enumerable() bool   { return a&Enumerable != 0 }
func (a Attributes) Configurable() bool { return a&Configurable != 0 }
func (a Attributes) IsAccessor() bool   { return a&Accessor != 0 }

// SameKind reports whether a and b are both data or both accessor
// slots; used to decide between in-place attribute reconfiguration and
// shape rollback (§4.3).
func (a Attributes) SameKind(b Attributes) bool {
	return a.IsAccessor() == b.IsAccessor()
}

func DataAttributes(writable, enumerable, configurable bool) Attributes {
	var a Attributes
	if writable {
		a |= Writable
	}
	if enumerable {
		a |= Enumerable
	}
	if configurable {
		a |= Configurable
	}
	return a
}

func AccessorAttributes(enumerable, configurable bool) Attributes {
	a := Accessor
	if enumerable {
		a |= Enumerable
	}
	if configurable {
		a |= Configurable
	}
	return a
}

// Slot is one PropertyTable entry: the storage index into the owning
// object's property-slot array, plus its attributes.
type Slot struct {
	Index uint32
	Attrs Attributes
}

// entry pairs a key with its slot, kept in insertion order so own-key
// enumeration order matches the ECMAScript OrdinaryOwnPropertyKeys
// integer-index-then-insertion-order rule (string keys only here;
// numeric ordering is applied by the object package, which knows which
// keys are valid array indices via Key.IsArrayIndex).
type entry struct {
	key  Key
	slot Slot
}

// PropertyTable is an ordered map from PropertyKey to (index, attrs).
// Tables may be shared between shapes; Shape.count says how many of
// the table's entries a given shape actually sees, so a table shared
// with a descendant shape doesn't leak that descendant's extra
// properties to an ancestor (§4.3 Lookup).
type PropertyTable struct {
	entries []entry
	index   map[Key]int
}

func NewPropertyTable() *PropertyTable {
	return &PropertyTable{index: make(map[Key]int)}
}

// CloneUpTo deep-clones the first n entries, used whenever a mutation
// needs to diverge from a table shared with sibling shapes.
func (t *PropertyTable) CloneUpTo(n int) *PropertyTable {
	out := NewPropertyTable()
	for i := 0; i < n && i < len(t.entries); i++ {
		e := t.entries[i]
		out.entries = append(out.entries, e)
		out.index[e.key] = i
	}
	return out
}

// WithInserted returns a new table (cloned up to count) with key
// appended at the next storage index.
func (t *PropertyTable) WithInserted(count int, key Key, attrs Attributes) *PropertyTable {
	out := t.CloneUpTo(count)
	out.entries = append(out.entries, entry{key: key, slot: Slot{Index: uint32(count), Attrs: attrs}})
	out.index[key] = count
	return out
}

// WithAttributesChanged returns a new table (cloned up to count) with
// key's attributes replaced in place, preserving its storage index.
// Only valid when old and new attributes share data/accessor kind.
func (t *PropertyTable) WithAttributesChanged(count int, key Key, attrs Attributes) *PropertyTable {
	out := t.CloneUpTo(count)
	if i, ok := out.index[key]; ok {
		out.entries[i].slot.Attrs = attrs
	}
	return out
}

// WithRemoved returns a new table (cloned up to count) omitting key;
// the remaining entries are renumbered in order, so storage indices
// above the removal point shift down by one and no gap is left.
func (t *PropertyTable) WithRemoved(count int, key Key) *PropertyTable {
	out := NewPropertyTable()
	for i := 0; i < count && i < len(t.entries); i++ {
		e := t.entries[i]
		if e.key == key {
			continue
		}
		e.slot.Index = uint32(len(out.entries))
		out.entries = append(out.entries, e)
		out.index[e.key] = len(out.entries) - 1
	}
	return out
}

// Lookup finds key among the table's first count entries.
func (t *PropertyTable) Lookup(count int, key Key) (Slot, bool) {
	i, ok := t.index[key]
	if !ok || i >= count {
		return Slot{}, false
	}
	return t.entries[i].slot, true
}

// Keys returns the keys among the table's first count entries, in
// insertion order.
func (t *PropertyTable) Keys(count int) []Key {
	out := make([]Key, 0, count)
	for i := 0; i < count && i < len(t.entries); i++ {
		out = append(out, t.entries[i].key)
	}
	return out
}

func (t *PropertyTable) Count() int { return len(t.entries) }
