package object

import (
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// Descriptor is a PropertyDescriptor: either data or accessor, with
// each field individually present-or-absent to express partial
// descriptors as Object.defineProperty allows.
type Descriptor struct {
	Value        value.Value
	HasValue     bool
	Writable     bool
	HasWritable  bool
	Get          value.Objecter
	HasGet       bool
	Set          value.Objecter
	HasSet       bool
	Enumerable   bool
	HasEnum      bool
	Configurable bool
	HasConfig    bool
}

func (d Descriptor) IsAccessor() bool { return d.HasGet || d.HasSet }
func (d Descriptor) IsData() bool     { return d.HasValue || d.HasWritable }
func (d Descriptor) IsGeneric() bool  { return !d.IsAccessor() && !d.IsData() }

// DataDescriptor is a convenience constructor for a fully-specified
// data descriptor.
func DataDescriptor(v value.Value, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Value: v, HasValue: true,
		Writable: writable, HasWritable: true,
		Enumerable: enumerable, HasEnum: true,
		Configurable: configurable, HasConfig: true,
	}
}

func AccessorDescriptor(get, set value.Objecter, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Get: get, HasGet: get != nil,
		Set: set, HasSet: set != nil,
		Enumerable: enumerable, HasEnum: true,
		Configurable: configurable, HasConfig: true,
	}
}

func descriptorToAttrs(d Descriptor) shape.Attributes {
	if d.IsAccessor() {
		return shape.AccessorAttributes(d.HasEnum && d.Enumerable, d.HasConfig && d.Configurable)
	}
	return shape.DataAttributes(d.HasWritable && d.Writable, d.HasEnum && d.Enumerable, d.HasConfig && d.Configurable)
}

// currentDescriptorFrom reconstructs a full Descriptor from a shape
// slot plus the stored value(s), mirroring FromPropertyDescriptor's
// inverse (used by [[GetOwnProperty]]).
func currentDescriptorFrom(attrs shape.Attributes, stored value.Value, getSet [2]value.Objecter) Descriptor {
	if attrs.IsAccessor() {
		return Descriptor{
			Get: getSet[0], HasGet: true,
			Set: getSet[1], HasSet: true,
			Enumerable: attrs.Enumerable(), HasEnum: true,
			Configurable: attrs.Configurable(), HasConfig: true,
		}
	}
	return Descriptor{
		Value: stored, HasValue: true,
		Writable: attrs.Writable(), HasWritable: true,
		Enumerable: attrs.Enumerable(), HasEnum: true,
		Configurable: attrs.Configurable(), HasConfig: true,
	}
}

// ValidateAndApplyPropertyDescriptor implements the ECMAScript
// operation of the same name: merges `desc` (a possibly-partial
// descriptor) onto `current` (the existing descriptor, or the zero
// value if the property doesn't yet exist), honouring every
// non-extensible/non-configurable/non-writable restriction, and
// reports whether the merge is even allowed.
//
// extensible is ignored when current is non-nil (existing properties
// are always reconfigurable-checked against their own attributes, not
// the object's extensibility).
func ValidateAndApplyPropertyDescriptor(current *Descriptor, extensible bool, desc Descriptor) (Descriptor, bool) {
	if current == nil {
		if !extensible {
			return Descriptor{}, false
		}
		// A fully-absent descriptor defaults every field to its
		// ECMAScript default (false/undefined) rather than leaving it
		// "not present", since the property is being created fresh.
		if desc.IsGeneric() || desc.IsData() {
			return Descriptor{
				Value: desc.Value, HasValue: true,
				Writable: desc.HasWritable && desc.Writable, HasWritable: true,
				Enumerable: desc.HasEnum && desc.Enumerable, HasEnum: true,
				Configurable: desc.HasConfig && desc.Configurable, HasConfig: true,
			}, true
		}
		return Descriptor{
			Get: desc.Get, HasGet: true,
			Set: desc.Set, HasSet: true,
			Enumerable: desc.HasEnum && desc.Enumerable, HasEnum: true,
			Configurable: desc.HasConfig && desc.Configurable, HasConfig: true,
		}, true
	}

	if !desc.HasValue && !desc.HasWritable && !desc.HasGet && !desc.HasSet && !desc.HasEnum && !desc.HasConfig {
		return *current, true // no-op descriptor always succeeds
	}

	if !current.Configurable {
		if desc.HasConfig && desc.Configurable {
			return Descriptor{}, false
		}
		if desc.HasEnum && desc.Enumerable != current.Enumerable {
			return Descriptor{}, false
		}
		if !desc.IsGeneric() && desc.IsAccessor() != current.IsAccessor() {
			return Descriptor{}, false
		}
		if current.IsAccessor() {
			if desc.HasGet && desc.Get != current.Get {
				return Descriptor{}, false
			}
			if desc.HasSet && desc.Set != current.Set {
				return Descriptor{}, false
			}
		} else if !current.Writable {
			if desc.HasWritable && desc.Writable {
				return Descriptor{}, false
			}
			if desc.HasValue && !value.SameValue(desc.Value, current.Value) {
				return Descriptor{}, false
			}
		}
	}

	merged := *current
	if desc.IsAccessor() && current.IsData() {
		merged = Descriptor{Enumerable: current.Enumerable, HasEnum: true, Configurable: current.Configurable, HasConfig: true}
	} else if desc.IsData() && current.IsAccessor() {
		merged = Descriptor{Enumerable: current.Enumerable, HasEnum: true, Configurable: current.Configurable, HasConfig: true}
	}
	if desc.HasValue {
		merged.Value, merged.HasValue = desc.Value, true
	}
	if desc.HasWritable {
		merged.Writable, merged.HasWritable = desc.Writable, true
	}
	if desc.HasGet {
		merged.Get, merged.HasGet = desc.Get, true
	}
	if desc.HasSet {
		merged.Set, merged.HasSet = desc.Set, true
	}
	if desc.HasEnum {
		merged.Enumerable, merged.HasEnum = desc.Enumerable, true
	}
	if desc.HasConfig {
		merged.Configurable, merged.HasConfig = desc.Configurable, true
	}
	return merged, true
}
