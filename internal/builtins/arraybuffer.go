package builtins

import (
	"encoding/binary"
	"math"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// ArrayBufferData is the DataArrayBuffer (and DataSharedArrayBuffer)
// payload: a flat byte slice. Shared and non-shared buffers share this
// representation since this engine runs single-threaded (no worker
// agents sharing the backing store across goroutines).
type ArrayBufferData struct {
	Bytes []byte
}

// DataViewData is the DataDataView payload: a window onto an
// ArrayBuffer's bytes.
type DataViewData struct {
	Buffer     *object.Object
	ByteOffset int
	ByteLength int
}

func bootstrapArrayBuffer(r *realm.Realm) {
	abProto := object.New(r.Intrinsics.ObjectPrototype, object.DataArrayBuffer, nil, object.Ordinary)
	r.Intrinsics.ArrayBufferPrototype = abProto
	accessor(r, abProto, "byteLength", arrayBufferByteLength, nil)
	method(r, abProto, "slice", 2, arrayBufferSlice)
	r.Intrinsics.ArrayBufferConstructor = ctorObject(r, "ArrayBuffer", 1, abProto, nil, arrayBufferConstruct)

	sabProto := object.New(r.Intrinsics.ObjectPrototype, object.DataSharedArrayBuffer, nil, object.Ordinary)
	r.Intrinsics.SharedArrayBufferPrototype = sabProto
	accessor(r, sabProto, "byteLength", arrayBufferByteLength, nil)
	r.Intrinsics.SharedArrayBufferConstructor = ctorObject(r, "SharedArrayBuffer", 1, sabProto, nil, sharedArrayBufferConstruct)

	dvProto := object.New(r.Intrinsics.ObjectPrototype, object.DataDataView, nil, object.Ordinary)
	r.Intrinsics.DataViewPrototype = dvProto
	accessor(r, dvProto, "byteLength", dataViewByteLength, nil)
	accessor(r, dvProto, "byteOffset", dataViewByteOffset, nil)
	method(r, dvProto, "getInt8", 1, dataViewGetter(1, true, false))
	method(r, dvProto, "getUint8", 1, dataViewGetter(1, false, false))
	method(r, dvProto, "getInt16", 2, dataViewGetter(2, true, false))
	method(r, dvProto, "getUint16", 2, dataViewGetter(2, false, false))
	method(r, dvProto, "getInt32", 2, dataViewGetter(4, true, false))
	method(r, dvProto, "getUint32", 2, dataViewGetter(4, false, false))
	method(r, dvProto, "getFloat32", 2, dataViewGetterFloat(4))
	method(r, dvProto, "getFloat64", 2, dataViewGetterFloat(8))
	method(r, dvProto, "setInt8", 2, dataViewSetter(1))
	method(r, dvProto, "setUint8", 2, dataViewSetter(1))
	method(r, dvProto, "setInt16", 2, dataViewSetter(2))
	method(r, dvProto, "setUint16", 2, dataViewSetter(2))
	method(r, dvProto, "setInt32", 2, dataViewSetter(4))
	method(r, dvProto, "setUint32", 2, dataViewSetter(4))
	method(r, dvProto, "setFloat32", 2, dataViewSetterFloat(4))
	method(r, dvProto, "setFloat64", 2, dataViewSetterFloat(8))
	r.Intrinsics.DataViewConstructor = ctorObject(r, "DataView", 1, dvProto, nil, dataViewConstruct)
}

func thisArrayBuffer(vmc *vm.VM, this value.Value, what string) (*object.Object, *ArrayBufferData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, nil, vmc.TypeError("%s called on non-object", what)
	}
	bd, ok := o.Data().(*ArrayBufferData)
	if !ok {
		return nil, nil, vmc.TypeError("%s called on non-ArrayBuffer", what)
	}
	return o, bd, nil
}

func arrayBufferConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	n, _ := arg(args, 0).ToNumber()
	if n < 0 {
		return value.Undefined, vmc.RangeError("Invalid ArrayBuffer length")
	}
	obj := object.New(vmc.Realm.Intrinsics.ArrayBufferPrototype, object.DataArrayBuffer, &ArrayBufferData{Bytes: make([]byte, int(n))}, object.Ordinary)
	return value.FromObject(obj), nil
}

func sharedArrayBufferConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	n, _ := arg(args, 0).ToNumber()
	if n < 0 {
		return value.Undefined, vmc.RangeError("Invalid SharedArrayBuffer length")
	}
	obj := object.New(vmc.Realm.Intrinsics.SharedArrayBufferPrototype, object.DataSharedArrayBuffer, &ArrayBufferData{Bytes: make([]byte, int(n))}, object.Ordinary)
	return value.FromObject(obj), nil
}

func arrayBufferByteLength(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, bd, exc := thisArrayBuffer(vmc, this, "ArrayBuffer.prototype.byteLength")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(len(bd.Bytes))), nil
}

func arrayBufferSlice(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, bd, exc := thisArrayBuffer(vmc, this, "ArrayBuffer.prototype.slice")
	if exc != nil {
		return value.Undefined, exc
	}
	n := len(bd.Bytes)
	start := relativeIndex(n, arg(args, 0), 0)
	end := relativeIndex(n, arg(args, 1), n)
	out := make([]byte, 0, end-start)
	if end > start {
		out = append(out, bd.Bytes[start:end]...)
	}
	obj := object.New(vmc.Realm.Intrinsics.ArrayBufferPrototype, object.DataArrayBuffer, &ArrayBufferData{Bytes: out}, object.Ordinary)
	return value.FromObject(obj), nil
}

func thisDataView(vmc *vm.VM, this value.Value, what string) (*DataViewData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, vmc.TypeError("%s called on non-object", what)
	}
	dv, ok := o.Data().(*DataViewData)
	if !ok {
		return nil, vmc.TypeError("%s called on non-DataView", what)
	}
	return dv, nil
}

func dataViewConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	bufVal := arg(args, 0)
	buf, ok := bufVal.AsObject().(*object.Object)
	if !bufVal.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("DataView requires an ArrayBuffer")
	}
	bd, ok := buf.Data().(*ArrayBufferData)
	if !ok {
		return value.Undefined, vmc.TypeError("DataView requires an ArrayBuffer")
	}
	offset := 0
	if o := arg(args, 1); !o.IsUndefined() {
		f, _ := o.ToNumber()
		offset = int(f)
	}
	length := len(bd.Bytes) - offset
	if l := arg(args, 2); !l.IsUndefined() {
		f, _ := l.ToNumber()
		length = int(f)
	}
	if offset < 0 || length < 0 || offset+length > len(bd.Bytes) {
		return value.Undefined, vmc.RangeError("Invalid DataView range")
	}
	dv := &DataViewData{Buffer: buf, ByteOffset: offset, ByteLength: length}
	obj := object.New(vmc.Realm.Intrinsics.DataViewPrototype, object.DataDataView, dv, object.Ordinary)
	return value.FromObject(obj), nil
}

func dataViewByteLength(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	dv, exc := thisDataView(vmc, this, "DataView.prototype.byteLength")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(dv.ByteLength)), nil
}

func dataViewByteOffset(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	dv, exc := thisDataView(vmc, this, "DataView.prototype.byteOffset")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(dv.ByteOffset)), nil
}

func dataViewByteOrder(args []value.Value, idx int) binary.ByteOrder {
	littleEndian := arg(args, idx).ToBoolean()
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func dataViewGetter(size int, signed, _ bool) func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		dv, exc := thisDataView(vmc, this, "DataView getter")
		if exc != nil {
			return value.Undefined, exc
		}
		off, _ := arg(args, 0).ToNumber()
		bd := dv.Buffer.Data().(*ArrayBufferData)
		start := dv.ByteOffset + int(off)
		if start < 0 || start+size > dv.ByteOffset+dv.ByteLength {
			return value.Undefined, vmc.RangeError("Offset is outside the bounds of the DataView")
		}
		order := dataViewByteOrder(args, 1)
		bytes := bd.Bytes[start : start+size]
		var u uint64
		switch size {
		case 1:
			u = uint64(bytes[0])
		case 2:
			u = uint64(order.Uint16(bytes))
		case 4:
			u = uint64(order.Uint32(bytes))
		}
		if !signed {
			return value.FromNumber(float64(u)), nil
		}
		switch size {
		case 1:
			return value.FromInt32(int32(int8(u))), nil
		case 2:
			return value.FromInt32(int32(int16(u))), nil
		default:
			return value.FromInt32(int32(u)), nil
		}
	}
}

func dataViewGetterFloat(size int) func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		dv, exc := thisDataView(vmc, this, "DataView getter")
		if exc != nil {
			return value.Undefined, exc
		}
		off, _ := arg(args, 0).ToNumber()
		bd := dv.Buffer.Data().(*ArrayBufferData)
		start := dv.ByteOffset + int(off)
		if start < 0 || start+size > dv.ByteOffset+dv.ByteLength {
			return value.Undefined, vmc.RangeError("Offset is outside the bounds of the DataView")
		}
		order := dataViewByteOrder(args, 1)
		bytes := bd.Bytes[start : start+size]
		if size == 4 {
			return value.FromNumber(float64(math.Float32frombits(order.Uint32(bytes)))), nil
		}
		return value.FromNumber(math.Float64frombits(order.Uint64(bytes))), nil
	}
}

func dataViewSetter(size int) func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		dv, exc := thisDataView(vmc, this, "DataView setter")
		if exc != nil {
			return value.Undefined, exc
		}
		off, _ := arg(args, 0).ToNumber()
		n, exc := vmc.ToNumber(arg(args, 1))
		if exc != nil {
			return value.Undefined, exc
		}
		bd := dv.Buffer.Data().(*ArrayBufferData)
		start := dv.ByteOffset + int(off)
		if start < 0 || start+size > dv.ByteOffset+dv.ByteLength {
			return value.Undefined, vmc.RangeError("Offset is outside the bounds of the DataView")
		}
		order := dataViewByteOrder(args, 2)
		bytes := bd.Bytes[start : start+size]
		u := uint64(int64(n))
		switch size {
		case 1:
			bytes[0] = byte(u)
		case 2:
			order.PutUint16(bytes, uint16(u))
		case 4:
			order.PutUint32(bytes, uint32(u))
		}
		return value.Undefined, nil
	}
}

func dataViewSetterFloat(size int) func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		dv, exc := thisDataView(vmc, this, "DataView setter")
		if exc != nil {
			return value.Undefined, exc
		}
		off, _ := arg(args, 0).ToNumber()
		n, exc := vmc.ToNumber(arg(args, 1))
		if exc != nil {
			return value.Undefined, exc
		}
		bd := dv.Buffer.Data().(*ArrayBufferData)
		start := dv.ByteOffset + int(off)
		if start < 0 || start+size > dv.ByteOffset+dv.ByteLength {
			return value.Undefined, vmc.RangeError("Offset is outside the bounds of the DataView")
		}
		order := dataViewByteOrder(args, 2)
		bytes := bd.Bytes[start : start+size]
		if size == 4 {
			order.PutUint32(bytes, math.Float32bits(float32(n)))
		} else {
			order.PutUint64(bytes, math.Float64bits(n))
		}
		return value.Undefined, nil
	}
}
