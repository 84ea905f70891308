// Package candor is Candor's embedding façade: the host-facing API
// spec.md §6 describes (Value, Handle, Isolate, Function, CWrapper)
// wrapping internal/exec's Engine the way V8's public C++ headers wrap
// V8's internal heap and execution engine. Nothing in this package
// runs Candor code directly; every operation here ultimately forwards
// into an Isolate's *exec.Engine.
package candor

import (
	"strconv"

	"candor/internal/heap"
	"candor/internal/tagged"
)

// Value is an opaque boxed pointer into its Isolate's heap. It never
// carries a Go-native copy of the data it names — every read goes
// back through the Isolate, the same indirection a real Value's tagged
// pointer forces on its embedder.
type Value struct {
	iso  *Isolate
	addr heap.Address
}

// Address returns v's raw heap address, satisfying the Rooted
// constraint Handle[T] registers against.
func (v Value) Address() heap.Address { return v.addr }

// Isolate returns the Isolate v belongs to.
func (v Value) Isolate() *Isolate { return v.iso }

// valueOf re-wraps addr as a Value bound to iso; it is the wrap
// function every Handle[Value] uses to rebuild its T after a
// collection has possibly moved the cell it tracks.
func valueOf(iso *Isolate, addr heap.Address) Value { return Value{iso: iso, addr: addr} }

// IsNil reports whether v is the canonical Nil singleton.
func (v Value) IsNil() bool { return heap.IsNil(v.addr) }

// IsNumber reports whether v holds either an unboxed small integer or
// a boxed Number.
func (v Value) IsNumber() bool {
	return heap.IsUnboxed(v.addr) || tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagNumber, v.addr)
}

// IsBoolean reports whether v is the True or False singleton.
func (v Value) IsBoolean() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagBoolean, v.addr)
}

// IsString reports whether v is a String, flat or cons.
func (v Value) IsString() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagString, v.addr)
}

// IsObject reports whether v is an Object.
func (v Value) IsObject() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagObject, v.addr)
}

// IsArray reports whether v is an Array.
func (v Value) IsArray() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagArray, v.addr)
}

// IsFunction reports whether v is callable.
func (v Value) IsFunction() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagFunction, v.addr)
}

// IsCData reports whether v wraps a CWrapper.
func (v Value) IsCData() bool {
	return tagged.IsHeapObject(v.iso.engine.Heap, tagged.TagCData, v.addr)
}

// Float64 downcasts v to a Go float64; the zero value if v is not a
// Number.
func (v Value) Float64() float64 {
	if !v.IsNumber() {
		return 0
	}
	return v.iso.engine.NumberValue(v.addr)
}

// Bool downcasts v to a Go bool via CoerceToBoolean (spec.md §4.6),
// not a strict Boolean-only check — the same truthiness every Candor
// `if`/`while` condition uses.
func (v Value) Bool() bool {
	return v.iso.engine.Truthy(v.addr)
}

// String downcasts v to a Go string; the empty string if v is not a
// String.
func (v Value) String() string {
	if !v.IsString() {
		return ""
	}
	return string(v.iso.engine.StringBytes(v.addr))
}

// GetProperty reads a named property off an Object or indexed element
// off an Array, per spec.md §7's "missing key reads back as Nil"
// contract — never an error.
func (v Value) GetProperty(key string) Value {
	k := tagged.AllocString(v.iso.engine.Heap, key)
	return valueOf(v.iso, v.iso.engine.LoadProperty(v.addr, k))
}

// GetIndex reads element i off an Array (or a stringified-key lookup
// on an Object, through GetProperty with i's decimal string).
func (v Value) GetIndex(i int) Value {
	if v.IsObject() {
		return v.GetProperty(strconv.Itoa(i))
	}
	return valueOf(v.iso, v.iso.engine.LoadProperty(v.addr, heap.EncodeInt(int64(i))))
}

// SetProperty writes a named property onto an Object or Array.
func (v Value) SetProperty(key string, val Value) {
	k := tagged.AllocString(v.iso.engine.Heap, key)
	v.iso.engine.StoreProperty(v.addr, k, val.addr)
}

// SetIndex writes element i of an Array.
func (v Value) SetIndex(i int, val Value) {
	v.iso.engine.StoreProperty(v.addr, heap.EncodeInt(int64(i)), val.addr)
}

// Len reports an Array's length, or 0 for any other tag.
func (v Value) Len() int {
	if !v.IsArray() {
		return 0
	}
	return tagged.ArrayLength(v.iso.engine.Heap, v.addr)
}

// AsFunction downcasts v to a callable Function, or nil if v is not
// one — the check every Function::Call caller should run before
// calling Call on a value of unknown provenance.
func (v Value) AsFunction() *Function {
	if !v.IsFunction() {
		return nil
	}
	return functionOf(v.iso, v.addr)
}
