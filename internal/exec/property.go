package exec

import (
	"bytes"

	"candor/internal/heap"
	"candor/internal/tagged"
)

// This file grounds internal/stub's EmitPropertyLookupStub: the
// dispatch on receiver tag (object with a string key, array with an
// unboxed integer key, slow path otherwise) and the hash-probe-and-
// grow scheme its comments describe. tagged.MapProbe expects the
// caller to have already reduced a hash down to a concrete byte
// offset (hash & mask); the probe loops below do that reduction by
// linear-probing in units of one slot (heap.WordSize), restarting
// from the key's natural index.

const initialMapCapacity = 8

// mapProbeResult is the outcome of one linear probe over a Map's key
// slots: whether it stopped on an empty slot, a matching key, or ran
// the whole table without finding either (the table is full).
type mapProbeResult struct {
	keySlot, valueSlot heap.Address
	idx                uint32
	hit                bool
	empty              bool
}

// probeMap linear-probes p's backing Map starting at slot startIdx,
// stopping at the first slot whose key is empty or satisfies match.
func (e *Engine) probeMap(p heap.Address, startIdx uint32, match func(key heap.Address) bool) mapProbeResult {
	cap := uint32(tagged.MapCapacity(e.Heap, p))
	for i := uint32(0); i < cap; i++ {
		idx := (startIdx + i) % cap
		ks, vs, _ := tagged.MapProbe(e.Heap, p, idx*heap.WordSize)
		key := e.Heap.ReadWord(ks)
		if heap.IsNil(key) {
			return mapProbeResult{keySlot: ks, valueSlot: vs, idx: idx, empty: true}
		}
		if match(key) {
			return mapProbeResult{keySlot: ks, valueSlot: vs, idx: idx, hit: true}
		}
	}
	return mapProbeResult{}
}

// mapInsertFresh writes key/value into dst's first empty slot
// starting from key's natural index, used only when the caller
// already knows key cannot already be present (rehashing during
// growth, or cloning into a freshly allocated map of the same shape).
func (e *Engine) mapInsertFresh(dst, key, value heap.Address) {
	r := e.probeMap(dst, e.mapStartIndex(dst, key), func(heap.Address) bool { return false })
	if !r.empty {
		panic("exec: mapInsertFresh found no empty slot, map undersized")
	}
	e.Heap.WriteWord(r.keySlot, key)
	e.Heap.WriteWord(r.valueSlot, value)
}

// mapStartIndex computes a key's natural probe index: the key's own
// value for an unboxed integer (Array storage, collision-free as long
// as the index is within capacity), or its string hash reduced modulo
// capacity for an Object key.
func (e *Engine) mapStartIndex(mapAddr, key heap.Address) uint32 {
	cap := uint32(tagged.MapCapacity(e.Heap, mapAddr))
	if heap.IsUnboxed(key) {
		return uint32(heap.DecodeInt(key)) % cap
	}
	return e.runtimeStringHash(key) % cap
}

func (e *Engine) stringKeyMatch(want []byte) func(heap.Address) bool {
	return func(k heap.Address) bool {
		if heap.IsUnboxed(k) {
			return false
		}
		flat := tagged.Flatten(e.Heap, k)
		return bytes.Equal(tagged.StringRawBytes(e.Heap, flat), want)
	}
}

func intKeyMatch(idx int64) func(heap.Address) bool {
	return func(k heap.Address) bool {
		return heap.IsUnboxed(k) && heap.DecodeInt(k) == idx
	}
}

// growMap doubles mapAddr's capacity, rehashing every existing entry
// into a fresh Map, and returns its address. Callers own updating the
// Object/Array's mask and map-pointer fields afterward.
func (e *Engine) growMap(mapAddr heap.Address) heap.Address {
	newCap := tagged.MapCapacity(e.Heap, mapAddr) * 2
	if newCap == 0 {
		newCap = initialMapCapacity
	}
	fresh := tagged.AllocMap(e.Heap, newCap)
	tagged.MapForEach(e.Heap, mapAddr, func(k, v heap.Address) {
		e.mapInsertFresh(fresh, k, v)
	})
	return fresh
}

// growObjectOrArray doubles receiver's backing map in place, updating
// its mask and map-pointer fields. Object and Array share field
// layout (mask at PayloadOffset(0), map pointer at PayloadOffset(1)),
// so one implementation serves both tags.
func (e *Engine) growObjectOrArray(receiver heap.Address) {
	fresh := e.growMap(tagged.ObjectMap(e.Heap, receiver))
	tagged.SetObjectMap(e.Heap, receiver, fresh)
	tagged.SetObjectMask(e.Heap, receiver, tagged.MapMask(e.Heap, fresh))
}

// loadProperty implements LoadProperty for both Object (string key,
// via hash probe) and Array (unboxed integer key, via direct index)
// receivers, returning Nil for a miss — spec.md has no "key not
// found" error, a missing property simply reads back as Nil.
func (e *Engine) loadProperty(receiver, key heap.Address) heap.Address {
	if heap.IsUnboxed(receiver) || heap.IsNil(receiver) {
		return heap.NilAddress
	}
	switch tagged.TagOf(e.Heap, receiver) {
	case tagged.TagObject:
		mapAddr := tagged.ObjectMap(e.Heap, receiver)
		r := e.probeMap(mapAddr, e.mapStartIndex(mapAddr, key), e.stringKeyMatch(e.stringBytes(key)))
		if !r.hit {
			return heap.NilAddress
		}
		return e.Heap.ReadWord(r.valueSlot)
	case tagged.TagArray:
		if !heap.IsUnboxed(key) {
			return heap.NilAddress
		}
		idx := heap.DecodeInt(key)
		if idx < 0 || idx >= int64(tagged.ArrayLength(e.Heap, receiver)) {
			return heap.NilAddress
		}
		mapAddr := tagged.ObjectMap(e.Heap, receiver)
		r := e.probeMap(mapAddr, uint32(idx), intKeyMatch(idx))
		if !r.hit {
			return heap.NilAddress
		}
		return e.Heap.ReadWord(r.valueSlot)
	default:
		return heap.NilAddress
	}
}

// storeProperty implements StoreProperty, growing the receiver's
// backing map (and, for an Array index past the current length,
// extending Length) whenever the key's natural probe run comes back
// full rather than landing on an empty or matching slot.
func (e *Engine) storeProperty(receiver, key, value heap.Address) {
	if heap.IsUnboxed(receiver) || heap.IsNil(receiver) {
		return // NonObjectAccess: non-fatal, silently dropped per spec.md §7
	}
	switch tagged.TagOf(e.Heap, receiver) {
	case tagged.TagObject:
		e.storeObjectKey(receiver, key, value)
	case tagged.TagArray:
		e.storeArrayIndex(receiver, key, value)
	}
}

func (e *Engine) storeObjectKey(receiver, key, value heap.Address) {
	want := e.stringBytes(key)
	for {
		mapAddr := tagged.ObjectMap(e.Heap, receiver)
		r := e.probeMap(mapAddr, e.mapStartIndex(mapAddr, key), e.stringKeyMatch(want))
		if !r.hit && !r.empty {
			e.growObjectOrArray(receiver)
			continue
		}
		e.Heap.WriteWord(r.keySlot, key)
		e.Heap.WriteWord(r.valueSlot, value)
		return
	}
}

func (e *Engine) storeArrayIndex(receiver, key, value heap.Address) {
	if !heap.IsUnboxed(key) {
		return
	}
	idx := heap.DecodeInt(key)
	if idx < 0 {
		return
	}
	for {
		mapAddr := tagged.ObjectMap(e.Heap, receiver)
		if idx >= int64(tagged.MapCapacity(e.Heap, mapAddr)) {
			e.growObjectOrArray(receiver)
			continue
		}
		keySlot, valSlot, _ := tagged.MapProbe(e.Heap, mapAddr, uint32(idx)*heap.WordSize)
		e.Heap.WriteWord(keySlot, heap.EncodeInt(idx))
		e.Heap.WriteWord(valSlot, value)
		if idx >= int64(tagged.ArrayLength(e.Heap, receiver)) {
			tagged.SetArrayLength(e.Heap, receiver, int(idx)+1)
		}
		return
	}
}

// deleteProperty implements DeleteProperty for Object receivers; per
// spec.md §7, deleting from a non-Object (including Array) is the
// non-fatal NonObjectDelete case and silently does nothing.
func (e *Engine) deleteProperty(receiver, key heap.Address) {
	if heap.IsUnboxed(receiver) || heap.IsNil(receiver) {
		return
	}
	if tagged.TagOf(e.Heap, receiver) != tagged.TagObject {
		return
	}
	mapAddr := tagged.ObjectMap(e.Heap, receiver)
	r := e.probeMap(mapAddr, e.mapStartIndex(mapAddr, key), e.stringKeyMatch(e.stringBytes(key)))
	if !r.hit {
		return
	}
	e.Heap.WriteWord(r.keySlot, heap.NilAddress)
	e.Heap.WriteWord(r.valueSlot, heap.NilAddress)
}

// newObject allocates an empty Object with room for initialMapCapacity
// entries before its first growth.
func (e *Engine) newObject() heap.Address {
	m := tagged.AllocMap(e.Heap, initialMapCapacity)
	return tagged.AllocObject(e.Heap, m, tagged.MapMask(e.Heap, m))
}

// newArrayWithLength allocates an empty Array sized to hold length
// elements without an immediate growth.
func (e *Engine) newArrayWithLength(length int) heap.Address {
	cap := initialMapCapacity
	for cap < length {
		cap *= 2
	}
	m := tagged.AllocMap(e.Heap, cap)
	return tagged.AllocArray(e.Heap, m, tagged.MapMask(e.Heap, m), length)
}

// newArray allocates an Array already populated with elems, used by
// runtimeKeysof to materialize a Candor-visible key list.
func (e *Engine) newArray(elems []heap.Address) heap.Address {
	arr := e.newArrayWithLength(len(elems))
	for i, v := range elems {
		e.storeArrayIndex(arr, heap.EncodeInt(int64(i)), v)
	}
	return arr
}
