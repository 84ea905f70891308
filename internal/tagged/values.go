package tagged

import (
	"math"

	"candor/internal/heap"
)

func alloc(h *heap.Heap, tag Tag, repr byte, payloadBytes int) heap.Address {
	p := h.Alloc(uint32(HeaderSize + payloadBytes))
	writeHeader(h, p, tag, repr)
	return p
}

// ---- Boolean ----

// AllocBoolean allocates a new Boolean object. The embedding façade
// keeps exactly two live instances (True/False) reachable from the
// root context; this constructor is also used when rehydrating a copy
// during evacuation.
func AllocBoolean(h *heap.Heap, v bool) heap.Address {
	p := alloc(h, TagBoolean, 0, heap.WordSize)
	val := heap.Address(0)
	if v {
		val = 1
	}
	h.WriteWord(p.Plus(PayloadOffset(0)), val)
	return p
}

func BooleanValue(h heap.Memory, p heap.Address) bool {
	return h.ReadWord(p.Plus(PayloadOffset(0))) != 0
}

// ---- Number (boxed double; unboxed small integers never reach here) ----

func AllocNumber(h *heap.Heap, f float64) heap.Address {
	p := alloc(h, TagNumber, 0, heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.Address(math.Float64bits(f)))
	return p
}

func NumberValue(h heap.Memory, p heap.Address) float64 {
	return math.Float64frombits(uint64(h.ReadWord(p.Plus(PayloadOffset(0)))))
}

// ---- Context ----

// AllocContext allocates a context with slotCount slots, all
// initialized to Nil, and the given parent (heap.NilAddress at the root).
func AllocContext(h *heap.Heap, parent heap.Address, slotCount int) heap.Address {
	p := alloc(h, TagContext, 0, (2+slotCount)*heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), parent)
	h.WriteWord(p.Plus(PayloadOffset(1)), heap.EncodeInt(int64(slotCount)))
	for i := 0; i < slotCount; i++ {
		h.WriteWord(p.Plus(PayloadOffset(2+i)), heap.NilAddress)
	}
	return p
}

func ContextParent(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(0)))
}

func ContextSlotCount(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(1)))))
}

func ContextSlot(h heap.Memory, p heap.Address, i int) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(2 + i)))
}

func SetContextSlot(h heap.Memory, p heap.Address, i int, v heap.Address) {
	h.WriteWord(p.Plus(PayloadOffset(2+i)), v)
}

// ---- String ----

// AllocString allocates a flat (Normal) string holding s's bytes, with
// its hash left uncomputed (cached lazily on first StringHash call).
func AllocString(h *heap.Heap, s string) heap.Address {
	b := []byte(s)
	payload := 2*heap.WordSize + len(b)
	p := alloc(h, TagString, byte(ReprNormal), payload)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(len(b))))
	h.WriteWord(p.Plus(PayloadOffset(1)), heap.NilAddress) // hash not yet computed
	if len(b) > 0 {
		h.WriteBytes(p.Plus(PayloadOffset(2)), b)
	}
	return p
}

// AllocConsString joins left and right lazily; Flatten materializes
// the bytes on first read. The payload reserves four words (length,
// cached hash, left, right), all written here; SetConsRight can
// replace the right child later.
func AllocConsString(h *heap.Heap, left, right heap.Address, totalLen int) heap.Address {
	p := alloc(h, TagString, byte(ReprCons), 4*heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(totalLen)))
	h.WriteWord(p.Plus(PayloadOffset(1)), heap.NilAddress)
	h.WriteWord(p.Plus(PayloadOffset(2)), left)
	h.WriteWord(p.Plus(PayloadOffset(3)), right)
	return p
}

func StringLen(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(0)))))
}

func StringCachedHash(h heap.Memory, p heap.Address) (uint32, bool) {
	v := h.ReadWord(p.Plus(PayloadOffset(1)))
	if heap.IsNil(v) {
		return 0, false
	}
	return uint32(heap.DecodeInt(v)), true
}

func SetStringCachedHash(h heap.Memory, p heap.Address, hash uint32) {
	h.WriteWord(p.Plus(PayloadOffset(1)), heap.EncodeInt(int64(hash)))
}

// StringRawBytes returns the flat byte payload of a Normal string.
// Callers must flatten a Cons string first.
func StringRawBytes(h heap.Memory, p heap.Address) []byte {
	n := StringLen(h, p)
	return h.ReadBytes(p.Plus(PayloadOffset(2)), n)
}

func ConsLeft(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(2)))
}

// Flatten materializes a cons-string chain into a single Normal
// string object, mutating p in place is not possible (p's size is
// fixed), so Flatten returns a fresh Normal string.
func Flatten(h *heap.Heap, p heap.Address) heap.Address {
	if ReprOf(h, p) == byte(ReprNormal) {
		return p
	}
	var buf []byte
	var walk func(heap.Address)
	walk = func(n heap.Address) {
		if ReprOf(h, n) == byte(ReprNormal) {
			buf = append(buf, StringRawBytes(h, n)...)
			return
		}
		walk(ConsLeft(h, n))
		walk(consRight(h, n))
	}
	walk(p)
	return AllocString(h, string(buf))
}

func consRight(h heap.Memory, p heap.Address) heap.Address {
	// Right child shares the cached-hash slot's neighbor: laid out
	// directly after Left in the 4-word Cons payload.
	return h.ReadWord(p.Plus(PayloadOffset(3)))
}

// SetConsRight fills in the right child; split from AllocConsString so
// the HIR lowering of string concatenation can build left-to-right.
func SetConsRight(h heap.Memory, p heap.Address, right heap.Address) {
	h.WriteWord(p.Plus(PayloadOffset(3)), right)
}

// ---- Object / Array (Object storage is a Map; Array adds a length) ----

func AllocObject(h *heap.Heap, mapPtr heap.Address, mask uint32) heap.Address {
	p := alloc(h, TagObject, 0, 2*heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(mask)))
	h.WriteWord(p.Plus(PayloadOffset(1)), mapPtr)
	return p
}

func ObjectMask(h heap.Memory, p heap.Address) uint32 {
	return uint32(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(0)))))
}

func SetObjectMask(h heap.Memory, p heap.Address, mask uint32) {
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(mask)))
}

func ObjectMap(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(1)))
}

func SetObjectMap(h heap.Memory, p heap.Address, m heap.Address) {
	h.WriteWord(p.Plus(PayloadOffset(1)), m)
}

func AllocArray(h *heap.Heap, mapPtr heap.Address, mask uint32, length int) heap.Address {
	p := alloc(h, TagArray, 0, 3*heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(mask)))
	h.WriteWord(p.Plus(PayloadOffset(1)), mapPtr)
	h.WriteWord(p.Plus(PayloadOffset(2)), heap.EncodeInt(int64(length)))
	return p
}

func ArrayLength(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(2)))))
}

func SetArrayLength(h heap.Memory, p heap.Address, n int) {
	h.WriteWord(p.Plus(PayloadOffset(2)), heap.EncodeInt(int64(n)))
}

// ---- Map: open-addressed, power-of-two capacity ----

// kSpaceOffset is the payload slot index of the keys array's first
// slot, used as PayloadOffset(kSpaceOffset) — the capacity word
// occupies PayloadOffset(0).
const kSpaceOffset = 1

func AllocMap(h *heap.Heap, capacity int) heap.Address {
	payload := heap.WordSize + 2*capacity*heap.WordSize
	p := alloc(h, TagMap, 0, payload)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(capacity)))
	keys := mapKeysBase(p)
	values := mapValuesBase(h, p)
	for i := 0; i < capacity; i++ {
		h.WriteWord(keys.Plus(i*heap.WordSize), heap.NilAddress)
		h.WriteWord(values.Plus(i*heap.WordSize), heap.NilAddress)
	}
	return p
}

func MapCapacity(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(0)))))
}

// MapMask returns (N-1)*W, the mask generated code ANDs a hash against.
func MapMask(h heap.Memory, p heap.Address) uint32 {
	return uint32(MapCapacity(h, p)-1) * heap.WordSize
}

func mapKeysBase(p heap.Address) heap.Address {
	return p.Plus(PayloadOffset(kSpaceOffset))
}

func mapValuesBase(h heap.Memory, p heap.Address) heap.Address {
	return mapKeysBase(p).Plus(int(MapMask(h, p)) + heap.WordSize)
}

// MapProbe returns the key-slot and value-slot addresses for hash
// under mask, plus the mask itself for convenience.
func MapProbe(h heap.Memory, p heap.Address, hash uint32) (keySlot, valueSlot heap.Address, mask uint32) {
	mask = MapMask(h, p)
	off := int(hash & mask)
	keySlot = mapKeysBase(p).Plus(off)
	valueSlot = mapValuesBase(h, p).Plus(off)
	return
}

// MapForEach calls fn for every occupied (key,value) slot.
func MapForEach(h heap.Memory, p heap.Address, fn func(key, value heap.Address)) {
	cap := MapCapacity(h, p)
	keys := mapKeysBase(p)
	values := mapValuesBase(h, p)
	for i := 0; i < cap; i++ {
		k := h.ReadWord(keys.Plus(i * heap.WordSize))
		if heap.IsNil(k) {
			continue
		}
		v := h.ReadWord(values.Plus(i * heap.WordSize))
		fn(k, v)
	}
}

// ---- Function ----

func AllocFunction(h *heap.Heap, parentCtx, codeEntry, rootCtx heap.Address, argc int) heap.Address {
	p := alloc(h, TagFunction, 0, 4*heap.WordSize)
	h.WriteWord(p.Plus(PayloadOffset(0)), parentCtx)
	h.WriteWord(p.Plus(PayloadOffset(1)), codeEntry)
	h.WriteWord(p.Plus(PayloadOffset(2)), rootCtx)
	h.WriteWord(p.Plus(PayloadOffset(3)), heap.EncodeInt(int64(argc)))
	return p
}

func FunctionParentContext(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(0)))
}

func FunctionCodeEntry(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(1)))
}

func FunctionRootContext(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(PayloadOffset(2)))
}

func FunctionExpectedArgc(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(3)))))
}

// ---- CData: opaque, not scanned by GC ----

func AllocCData(h *heap.Heap, size int) heap.Address {
	p := alloc(h, TagCData, 0, heap.WordSize+size)
	h.WriteWord(p.Plus(PayloadOffset(0)), heap.EncodeInt(int64(size)))
	return p
}

func CDataSize(h heap.Memory, p heap.Address) int {
	return int(heap.DecodeInt(h.ReadWord(p.Plus(PayloadOffset(0)))))
}

func CDataBytes(h heap.Memory, p heap.Address) []byte {
	return h.ReadBytes(p.Plus(PayloadOffset(1)), CDataSize(h, p))
}

func SetCDataBytes(h heap.Memory, p heap.Address, b []byte) {
	h.WriteBytes(p.Plus(PayloadOffset(1)), b)
}
