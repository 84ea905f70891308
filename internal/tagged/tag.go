// Package tagged implements Candor's tagged-pointer value encoding:
// the heap object header layout, the boxed/unboxed classifiers, and
// the per-tag field accessors generated code and the collector both
// rely on. It sits directly on top of internal/heap's byte-addressable
// pages.
package tagged

import "candor/internal/heap"

// Tag identifies the runtime type of a boxed heap object. The set is
// closed; Code never appears on a heap object — it only ever marks a
// return address found on the simulated native stack during root
// scanning (spec.md §3, §4.3).
type Tag uint8

const (
	TagNil Tag = iota
	TagContext
	TagBoolean
	TagNumber
	TagString
	TagObject
	TagArray
	TagFunction
	TagCData
	TagMap
	TagCode
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "Nil"
	case TagContext:
		return "Context"
	case TagBoolean:
		return "Boolean"
	case TagNumber:
		return "Number"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	case TagFunction:
		return "Function"
	case TagCData:
		return "CData"
	case TagMap:
		return "Map"
	case TagCode:
		return "Code"
	default:
		return "Tag(?)"
	}
}

// StringRepr is the Representation byte for String objects.
type StringRepr uint8

const (
	ReprNormal StringRepr = iota
	ReprCons
)

// kMinConsLength is the shortest concatenation result that is built as
// a cons-string rather than flattened eagerly.
const kMinConsLength = 13

// kMinOldSpaceGeneration is the survival count at which an object is
// promoted into old space during evacuation.
const kMinOldSpaceGeneration = 5

// IsUnboxed reports whether p encodes a small integer directly.
func IsUnboxed(p heap.Address) bool { return heap.IsUnboxed(p) }

// IsNil reports whether p is the canonical Nil singleton.
func IsNil(p heap.Address) bool { return heap.IsNil(p) }

// IsHeapObject reports whether p is a boxed, non-Nil pointer whose
// header tag byte equals tag.
func IsHeapObject(h *heap.Heap, tag Tag, p heap.Address) bool {
	if IsUnboxed(p) || IsNil(p) {
		return false
	}
	return TagOf(h, p) == tag
}
