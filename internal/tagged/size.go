package tagged

import "candor/internal/heap"

// Size returns the total byte footprint of the boxed object at p,
// header included, the unit the collector copies whole during
// evacuation. p must be a non-nil boxed address whose tag byte is
// already tag (callers read TagOf before calling Size).
func Size(h heap.Memory, tag Tag, p heap.Address) int {
	switch tag {
	case TagBoolean, TagNumber:
		return HeaderSize + heap.WordSize
	case TagContext:
		return HeaderSize + (2+ContextSlotCount(h, p))*heap.WordSize
	case TagString:
		if ReprOf(h, p) == byte(ReprNormal) {
			return HeaderSize + 2*heap.WordSize + StringLen(h, p)
		}
		return HeaderSize + 4*heap.WordSize
	case TagObject:
		return HeaderSize + 2*heap.WordSize
	case TagArray:
		return HeaderSize + 3*heap.WordSize
	case TagFunction:
		return HeaderSize + 4*heap.WordSize
	case TagMap:
		return HeaderSize + heap.WordSize + 2*MapCapacity(h, p)*heap.WordSize
	case TagCData:
		return HeaderSize + heap.WordSize + CDataSize(h, p)
	default:
		panic("tagged: Size called on unsupported tag " + tag.String())
	}
}

// OutgoingSlots returns the interior addresses of every heap-pointer
// field the object at p holds, the set the collector enqueues onto
// the grey queue after evacuating p. Strings, booleans, numbers and
// CData carry no outgoing pointers except a Cons string's two
// children.
func OutgoingSlots(h heap.Memory, tag Tag, p heap.Address) []heap.Address {
	switch tag {
	case TagContext:
		n := ContextSlotCount(h, p)
		slots := make([]heap.Address, 0, n+1)
		slots = append(slots, p.Plus(PayloadOffset(0))) // parent
		for i := 0; i < n; i++ {
			slots = append(slots, p.Plus(PayloadOffset(2+i)))
		}
		return slots
	case TagString:
		if ReprOf(h, p) == byte(ReprCons) {
			return []heap.Address{p.Plus(PayloadOffset(2)), p.Plus(PayloadOffset(3))}
		}
		return nil
	case TagObject:
		return []heap.Address{p.Plus(PayloadOffset(1))}
	case TagArray:
		return []heap.Address{p.Plus(PayloadOffset(1))}
	case TagFunction:
		return []heap.Address{p.Plus(PayloadOffset(0)), p.Plus(PayloadOffset(2))}
	case TagMap:
		cap := MapCapacity(h, p)
		keys := mapKeysBase(p)
		values := mapValuesBase(h, p)
		var out []heap.Address
		for i := 0; i < cap; i++ {
			if heap.IsNil(h.ReadWord(keys.Plus(i * heap.WordSize))) {
				continue
			}
			out = append(out, keys.Plus(i*heap.WordSize), values.Plus(i*heap.WordSize))
		}
		return out
	default:
		return nil
	}
}
