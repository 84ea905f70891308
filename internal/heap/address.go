// Package heap implements Candor's page-based bump allocator and the
// two semispaces (new space, old space) the collector evacuates
// between. It has no notion of Candor values; internal/tagged builds
// the tagged-pointer encoding on top of the addresses this package
// hands out.
package heap

import "fmt"

// WordSize is the size in bytes of one machine word. Candor's interior
// offsets ("k*W-1") are expressed in units of WordSize.
const WordSize = 8

// Address is a synthetic pointer: the low bit is the tag bit used
// throughout the runtime (0 = unboxed integer, 1 = boxed heap
// pointer), and the upper bits locate a page and a byte offset within
// it rather than a real process address. This is the "integer handle
// into a page table" rendering of the design notes' interior-pointer
// scheme: safe to hold in a Go []Address stack without `unsafe`, while
// preserving the bit-exact tagging and offset arithmetic the spec
// describes for generated code.
type Address uint64

const (
	pageIDBits   = 24
	pageIDShift  = 64 - pageIDBits
	offsetMask   = (uint64(1) << pageIDShift) - 1
	tagBit       = uint64(1)
	addrDataMask = ^tagBit
)

// NilAddress is the canonical Nil singleton: a boxed-looking value
// with no backing header, per spec (IsNil(p) == (p == 0x1)).
const NilAddress Address = 1

// EncodeInt returns the unboxed encoding of a small integer.
func EncodeInt(n int64) Address {
	return Address(uint64(n) << 1)
}

// DecodeInt extracts the integer payload of an unboxed Address. Callers
// must check IsUnboxed first.
func DecodeInt(a Address) int64 {
	return int64(uint64(a)) >> 1
}

// IsUnboxed reports whether the low bit (the tag bit) is clear.
func IsUnboxed(a Address) bool { return uint64(a)&tagBit == 0 }

// IsNil reports whether a is the Nil singleton.
func IsNil(a Address) bool { return a == NilAddress }

func makeAddr(pageID uint32, offset uint32) Address {
	return Address((uint64(pageID) << pageIDShift) | (uint64(offset) << 1) | tagBit)
}

func (a Address) pageID() uint32 {
	return uint32(uint64(a) >> pageIDShift)
}

// PageID exposes the page-identifying portion of a, used by the
// collector to recognize addresses that still point into a page about
// to be discarded.
func (a Address) PageID() uint32 { return a.pageID() }

func (a Address) offset() uint32 {
	return uint32((uint64(a) & offsetMask) >> 1)
}

// Plus returns the address n bytes past a, staying within the same page.
func (a Address) Plus(n int) Address {
	return makeAddr(a.pageID(), uint32(int64(a.offset())+int64(n)))
}

func (a Address) String() string {
	if a == NilAddress {
		return "nil"
	}
	if IsUnboxed(a) {
		return fmt.Sprintf("int(%d)", DecodeInt(a))
	}
	return fmt.Sprintf("0x%x:%x", a.pageID(), a.offset())
}
