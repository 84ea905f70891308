package heap

import "encoding/binary"

// DefaultPageSize is the byte size of a freshly appended page when the
// caller does not request a larger one.
const DefaultPageSize = 1 << 20 // 1 MiB

// Space is an ordered sequence of Pages plus the GC size-limit
// bookkeeping described in spec.md §4.1.
type Space struct {
	name      string
	pages     []*Page
	pageSize  uint32
	nextPage  *uint32 // shared page-id counter, owned by the Heap
	sizeLimit uint64
	liveSize  uint64
}

func newSpace(name string, pageSize uint32, counter *uint32, initialLimit uint64) *Space {
	return &Space{name: name, pageSize: pageSize, nextPage: counter, sizeLimit: initialLimit}
}

// Alloc hands out n bytes, appending a new page if every existing page
// is full. The slow path appends a page of pageSize bytes, or a larger
// one when n (rounded up to even) plus the reserved data+1 byte does
// not fit that.
func (s *Space) Alloc(n uint32) Address {
	for _, p := range s.pages {
		if addr, ok := p.tryAlloc(n); ok {
			return addr
		}
	}
	size := s.pageSize
	if need := n + n%2 + 1; need > size {
		size = need // tryAlloc's even rounding plus the data+1 odd-start offset
	}
	*s.nextPage++
	p := newPage(*s.nextPage, size)
	addr, ok := p.tryAlloc(n)
	if !ok {
		panic("heap: fresh page too small for allocation, this is a bug")
	}
	s.pages = append(s.pages, p)
	return addr
}

// Size returns the total bytes handed out across every page in the space.
func (s *Space) Size() uint64 {
	var total uint64
	for _, p := range s.pages {
		total += uint64(p.Used() - 1) // exclude the reserved data+1 slot
	}
	return total
}

// NeedsGC reports whether the space has grown past its size limit.
func (s *Space) NeedsGC() bool { return s.Size() > s.sizeLimit }

// pageByID returns the page with the given id, or nil.
func (s *Space) pageByID(id uint32) *Page {
	for _, p := range s.pages {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (s *Space) mustPage(addr Address) *Page {
	p := s.pageByID(addr.pageID())
	if p == nil {
		panic("heap: address does not belong to any page of space " + s.name)
	}
	return p
}

// ReadByte, WriteByte, ReadWord, WriteWord, ReadBytes and WriteBytes
// give Space the same Memory surface as Heap, scoped to this space's
// own pages. The collector uses these directly on a scratch to-space
// during evacuation, before it has been swapped into a Heap's New or
// Old field and so is invisible to Heap.mustPage's New/Old search.

func (s *Space) ReadByte(addr Address) byte {
	p := s.mustPage(addr)
	return p.data[addr.offset()]
}

func (s *Space) WriteByte(addr Address, v byte) {
	p := s.mustPage(addr)
	p.data[addr.offset()] = v
}

func (s *Space) ReadWord(addr Address) Address {
	p := s.mustPage(addr)
	off := addr.offset()
	return Address(binary.LittleEndian.Uint64(p.data[off : off+WordSize]))
}

func (s *Space) WriteWord(addr Address, v Address) {
	p := s.mustPage(addr)
	off := addr.offset()
	binary.LittleEndian.PutUint64(p.data[off:off+WordSize], uint64(v))
}

func (s *Space) ReadBytes(addr Address, n int) []byte {
	p := s.mustPage(addr)
	off := addr.offset()
	out := make([]byte, n)
	copy(out, p.data[off:off+uint32(n)])
	return out
}

func (s *Space) WriteBytes(addr Address, data []byte) {
	p := s.mustPage(addr)
	off := addr.offset()
	copy(p.data[off:off+uint32(len(data))], data)
}

// PageBound is the occupied byte range of one page, expressed as the
// boxed address of its first object and the address one past its last
// allocated byte.
type PageBound struct {
	Start, End Address
}

// PageBounds returns the occupied range of every page in the space,
// letting a caller that understands object-header layout (the
// collector) walk every currently allocated object sequentially
// without internal/heap needing to know what an object header is.
func (s *Space) PageBounds() []PageBound {
	out := make([]PageBound, len(s.pages))
	for i, p := range s.pages {
		out[i] = PageBound{Start: makeAddr(p.id, 1), End: makeAddr(p.id, p.top)}
	}
	return out
}

// PageIDs returns the id of every page currently in the space, used by
// the collector to record which pages are about to become stale
// (discarded) before a Swap.
func (s *Space) PageIDs() map[uint32]bool {
	ids := make(map[uint32]bool, len(s.pages))
	for _, p := range s.pages {
		ids[p.id] = true
	}
	return ids
}

// Swap atomically exchanges this space's page list with other's and
// empties other — used to install a freshly evacuated to-space.
func (s *Space) Swap(other *Space) {
	s.pages, other.pages = other.pages, nil
}

// Reset discards every page, used after a cycle once the from-space
// (old to-space-turned-from-space) has been fully evacuated.
func (s *Space) Reset() {
	s.pages = nil
}

// SetLimitFromLiveSize sets size_limit to twice the current live size,
// per spec.md §4.1 ("after each successful GC it is set to twice the
// live size").
func (s *Space) SetLimitFromLiveSize() {
	s.sizeLimit = s.Size() * 2
	if s.sizeLimit == 0 {
		s.sizeLimit = uint64(s.pageSize)
	}
}
