package heap

// Page owns one contiguously addressed byte buffer. Allocation inside
// a page is a simple bump: top tracks the next free byte, always kept
// odd so every address handed out has its tag bit set (per spec,
// "top is initialised to data+1 ... preserving the tag bit").
type Page struct {
	id    uint32
	data  []byte
	top   uint32
	limit uint32
}

func newPage(id uint32, size uint32) *Page {
	if size < 2 {
		size = 2
	}
	return &Page{
		id:    id,
		data:  make([]byte, size),
		top:   1, // data+1: first handed-out address is odd
		limit: size,
	}
}

// Size returns the page's total byte capacity.
func (p *Page) Size() uint32 { return p.limit }

// Used returns the number of bytes already handed out.
func (p *Page) Used() uint32 { return p.top }

// Remaining returns the number of free bytes left in the page.
func (p *Page) Remaining() uint32 {
	if p.top > p.limit {
		return 0
	}
	return p.limit - p.top
}

// tryAlloc bumps top by n, rounded so the post-increment top stays odd,
// and returns the pre-increment address. It fails (ok=false) if the
// page does not have n (rounded) bytes left.
func (p *Page) tryAlloc(n uint32) (Address, bool) {
	rounded := n
	if rounded%2 != 0 {
		rounded++ // keeps top odd after an even-sized bump from an odd top
	}
	if p.top+rounded > p.limit {
		return Address(0), false
	}
	addr := makeAddr(p.id, p.top)
	p.top += rounded
	return addr, true
}

func (p *Page) inRange(offset uint32) bool {
	return offset >= 1 && offset < p.top
}
