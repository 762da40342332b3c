// Package page defines the in-memory frame that the buffer pool hands to
// callers. A Page is both the buffer pool's frame slot and the handle
// higher layers hold onto between Fetch/New and Unpin.
package page

import (
	"sync"

	"bufferengine/types"
)

// Page is a fixed-size in-memory buffer plus the metadata the buffer pool
// needs to decide when it can be reused: which page id it currently holds,
// how many callers have it pinned, and whether it has been written since
// it was last persisted.
//
// LSN is set by a higher layer (an access method doing write-ahead
// logging) and consulted by the buffer pool's optional log-manager hook
// before a dirty page is flushed; a pool with no log manager configured
// ignores it.
type Page struct {
	id       types.PageID
	pinCount int32
	isDirty  bool
	data     [types.PageSize]byte
	LSN      uint64

	mu sync.RWMutex
}

// GetData returns the page's mutable data buffer. Callers must hold the
// page's latch (Lock/RLock) while reading or writing it.
func (p *Page) GetData() []byte {
	return p.data[:]
}

// GetPageId returns the page id currently resident in this frame.
func (p *Page) GetPageId() types.PageID {
	return p.id
}

// IsDirty reports whether the frame has been modified since it was last
// read from or written to disk.
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// PinCount returns the number of outstanding pins on this frame.
func (p *Page) PinCount() int32 {
	return p.pinCount
}

// SetDirty sets the frame's dirty bit. The buffer pool ORs this with the
// previous value on Unpin rather than overwriting it (spec.md §4.3).
func (p *Page) SetDirty(dirty bool) {
	p.isDirty = dirty
}

// SetPinCount overwrites the pin count. Only the buffer pool instance,
// which serialises all frame mutation behind its own latch, calls this.
func (p *Page) SetPinCount(count int32) {
	p.pinCount = count
}

// InstallPageID re-points a free or evicted frame at a new resident page
// id without touching its buffer contents (used on the read-in path,
// where ReadPage fills the buffer immediately afterward).
func (p *Page) InstallPageID(id types.PageID) {
	p.id = id
}

// Reset clears a frame's buffer and metadata for reuse with a new page
// id, the "logical new" semantics spec.md §4.3 NewPage step 4 calls for.
func (p *Page) Reset(id types.PageID) {
	p.data = [types.PageSize]byte{}
	p.id = id
	p.pinCount = 1
	p.isDirty = false
	p.LSN = 0
}

// Lock/Unlock/RLock/RUnlock expose the frame's reader/writer latch to
// callers so they can protect their own reads and writes of GetData's
// buffer. The buffer pool itself takes this latch in write mode only
// around disk read-in and flush-out of the frame (spec.md §5).
func (p *Page) Lock()    { p.mu.Lock() }
func (p *Page) Unlock()  { p.mu.Unlock() }
func (p *Page) RLock()   { p.mu.RLock() }
func (p *Page) RUnlock() { p.mu.RUnlock() }
