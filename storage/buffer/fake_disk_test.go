package buffer

import (
	"bufferengine/types"
)

// fakeDisk is an in-memory disk.Manager used by the buffer pool's own
// tests so they can assert on exactly which pages were written without
// touching the filesystem. It never fails.
type fakeDisk struct {
	pages   map[types.PageID][]byte
	writes  []types.PageID
	dealloc []types.PageID
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{pages: make(map[types.PageID][]byte)}
}

func (d *fakeDisk) ReadPage(id types.PageID, buf []byte) error {
	if data, ok := d.pages[id]; ok {
		copy(buf, data)
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (d *fakeDisk) WritePage(id types.PageID, buf []byte) error {
	stored := make([]byte, len(buf))
	copy(stored, buf)
	d.pages[id] = stored
	d.writes = append(d.writes, id)
	return nil
}

func (d *fakeDisk) DeallocatePage(id types.PageID) error {
	d.dealloc = append(d.dealloc, id)
	delete(d.pages, id)
	return nil
}

func (d *fakeDisk) Close() error { return nil }

func (d *fakeDisk) writeCountFor(id types.PageID) int {
	n := 0
	for _, w := range d.writes {
		if w == id {
			n++
		}
	}
	return n
}
