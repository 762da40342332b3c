// Package disk is the Disk Manager collaborator spec.md §6 describes: it
// performs the actual block reads and writes the buffer pool orchestrates.
// It owns no page-id allocation — that is the buffer pool's job — but it
// does track deallocations so backing storage can eventually be reused.
package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"bufferengine/types"
)

// Manager is the interface the buffer pool consumes. A real Manager talks
// to a backing file; tests substitute an in-memory fake.
type Manager interface {
	ReadPage(id types.PageID, buf []byte) error
	WritePage(id types.PageID, buf []byte) error
	DeallocatePage(id types.PageID) error
	Close() error
}

// FileManager is a Manager backed by a single OS file, one page per
// PageSize-aligned offset — the same ReadAt/WriteAt-at-offset approach the
// teacher's disk manager uses, without the teacher's multi-file fileID
// encoding, which spec.md's plain int32 page id model has no room for.
type FileManager struct {
	file *os.File

	mu          sync.Mutex
	deallocated map[types.PageID]bool
}

// NewFileManager opens or creates the backing file for one buffer pool
// instance.
func NewFileManager(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &FileManager{
		file:        f,
		deallocated: make(map[types.PageID]bool),
	}, nil
}

// ReadPage reads one page's worth of bytes at its offset into buf. Short
// reads past the current end of file (a page never written) are zero
// filled, matching the teacher's "pad with zeros if partial read".
func (fm *FileManager) ReadPage(id types.PageID, buf []byte) error {
	if len(buf) != types.PageSize {
		return fmt.Errorf("disk: ReadPage buffer size %d != page size %d", len(buf), types.PageSize)
	}

	offset := int64(id) * int64(types.PageSize)
	n, err := fm.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes buf to page id's offset, blocking until the syscall
// returns. It does not fsync; callers that need durability call Sync.
func (fm *FileManager) WritePage(id types.PageID, buf []byte) error {
	if len(buf) != types.PageSize {
		return fmt.Errorf("disk: WritePage buffer size %d != page size %d", len(buf), types.PageSize)
	}

	offset := int64(id) * int64(types.PageSize)
	if _, err := fm.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

// DeallocatePage marks a page id's backing storage as reclaimable. This
// implementation does not shrink the file or reuse the offset — it only
// records the deallocation so future tooling (a free-space map) could.
func (fm *FileManager) DeallocatePage(id types.PageID) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.deallocated[id] = true
	return nil
}

// Sync flushes the backing file to stable storage.
func (fm *FileManager) Sync() error {
	return fm.file.Sync()
}

// Close closes the backing file.
func (fm *FileManager) Close() error {
	return fm.file.Close()
}
