// Package buffer implements the buffer pool manager: the component that
// mediates between on-disk pages and the fixed frame array, orchestrating
// disk I/O and delegating victim selection to a replacer.ClockReplacer.
package buffer

import (
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"bufferengine/storage/disk"
	"bufferengine/storage/page"
	"bufferengine/storage/replacer"
	"bufferengine/types"
)

// LogManager is the optional recovery collaborator spec.md §6 describes.
// A buffer pool instance configured without one flushes unconditionally.
type LogManager interface {
	FlushedLSN() uint64
}

// Instance is a single buffer pool manager: pool_size frames, a page
// table, a free list, and a clock replacer, all guarded by one coarse
// instance latch (spec.md §5). Multiple Instances compose into a Parallel
// pool by striping page ids across them.
type Instance struct {
	mu sync.Mutex

	poolSize      int
	numInstances  int32
	instanceIndex int32
	nextPageID    types.PageID

	frames    []*page.Page
	pageTable map[types.PageID]types.FrameID
	freeList  []types.FrameID
	replacer  *replacer.ClockReplacer

	disk disk.Manager
	log  LogManager

	hits *ristretto.Cache[types.PageID, struct{}]
}

// Option configures an Instance at construction time.
type Option func(*Instance)

// WithLogManager attaches the optional Log Manager hook.
func WithLogManager(lm LogManager) Option {
	return func(i *Instance) { i.log = lm }
}

// WithInstanceIndex sets num_instances/instance_index for a member of a
// Parallel pool. Defaults are num_instances=1, instance_index=0.
func WithInstanceIndex(numInstances, instanceIndex int32) Option {
	return func(i *Instance) {
		i.numInstances = numInstances
		i.instanceIndex = instanceIndex
	}
}

// NewInstance constructs a buffer pool manager instance with poolSize
// frames backed by diskManager. Panics if num_instances/instance_index
// are misconfigured, matching spec.md §4.3's BUSTUB_ASSERT-style
// invariant enforcement.
func NewInstance(poolSize int, diskManager disk.Manager, opts ...Option) *Instance {
	if poolSize <= 0 {
		panic(fmt.Sprintf("buffer: invalid pool size %d", poolSize))
	}

	inst := &Instance{
		poolSize:     poolSize,
		numInstances: 1,
		disk:         diskManager,
		frames:       make([]*page.Page, poolSize),
		pageTable:    make(map[types.PageID]types.FrameID, poolSize),
		freeList:     make([]types.FrameID, poolSize),
		replacer:     replacer.NewClockReplacer(poolSize),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.numInstances <= 0 {
		panic("buffer: num_instances must be > 0")
	}
	if inst.instanceIndex >= inst.numInstances {
		panic("buffer: instance_index must be < num_instances")
	}
	inst.nextPageID = types.PageID(inst.instanceIndex)

	for i := 0; i < poolSize; i++ {
		inst.frames[i] = &page.Page{}
		inst.frames[i].InstallPageID(types.InvalidPageID)
		inst.freeList[i] = types.FrameID(i)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[types.PageID, struct{}]{
		NumCounters: int64(poolSize) * 10,
		MaxCost:     int64(poolSize) * 10,
		BufferItems: 64,
		Metrics:     true,
	})
	if err == nil {
		inst.hits = cache
	}

	return inst
}

// allocatePage produces the next page id under this instance's striping
// rule and asserts it lands on this instance — spec.md §4.3 AllocatePage.
func (i *Instance) allocatePage() types.PageID {
	id := i.nextPageID
	i.nextPageID += types.PageID(i.numInstances)
	if int32(id)%i.numInstances != i.instanceIndex {
		panic(fmt.Sprintf("buffer: allocated page id %d does not satisfy striping invariant", id))
	}
	return id
}

// acquireVictim pops a frame from the free list first, falling back to
// the replacer. Returns false if neither has anything to offer (every
// frame is pinned). If the chosen frame is resident and dirty, its
// contents are written back before its old mapping is dropped.
func (i *Instance) acquireVictim() (types.FrameID, bool) {
	var frameID types.FrameID
	if n := len(i.freeList); n > 0 {
		frameID = i.freeList[n-1]
		i.freeList = i.freeList[:n-1]
	} else {
		fid, ok := i.replacer.Victim()
		if !ok {
			return types.InvalidFrameID, false
		}
		frameID = fid
	}

	frame := i.frames[frameID]
	oldID := frame.GetPageId()
	if oldID != types.InvalidPageID {
		log.Printf("[BufferPool] EVICT pageID=%d dirty=%v", oldID, frame.IsDirty())
		if frame.IsDirty() {
			i.writeBack(frame)
		}
		delete(i.pageTable, oldID)
	}
	return frameID, true
}

// writeBack persists frame's current contents and clears its dirty bit.
// Takes the frame's own latch in write mode around the disk I/O, per
// spec.md §5's instance-then-frame latch ordering.
func (i *Instance) writeBack(frame *page.Page) {
	frame.Lock()
	defer frame.Unlock()
	if err := i.disk.WritePage(frame.GetPageId(), frame.GetData()); err != nil {
		// A write failure here is the disk collaborator's to surface
		// through the caller's next explicit FlushPage; eviction itself
		// has no channel to report it through, so the dirty bit stays
		// set and the page is evicted anyway (§7: fatal to the
		// operation, not to the pool).
		return
	}
	frame.SetDirty(false)
}

// coveredByLog reports whether frame's LSN is safe to flush given the
// configured log manager (or unconditionally safe if none is attached).
func (i *Instance) coveredByLog(frame *page.Page) bool {
	if i.log == nil {
		return true
	}
	return frame.LSN <= i.log.FlushedLSN()
}

// NewPage allocates a fresh page id, evicting a victim frame if the pool
// has no free frame, and returns the pinned frame holding it. Returns nil
// if the pool is fully pinned (spec.md §4.3 NewPage).
func (i *Instance) NewPage() (types.PageID, *page.Page) {
	i.mu.Lock()
	defer i.mu.Unlock()

	frameID, ok := i.acquireVictim()
	if !ok {
		return types.InvalidPageID, nil
	}

	newID := i.allocatePage()
	frame := i.frames[frameID]
	frame.Reset(newID)

	i.pageTable[newID] = frameID
	// acquireVictim may hand back a frame the replacer has never seen
	// (fresh from the free list) or one it just removed via Victim — then
	// the frame is not currently tracked, so Unpin inserts it before Pin
	// marks it ineligible. A frame freed by DeletePage is still tracked as
	// pinned; for it Unpin clears the pin bit and Pin sets it again.
	i.replacer.Unpin(frameID)
	i.replacer.Pin(frameID)
	i.trackAccess(newID, false)

	return newID, frame
}

// FetchPage returns the frame holding pageID, pinning it, loading it from
// disk first if it is not already resident. Returns nil if the page is
// not resident and the pool is fully pinned.
func (i *Instance) FetchPage(pageID types.PageID) *page.Page {
	i.mu.Lock()
	defer i.mu.Unlock()

	if frameID, ok := i.pageTable[pageID]; ok {
		frame := i.frames[frameID]
		frame.SetPinCount(frame.PinCount() + 1)
		i.replacer.Pin(frameID)
		i.trackAccess(pageID, true)
		log.Printf("[BufferPool] HIT  pageID=%d pinCount=%d", pageID, frame.PinCount())
		return frame
	}

	log.Printf("[BufferPool] MISS pageID=%d -- loading from disk", pageID)
	frameID, ok := i.acquireVictim()
	if !ok {
		return nil
	}

	frame := i.frames[frameID]
	frame.InstallPageID(pageID)
	frame.Lock()
	err := i.disk.ReadPage(pageID, frame.GetData())
	frame.Unlock()
	if err != nil {
		// Leave the frame on the free list rather than installing a
		// half-read page into the page table.
		frame.InstallPageID(types.InvalidPageID)
		i.freeList = append(i.freeList, frameID)
		return nil
	}

	frame.SetPinCount(1)
	frame.SetDirty(false)
	frame.LSN = 0
	i.pageTable[pageID] = frameID
	i.replacer.Unpin(frameID)
	i.replacer.Pin(frameID)
	i.trackAccess(pageID, false)

	return frame
}

func (i *Instance) trackAccess(pageID types.PageID, hit bool) {
	if i.hits == nil {
		return
	}
	if hit {
		i.hits.Get(pageID)
		return
	}
	// Get first so ristretto's miss counter advances — Set alone never
	// touches Metrics, it would only ever see hits and Ratio() would
	// trend to 1.0 regardless of actual behavior.
	i.hits.Get(pageID)
	i.hits.Set(pageID, struct{}{}, 1)
}

// UnpinPage decrements pageID's pin count and ORs isDirty into its dirty
// bit. Returns false if the page is not resident or was not pinned
// (spec.md §4.3 UnpinPage).
func (i *Instance) UnpinPage(pageID types.PageID, isDirty bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	frameID, ok := i.pageTable[pageID]
	if !ok {
		return false
	}

	frame := i.frames[frameID]
	frame.SetDirty(frame.IsDirty() || isDirty)

	if frame.PinCount() <= 0 {
		return false
	}

	frame.SetPinCount(frame.PinCount() - 1)
	if frame.PinCount() == 0 {
		i.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage unconditionally writes pageID's frame to disk and clears its
// dirty bit. Returns false for INVALID_PAGE_ID or a non-resident page. A
// page whose LSN is not yet covered by the log manager is left dirty and
// not flushed.
func (i *Instance) FlushPage(pageID types.PageID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if pageID == types.InvalidPageID {
		return false
	}

	frameID, ok := i.pageTable[pageID]
	if !ok {
		return false
	}

	frame := i.frames[frameID]
	frame.Lock()
	defer frame.Unlock()

	if !i.coveredByLog(frame) {
		log.Printf("[BufferPool] FLUSH BLOCKED pageID=%d pageLSN=%d", pageID, frame.LSN)
		return false
	}

	if err := i.disk.WritePage(pageID, frame.GetData()); err != nil {
		return false
	}
	frame.SetDirty(false)
	log.Printf("[BufferPool] FLUSH pageID=%d pageLSN=%d", pageID, frame.LSN)
	return true
}

// FlushAllPages writes every dirty resident page to disk, skipping any
// whose LSN is not yet covered by the log manager.
func (i *Instance) FlushAllPages() {
	i.mu.Lock()
	defer i.mu.Unlock()

	log.Printf("[BufferPool] FlushAllPages -- pool size=%d resident=%d", i.poolSize, len(i.pageTable))
	for _, frameID := range i.pageTable {
		frame := i.frames[frameID]
		frame.Lock()
		if frame.IsDirty() && i.coveredByLog(frame) {
			if err := i.disk.WritePage(frame.GetPageId(), frame.GetData()); err == nil {
				frame.SetDirty(false)
			}
		}
		frame.Unlock()
	}
}

// DeletePage removes pageID from the pool, returning its frame to the
// free list and asking the disk collaborator to deallocate it. Returns
// true if the page is not resident (nothing to do) or was successfully
// removed; false if it is resident and pinned.
func (i *Instance) DeletePage(pageID types.PageID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	frameID, ok := i.pageTable[pageID]
	if !ok {
		return true
	}

	frame := i.frames[frameID]
	if frame.PinCount() > 0 {
		return false
	}

	delete(i.pageTable, pageID)
	frame.InstallPageID(types.InvalidPageID)
	frame.SetDirty(false)
	frame.SetPinCount(0)
	// Mark pinned rather than forgetting the frame outright: the clock
	// ring's capacity equals pool size and a frame id occupies at most one
	// ring slot at a time; NewPage's or FetchPage's Unpin+Pin on reuse
	// reactivates this same ring slot for whatever page ends up in it next.
	i.replacer.Pin(frameID)
	i.freeList = append(i.freeList, frameID)

	_ = i.disk.DeallocatePage(pageID)
	return true
}

// Stats reports a snapshot of the pool's occupancy and, when the
// ristretto-backed access tracker initialised successfully, its
// approximate hit ratio.
type Stats struct {
	Capacity       int
	Resident       int
	PinnedFrames   int
	DirtyFrames    int
	ApproxHitRatio float64
}

// Stats returns a point-in-time snapshot of pool occupancy.
func (i *Instance) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Stats{Capacity: i.poolSize, Resident: len(i.pageTable)}
	for _, frameID := range i.pageTable {
		frame := i.frames[frameID]
		if frame.PinCount() > 0 {
			s.PinnedFrames++
		}
		if frame.IsDirty() {
			s.DirtyFrames++
		}
	}
	if i.hits != nil {
		s.ApproxHitRatio = i.hits.Metrics.Ratio()
	}
	return s
}

// Close releases the instance's resources: the ristretto access tracker
// and the underlying disk manager. It does not flush
// dirty pages first — call FlushAllPages before Close if that matters.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.hits != nil {
		i.hits.Close()
	}
	return i.disk.Close()
}
