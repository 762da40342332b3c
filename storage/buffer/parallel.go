package buffer

import (
	"fmt"

	"bufferengine/storage/disk"
	"bufferengine/storage/page"
	"bufferengine/types"
)

// Parallel stripes page ids across N independent Instances — page_id mod N
// routes each page to exactly one owning instance (spec.md §5, §2's
// "thin fan-out ... included only for its allocation contract"). The
// instances share no mutable state; routing is O(1) and lock-free.
type Parallel struct {
	instances []*Instance
}

// NewParallel builds a Parallel pool of numInstances Instances, each with
// poolSize frames and its own disk manager produced by newDisk for that
// instance's index.
func NewParallel(poolSize, numInstances int, newDisk func(instanceIndex int) (disk.Manager, error), opts ...Option) (*Parallel, error) {
	if numInstances <= 0 {
		panic("buffer: num_instances must be > 0")
	}

	p := &Parallel{instances: make([]*Instance, numInstances)}
	for idx := 0; idx < numInstances; idx++ {
		dm, err := newDisk(idx)
		if err != nil {
			return nil, fmt.Errorf("buffer: parallel instance %d: %w", idx, err)
		}
		instOpts := append([]Option{WithInstanceIndex(int32(numInstances), int32(idx))}, opts...)
		p.instances[idx] = NewInstance(poolSize, dm, instOpts...)
	}
	return p, nil
}

// owner returns the instance responsible for pageID under the striping
// rule page_id mod N == instance_index.
func (p *Parallel) owner(pageID types.PageID) *Instance {
	n := len(p.instances)
	idx := int(pageID) % n
	if idx < 0 {
		idx += n
	}
	return p.instances[idx]
}

// NewPage tries each instance in index order and returns the page from the
// first one whose NewPage succeeds, so allocations prefer lower-indexed
// instances rather than spreading evenly. An instance with no free frame
// but an unpinned page evicts that page instead of deferring to a later
// instance with free frames.
func (p *Parallel) NewPage() (types.PageID, *page.Page) {
	for _, inst := range p.instances {
		if id, frame := inst.NewPage(); frame != nil {
			return id, frame
		}
	}
	return types.InvalidPageID, nil
}

// FetchPage routes to pageID's owning instance.
func (p *Parallel) FetchPage(pageID types.PageID) *page.Page {
	return p.owner(pageID).FetchPage(pageID)
}

// UnpinPage routes to pageID's owning instance.
func (p *Parallel) UnpinPage(pageID types.PageID, isDirty bool) bool {
	return p.owner(pageID).UnpinPage(pageID, isDirty)
}

// FlushPage routes to pageID's owning instance.
func (p *Parallel) FlushPage(pageID types.PageID) bool {
	return p.owner(pageID).FlushPage(pageID)
}

// FlushAllPages flushes every instance.
func (p *Parallel) FlushAllPages() {
	for _, inst := range p.instances {
		inst.FlushAllPages()
	}
}

// DeletePage routes to pageID's owning instance.
func (p *Parallel) DeletePage(pageID types.PageID) bool {
	return p.owner(pageID).DeletePage(pageID)
}

// Close closes every instance, returning the first error encountered.
func (p *Parallel) Close() error {
	var firstErr error
	for _, inst := range p.instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
