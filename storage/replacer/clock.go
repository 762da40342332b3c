// Package replacer implements the clock replacement policy: an
// approximation of LRU used by the buffer pool to choose a victim frame
// when no free frame is available. See spec.md §4.1 for the contract and
// original_source/src/buffer/clock_replacer.cpp for the algorithm this
// implements faithfully.
package replacer

import (
	"sync"

	"bufferengine/types"
)

// ClockReplacer tracks the set of unpinned, eviction-eligible frames
// among a pool of at most capacity frames and selects victims under the
// clock (second-chance) policy.
//
// Frames are stored in a doubly-linked circular ring indexed by frame id
// rather than as boxed list nodes — spec.md §9's "strategy without raw
// cyclic ownership": fixed-size parallel slices keyed by frame id, with
// next/prev successor links and a hand slot id, so there is nothing here
// a garbage collector needs to chase.
type ClockReplacer struct {
	mu sync.Mutex

	capacity int
	active   []bool
	pinned   []bool
	refer    []bool
	next     []types.FrameID
	prev     []types.FrameID

	head, tail, hand types.FrameID
	clockSize        int
	pinSize          int
}

// NewClockReplacer creates a replacer sized to hold up to capacity
// frames — the buffer pool's pool size.
func NewClockReplacer(capacity int) *ClockReplacer {
	r := &ClockReplacer{
		capacity: capacity,
		active:   make([]bool, capacity),
		pinned:   make([]bool, capacity),
		refer:    make([]bool, capacity),
		next:     make([]types.FrameID, capacity),
		prev:     make([]types.FrameID, capacity),
		head:     types.InvalidFrameID,
		tail:     types.InvalidFrameID,
		hand:     types.InvalidFrameID,
	}
	return r
}

// Unpin marks frameID eviction-eligible. An unknown frame is inserted at
// the tail of the ring with refer=true, pin=false. A known, currently
// pinned frame has its pin bit cleared. A known, already-unpinned frame
// is left untouched — the refer bit is not re-armed, matching the bustub
// original, which only ever clears pin_ here.
func (r *ClockReplacer) Unpin(frameID types.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active[int(frameID)] {
		r.insert(frameID)
		return
	}
	if r.pinned[int(frameID)] {
		r.pinned[int(frameID)] = false
		r.pinSize--
	}
}

// Pin marks frameID ineligible for eviction. A no-op if the frame is
// unknown to the replacer. A known frame has its refer bit re-armed; its
// pin bit is set and pinSize incremented only the first time (idempotent
// across repeated Pin calls on an already-pinned frame — see DESIGN.md).
func (r *ClockReplacer) Pin(frameID types.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active[int(frameID)] {
		return
	}
	if !r.pinned[int(frameID)] {
		r.pinned[int(frameID)] = true
		r.pinSize++
	}
	r.refer[int(frameID)] = true
}

// Victim selects and removes an eviction-eligible frame under the clock
// policy: walk from the hand, skipping pinned entries, clearing refer
// bits as we pass referenced-and-unpinned entries, and stopping at the
// first unpinned entry whose refer bit is already false. If a full
// revolution finds none, the smallest-frame-id unpinned entry visited is
// chosen as a deterministic tie-break (spec.md §4.1).
func (r *ClockReplacer) Victim() (types.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clockSize == 0 {
		return types.InvalidFrameID, false
	}

	cur := r.hand
	target := types.InvalidFrameID
	minFrame := types.InvalidFrameID
	minFound := false

	for visited := 0; visited < r.clockSize; visited++ {
		if r.pinned[int(cur)] {
			cur = r.next[int(cur)]
			continue
		}
		if !r.refer[int(cur)] {
			target = cur
			break
		}
		r.refer[int(cur)] = false
		if !minFound || cur < minFrame {
			minFound = true
			minFrame = cur
		}
		cur = r.next[int(cur)]
	}

	if target == types.InvalidFrameID {
		if !minFound {
			return types.InvalidFrameID, false
		}
		target = minFrame
	}

	r.remove(target)
	return target, true
}

// Size returns the number of eviction-eligible frames: clockSize minus
// those currently pinned.
func (r *ClockReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clockSize - r.pinSize
}

func (r *ClockReplacer) insert(frameID types.FrameID) {
	i := int(frameID)
	r.active[i] = true
	r.pinned[i] = false
	r.refer[i] = true

	if r.clockSize == 0 {
		r.head, r.tail, r.hand = frameID, frameID, frameID
		r.next[i] = frameID
		r.prev[i] = frameID
	} else {
		oldTail := r.tail
		r.next[int(oldTail)] = frameID
		r.prev[i] = oldTail
		r.next[i] = r.head
		r.prev[int(r.head)] = frameID
		r.tail = frameID
	}
	r.clockSize++
}

func (r *ClockReplacer) remove(frameID types.FrameID) {
	i := int(frameID)
	p := r.prev[i]
	s := r.next[i]

	if r.clockSize == 1 {
		r.head, r.tail, r.hand = types.InvalidFrameID, types.InvalidFrameID, types.InvalidFrameID
	} else {
		r.next[int(p)] = s
		r.prev[int(s)] = p
		if frameID == r.head {
			r.head = s
		}
		if frameID == r.tail {
			r.tail = p
		}
		r.hand = s
	}

	r.active[i] = false
	r.pinned[i] = false
	r.refer[i] = false
	r.next[i] = types.InvalidFrameID
	r.prev[i] = types.InvalidFrameID
	r.clockSize--
}
