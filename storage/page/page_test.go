package page

import (
	"testing"

	"bufferengine/types"
)

func TestPage_ResetZeroesBufferAndMetadata(t *testing.T) {
	p := &Page{}
	copy(p.GetData(), []byte("stale contents"))
	p.SetDirty(true)
	p.SetPinCount(4)
	p.LSN = 77

	p.Reset(types.PageID(9))

	if p.GetPageId() != types.PageID(9) {
		t.Fatalf("expected page id 9 after Reset, got %d", p.GetPageId())
	}
	if p.IsDirty() {
		t.Fatalf("expected Reset to clear the dirty bit")
	}
	if p.PinCount() != 1 {
		t.Fatalf("expected Reset to set pin count to 1, got %d", p.PinCount())
	}
	if p.LSN != 0 {
		t.Fatalf("expected Reset to clear LSN, got %d", p.LSN)
	}
	for i, b := range p.GetData() {
		if b != 0 {
			t.Fatalf("expected Reset to zero the buffer, found nonzero byte at %d", i)
		}
	}
}

func TestPage_InstallPageIDLeavesBufferUntouched(t *testing.T) {
	p := &Page{}
	copy(p.GetData(), []byte("still here"))

	p.InstallPageID(types.PageID(3))

	if p.GetPageId() != types.PageID(3) {
		t.Fatalf("expected page id 3, got %d", p.GetPageId())
	}
	if string(p.GetData()[:len("still here")]) != "still here" {
		t.Fatalf("expected InstallPageID to leave the buffer contents alone")
	}
}
