package hashindex

import (
	"testing"

	"github.com/mnohosten/laura-db/pkg/storage"
)

func TestHeaderPage_FieldsRoundTrip(t *testing.T) {
	var frame storage.Frame
	h := LoadHeaderPage(&frame)

	h.SetPageId(storage.PageID(3))
	h.SetLSN(0xdeadbeef)
	h.SetSize(16)

	if h.GetPageId() != storage.PageID(3) {
		t.Fatalf("GetPageId() = %v, want 3", h.GetPageId())
	}
	if h.GetLSN() != 0xdeadbeef {
		t.Fatalf("GetLSN() = %x, want deadbeef", h.GetLSN())
	}
	if h.GetSize() != 16 {
		t.Fatalf("GetSize() = %d, want 16", h.GetSize())
	}
	if h.NumBlocks() != 0 {
		t.Fatalf("NumBlocks() = %d, want 0 before any AddBlockPageId", h.NumBlocks())
	}
}

func TestHeaderPage_BlockDirectoryOrdered(t *testing.T) {
	var frame storage.Frame
	h := LoadHeaderPage(&frame)

	ids := []storage.PageID{10, 11, 12, 13}
	for _, id := range ids {
		h.AddBlockPageId(id)
	}
	if h.NumBlocks() != len(ids) {
		t.Fatalf("NumBlocks() = %d, want %d", h.NumBlocks(), len(ids))
	}
	for i, want := range ids {
		if got := h.GetBlockPageId(i); got != want {
			t.Fatalf("GetBlockPageId(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestHeaderPage_GetBlockPageIdPastNextIndIsInvalid(t *testing.T) {
	var frame storage.Frame
	h := LoadHeaderPage(&frame)

	ids := []storage.PageID{10, 11, 12}
	for _, id := range ids {
		h.AddBlockPageId(id)
	}

	if got := h.GetBlockPageId(h.NumBlocks()); got != storage.InvalidPageID {
		t.Fatalf("GetBlockPageId(NumBlocks()) = %v, want InvalidPageID", got)
	}
	if got := h.GetBlockPageId(h.NumBlocks() + 5); got != storage.InvalidPageID {
		t.Fatalf("GetBlockPageId(NumBlocks()+5) = %v, want InvalidPageID", got)
	}
	if got := h.GetBlockPageId(-1); got != storage.InvalidPageID {
		t.Fatalf("GetBlockPageId(-1) = %v, want InvalidPageID", got)
	}
}

func TestHeaderPage_MaxBlocksFitsOnePage(t *testing.T) {
	if headerOffBlocks+headerMaxBlocks*4 > storage.PageSize {
		t.Fatalf("header directory overflows page: %d > %d", headerOffBlocks+headerMaxBlocks*4, storage.PageSize)
	}
}
