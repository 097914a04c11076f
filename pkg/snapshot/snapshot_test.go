package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnohosten/laura-db/pkg/storage"
)

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "heap.db")

	dm, err := storage.NewFileDiskManager(srcPath)
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	bpm := storage.NewBufferPoolManager(4, dm)

	var want []storage.PageID
	for i := 0; i < 3; i++ {
		pageID, frame, err := bpm.NewPage()
		if err != nil {
			t.Fatalf("NewPage: %v", err)
		}
		for j := range frame.Data {
			frame.Data[j] = byte(pageID) + byte(j)
		}
		bpm.UnpinPage(pageID, true)
		want = append(want, pageID)
	}
	bpm.FlushAllPages()
	dm.Close()

	var compressed bytes.Buffer
	if err := Snapshot(srcPath, &compressed); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if compressed.Len() == 0 {
		t.Fatalf("expected non-empty compressed snapshot")
	}

	dstPath := filepath.Join(dir, "restored.db")
	if err := Restore(bytes.NewReader(compressed.Bytes()), dstPath); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	origBytes, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	restoredBytes, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(origBytes, restoredBytes) {
		t.Fatalf("restored file does not match original byte-for-byte")
	}

	dm2, err := storage.NewFileDiskManager(dstPath)
	if err != nil {
		t.Fatalf("NewFileDiskManager on restored file: %v", err)
	}
	defer dm2.Close()
	bpm2 := storage.NewBufferPoolManager(4, dm2)

	for _, pageID := range want {
		frame, err := bpm2.FetchPage(pageID)
		if err != nil {
			t.Fatalf("FetchPage(%s) after restore: %v", pageID, err)
		}
		if frame.Data[0] != byte(pageID) {
			t.Fatalf("page %s: restored content mismatch", pageID)
		}
		bpm2.UnpinPage(pageID, false)
	}
}
