// Package snapshot exports and restores a paged heap file as a compressed
// byte stream. It is a backup/export utility over the opaque page file
// pkg/storage already treats as an array of fixed-size frames — it does not
// replay a log or reconstruct in-flight transactions, and it is not a
// substitute for crash recovery.
package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot streams the paged file at srcPath through a zstd encoder into w.
// The source file is read, not mutated, so this can run against a live
// FileDiskManager's backing file between operations.
func Snapshot(srcPath string, w io.Writer) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()

	if _, err := io.Copy(enc, f); err != nil {
		return fmt.Errorf("compress page file: %w", err)
	}
	return enc.Close()
}

// Restore decompresses r, a stream produced by Snapshot, into dstPath.
// dstPath is truncated and recreated; any existing file at that path is
// overwritten.
func Restore(r io.Reader, dstPath string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, dec); err != nil {
		return fmt.Errorf("decompress page file: %w", err)
	}
	return out.Sync()
}
