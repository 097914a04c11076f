package storage

import "golang.org/x/crypto/blake2b"

// checksumSize is the digest width used to detect silent corruption of a
// page's bytes between a WritePage and the ReadPage that follows it. This
// guards the raw byte transfer to/from disk; it has nothing to say about
// whether the hash index's own bitmaps are internally consistent, which
// remains undefined behavior of the layer above per the core design.
const checksumSize = 32

func blake2bChecksum(data []byte) [checksumSize]byte {
	return blake2b.Sum256(data)
}
